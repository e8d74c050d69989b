package repository

import (
	"context"

	"gorm.io/gorm"
)

const defaultBatchSize = 500

type store[T any] struct {
	db        *gorm.DB
	batchSize int
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db, batchSize: defaultBatchSize}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, batchSize: r.batchSize}
}

func (r *store[T]) Find(ctx context.Context, query *T) ([]*T, error) {
	var result []*T
	err := r.db.WithContext(ctx).Where(query).Find(&result).Error
	return result, err
}

func (r *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where(query).Count(&count).Error
	return count, err
}

func (r *store[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if len(resources) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(resources, r.batchSize).Error
}

// DeleteAll removes every row of T.
func (r *store[T]) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(new(T)).Error
}
