package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a thin generic gorm store for row types.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T) ([]*T, error)
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
	DeleteAll(ctx context.Context) error
}
