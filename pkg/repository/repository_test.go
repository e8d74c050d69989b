package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/coursepulse/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   int64  `gorm:"primaryKey"`
	Kind string `gorm:"not null"`
}

func newStore(t *testing.T) (Repository[widget], *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return ProvideStore[widget](conn), conn
}

func TestBatchCreateAndCount(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	require.NoError(t, store.BatchCreate(ctx, nil))
	require.NoError(t, store.BatchCreate(ctx, []*widget{{ID: 1, Kind: "a"}, {ID: 2, Kind: "b"}, {ID: 3, Kind: "a"}}))

	total, err := store.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	found, err := store.Find(ctx, &widget{Kind: "a"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestDeleteAllInTransaction(t *testing.T) {
	ctx := context.Background()
	store, conn := newStore(t)
	require.NoError(t, store.BatchCreate(ctx, []*widget{{ID: 1, Kind: "a"}}))

	err := conn.Transaction(func(tx *gorm.DB) error {
		return store.WithTrx(tx).DeleteAll(ctx)
	})
	require.NoError(t, err)

	total, err := store.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
