package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/deppfellow/spoon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertRows(t *testing.T, store *MemoryBlockTypes, scope model.Scope, ids ...int64) {
	t.Helper()

	err := store.InScope(context.Background(), scope, func(tx ScopeTx) error {
		for _, id := range ids {
			bt := &model.BlockType{FieldID: scope.FieldID, MatrixBlockTypeID: id, GroupName: "g", Context: scope.Context}
			if err := tx.Insert(context.Background(), bt); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryInScopeDiscardsOnError(t *testing.T) {
	store := NewMemoryBlockTypes()
	ctx := context.Background()
	scope := model.Scope{Context: "global", FieldID: 1}
	insertRows(t, store, scope, 10, 11)

	err := store.InScope(ctx, scope, func(tx ScopeTx) error {
		if _, err := tx.DeleteAll(ctx); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	rows, err := store.ListByScope(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMemoryScopesAreIndependent(t *testing.T) {
	store := NewMemoryBlockTypes()
	ctx := context.Background()
	a := model.Scope{Context: "global", FieldID: 1}
	b := model.Scope{Context: "field-9", FieldID: 1}
	insertRows(t, store, a, 10)
	insertRows(t, store, b, 20, 21)

	deleted, err := store.DeleteByScope(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err := store.ListByScope(ctx, b)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMemoryFieldLayoutLifecycle(t *testing.T) {
	store := NewMemoryBlockTypes()
	ctx := context.Background()
	scope := model.Scope{Context: "global", FieldID: 1}
	insertRows(t, store, scope, 10)

	bt, err := store.GetByID(ctx, 1)
	require.NoError(t, err)

	bt.SetFieldLayout(&model.FieldLayout{Type: model.BlockTypeLayoutType})
	require.NoError(t, store.SaveFieldLayout(ctx, bt))
	require.NotNil(t, bt.FieldLayoutID)

	err = store.InScope(ctx, scope, func(tx ScopeTx) error {
		ids, err := tx.FieldLayoutIDs(ctx)
		assert.Equal(t, map[int64]int64{10: *bt.FieldLayoutID}, ids)
		return err
	})
	require.NoError(t, err)

	pruned, err := store.PruneOrphanedLayouts(ctx)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	_, err = store.DeleteByScope(ctx, scope)
	require.NoError(t, err)

	pruned, err = store.PruneOrphanedLayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, ok := store.Layout(*bt.FieldLayoutID)
	assert.False(t, ok)

	_, err = store.GetByID(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
