package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/deppfellow/spoon/internal/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var blockTypeColumnNames = []string{
	"id", "field_id", "matrix_block_type_id", "field_layout_id",
	"group_name", "context", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestInScopeReplacesRows(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)
	ctx := context.Background()
	scope := model.Scope{Context: "field-5", FieldID: 5}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockScopeSQL)).
		WithArgs("field-5:5").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(fieldLayoutIDsSQL)).
		WithArgs("field-5", int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"matrix_block_type_id", "field_layout_id"}).
			AddRow(int64(10), int64(70)))
	mock.ExpectExec(regexp.QuoteMeta(deleteScopeSQL)).
		WithArgs("field-5", int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectQuery(regexp.QuoteMeta(insertBlockTypeSQL)).
		WithArgs(int64(5), int64(10), pgxmock.AnyArg(), "groupA", "field-5").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))
	mock.ExpectCommit()

	var layoutIDs map[int64]int64
	var deleted int64
	bt := &model.BlockType{FieldID: 5, MatrixBlockTypeID: 10, GroupName: "groupA", Context: "field-5"}

	err := repo.InScope(ctx, scope, func(tx ScopeTx) error {
		var err error
		if layoutIDs, err = tx.FieldLayoutIDs(ctx); err != nil {
			return err
		}
		if deleted, err = tx.DeleteAll(ctx); err != nil {
			return err
		}
		return tx.Insert(ctx, bt)
	})

	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{10: 70}, layoutIDs)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, int64(1), bt.ID)
	assert.Equal(t, now, bt.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInScopeRollsBackOnError(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)
	ctx := context.Background()
	scope := model.Scope{Context: "global", FieldID: 3}
	boom := errors.New("row 2 invalid")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockScopeSQL)).
		WithArgs("global:3").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteScopeSQL)).
		WithArgs("global", int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectRollback()

	err := repo.InScope(ctx, scope, func(tx ScopeTx) error {
		if _, err := tx.DeleteAll(ctx); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByScope(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockScopeSQL)).
		WithArgs("global:9").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteScopeSQL)).
		WithArgs("global", int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCommit()

	deleted, err := repo.DeleteByScope(context.Background(), model.Scope{Context: "global", FieldID: 9})

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		repo := NewBlockTypeRepository(mock)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(getBlockTypeSQL)).
			WithArgs(int64(42)).
			WillReturnRows(pgxmock.NewRows(blockTypeColumnNames).
				AddRow(int64(42), int64(5), int64(10), nil, "groupA", "global", now, now))

		bt, err := repo.GetByID(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, int64(42), bt.ID)
		assert.Equal(t, "groupA", bt.GroupName)
		assert.Nil(t, bt.FieldLayoutID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		repo := NewBlockTypeRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta(getBlockTypeSQL)).
			WithArgs(int64(404)).
			WillReturnRows(pgxmock.NewRows(blockTypeColumnNames))

		bt, err := repo.GetByID(context.Background(), 404)

		assert.Nil(t, bt)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByScope(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(listScopeSQL)).
		WithArgs("field-5", int64(5)).
		WillReturnRows(pgxmock.NewRows(blockTypeColumnNames).
			AddRow(int64(1), int64(5), int64(10), nil, "groupA", "field-5", now, now).
			AddRow(int64(2), int64(5), int64(12), nil, "groupB Name", "field-5", now, now))

	rows, err := repo.ListByScope(context.Background(), model.Scope{Context: "field-5", FieldID: 5})

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(10), rows[0].MatrixBlockTypeID)
	assert.Equal(t, "groupB Name", rows[1].GroupName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFieldLayout(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)
	now := time.Now()

	bt := &model.BlockType{ID: 7, FieldID: 5, MatrixBlockTypeID: 10, GroupName: "groupA", Context: "global"}
	bt.SetFieldLayout(&model.FieldLayout{
		Type: model.BlockTypeLayoutType,
		Tabs: []model.FieldLayoutTab{{
			Name:      "Content",
			SortOrder: 1,
			Fields: []model.FieldLayoutField{
				{FieldID: 3, Required: true, SortOrder: 1},
				{FieldID: 4, SortOrder: 2},
			},
		}},
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockScopeSQL)).
		WithArgs("global:5").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(insertLayoutSQL)).
		WithArgs(model.BlockTypeLayoutType).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(90), now))
	mock.ExpectQuery(regexp.QuoteMeta(insertTabSQL)).
		WithArgs(int64(90), "Content", 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(900)))
	mock.ExpectExec(regexp.QuoteMeta(insertLayoutFieldSQL)).
		WithArgs(int64(90), int64(900), int64(3), true, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertLayoutFieldSQL)).
		WithArgs(int64(90), int64(900), int64(4), false, 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(attachLayoutSQL)).
		WithArgs(int64(90), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	err := repo.SaveFieldLayout(context.Background(), bt)

	require.NoError(t, err)
	require.NotNil(t, bt.FieldLayoutID)
	assert.Equal(t, int64(90), *bt.FieldLayoutID)
	assert.Equal(t, int64(900), bt.FieldLayout.Tabs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFieldLayoutRowGone(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)
	now := time.Now()

	bt := &model.BlockType{ID: 8, FieldID: 5, Context: "global"}
	bt.SetFieldLayout(&model.FieldLayout{Type: model.BlockTypeLayoutType})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(lockScopeSQL)).
		WithArgs("global:5").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(regexp.QuoteMeta(insertLayoutSQL)).
		WithArgs(model.BlockTypeLayoutType).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(91), now))
	mock.ExpectQuery(regexp.QuoteMeta(attachLayoutSQL)).
		WithArgs(int64(91), int64(8)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	err := repo.SaveFieldLayout(context.Background(), bt)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, bt.FieldLayoutID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneOrphanedLayouts(t *testing.T) {
	mock := newMock(t)
	repo := NewBlockTypeRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(pruneLayoutsSQL)).
		WithArgs(model.BlockTypeLayoutType).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	pruned, err := repo.PruneOrphanedLayouts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)
	assert.NoError(t, mock.ExpectationsWereMet())
}
