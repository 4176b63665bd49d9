package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/spoon/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a block type association does not exist.
var ErrNotFound = fmt.Errorf("table:spoon_block_types: %w", pgx.ErrNoRows)

// DBTX is implemented by *pgxpool.Pool (and by pgxmock in tests).
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScopeTx is the view of one scope inside a transaction that holds the
// scope's lock. Nothing else can change the scope until it commits.
type ScopeTx interface {
	// FieldLayoutIDs maps matrix block type id -> attached field layout id.
	FieldLayoutIDs(ctx context.Context) (map[int64]int64, error)
	// DeleteAll removes every association of the scope.
	DeleteAll(ctx context.Context) (int64, error)
	// Insert writes a new association and fills in its id and timestamps.
	Insert(ctx context.Context, bt *model.BlockType) error
}

const (
	// Serializes writers of one scope for the rest of the transaction.
	lockScopeSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	blockTypeColumns = `id, field_id, matrix_block_type_id, field_layout_id, group_name, context, created_at, updated_at`

	fieldLayoutIDsSQL = `
		SELECT matrix_block_type_id, field_layout_id
		FROM spoon_block_types
		WHERE context = $1 AND field_id = $2 AND field_layout_id IS NOT NULL
		ORDER BY id`

	deleteScopeSQL = `DELETE FROM spoon_block_types WHERE context = $1 AND field_id = $2`

	insertBlockTypeSQL = `
		INSERT INTO spoon_block_types (field_id, matrix_block_type_id, field_layout_id, group_name, context)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	getBlockTypeSQL = `SELECT ` + blockTypeColumns + ` FROM spoon_block_types WHERE id = $1`

	listScopeSQL = `SELECT ` + blockTypeColumns + ` FROM spoon_block_types WHERE context = $1 AND field_id = $2 ORDER BY id`

	insertLayoutSQL = `INSERT INTO field_layouts (type) VALUES ($1) RETURNING id, created_at`

	insertTabSQL = `INSERT INTO field_layout_tabs (layout_id, name, sort_order) VALUES ($1, $2, $3) RETURNING id`

	insertLayoutFieldSQL = `
		INSERT INTO field_layout_fields (layout_id, tab_id, field_id, required, sort_order)
		VALUES ($1, $2, $3, $4, $5)`

	attachLayoutSQL = `
		UPDATE spoon_block_types
		SET field_layout_id = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING updated_at`

	pruneLayoutsSQL = `
		DELETE FROM field_layouts fl
		WHERE fl.type = $1
		AND NOT EXISTS (SELECT 1 FROM spoon_block_types b WHERE b.field_layout_id = fl.id)`
)

// BlockTypeRepository persists block type associations and their layouts in PostgreSQL.
type BlockTypeRepository struct {
	db DBTX
}

// NewBlockTypeRepository wraps a pool (or any DBTX).
func NewBlockTypeRepository(db DBTX) *BlockTypeRepository {
	return &BlockTypeRepository{db: db}
}

// InScope runs fn inside a transaction holding the scope's advisory lock.
// The transaction commits only if fn returns nil.
func (r *BlockTypeRepository) InScope(ctx context.Context, scope model.Scope, fn func(tx ScopeTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scope %s: %w", scope, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockScopeSQL, scope.String()); err != nil {
		return fmt.Errorf("lock scope %s: %w", scope, err)
	}

	if err := fn(&pgScopeTx{tx: tx, scope: scope}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scope %s: %w", scope, err)
	}
	return nil
}

// DeleteByScope removes every association of scope and returns how many went.
func (r *BlockTypeRepository) DeleteByScope(ctx context.Context, scope model.Scope) (int64, error) {
	var deleted int64
	err := r.InScope(ctx, scope, func(tx ScopeTx) error {
		n, err := tx.DeleteAll(ctx)
		deleted = n
		return err
	})
	return deleted, err
}

// GetByID loads one association. Returns ErrNotFound if it does not exist.
func (r *BlockTypeRepository) GetByID(ctx context.Context, id int64) (*model.BlockType, error) {
	bt, err := scanBlockType(r.db.QueryRow(ctx, getBlockTypeSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get block type %d: %w", id, err)
	}
	return bt, nil
}

// ListByScope returns the associations of scope in insertion order.
func (r *BlockTypeRepository) ListByScope(ctx context.Context, scope model.Scope) ([]model.BlockType, error) {
	rows, err := r.db.Query(ctx, listScopeSQL, scope.Context, scope.FieldID)
	if err != nil {
		return nil, fmt.Errorf("list scope %s: %w", scope, err)
	}
	defer rows.Close()

	blockTypes := []model.BlockType{}
	for rows.Next() {
		bt, err := scanBlockType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block type: %w", err)
		}
		blockTypes = append(blockTypes, *bt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scope %s: %w", scope, err)
	}
	return blockTypes, nil
}

// SaveFieldLayout inserts bt's attached layout (tabs and fields included) and
// points bt at it, all in one transaction under the scope lock. The layout
// previously attached is left in place for PruneOrphanedLayouts.
func (r *BlockTypeRepository) SaveFieldLayout(ctx context.Context, bt *model.BlockType) error {
	layout := bt.FieldLayout
	if layout == nil {
		return errors.New("block type has no field layout attached")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin field layout save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockScopeSQL, bt.Scope().String()); err != nil {
		return fmt.Errorf("lock scope %s: %w", bt.Scope(), err)
	}

	if err := tx.QueryRow(ctx, insertLayoutSQL, layout.Type).Scan(&layout.ID, &layout.CreatedAt); err != nil {
		return fmt.Errorf("insert field layout: %w", err)
	}

	for i := range layout.Tabs {
		tab := &layout.Tabs[i]
		if err := tx.QueryRow(ctx, insertTabSQL, layout.ID, tab.Name, tab.SortOrder).Scan(&tab.ID); err != nil {
			return fmt.Errorf("insert field layout tab %q: %w", tab.Name, err)
		}

		for _, field := range tab.Fields {
			if _, err := tx.Exec(ctx, insertLayoutFieldSQL, layout.ID, tab.ID, field.FieldID, field.Required, field.SortOrder); err != nil {
				return fmt.Errorf("insert field layout field %d: %w", field.FieldID, err)
			}
		}
	}

	err = tx.QueryRow(ctx, attachLayoutSQL, layout.ID, bt.ID).Scan(&bt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("attach field layout to block type %d: %w", bt.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit field layout save: %w", err)
	}

	layoutID := layout.ID
	bt.FieldLayoutID = &layoutID
	return nil
}

// PruneOrphanedLayouts deletes block type layouts no association points at.
func (r *BlockTypeRepository) PruneOrphanedLayouts(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, pruneLayoutsSQL, model.BlockTypeLayoutType)
	if err != nil {
		return 0, fmt.Errorf("prune field layouts: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgScopeTx struct {
	tx    pgx.Tx
	scope model.Scope
}

func (t *pgScopeTx) FieldLayoutIDs(ctx context.Context) (map[int64]int64, error) {
	rows, err := t.tx.Query(ctx, fieldLayoutIDsSQL, t.scope.Context, t.scope.FieldID)
	if err != nil {
		return nil, fmt.Errorf("field layout ids of %s: %w", t.scope, err)
	}
	defer rows.Close()

	layoutIDs := map[int64]int64{}
	for rows.Next() {
		var blockTypeID, layoutID int64
		if err := rows.Scan(&blockTypeID, &layoutID); err != nil {
			return nil, fmt.Errorf("scan field layout id: %w", err)
		}
		layoutIDs[blockTypeID] = layoutID
	}
	return layoutIDs, rows.Err()
}

func (t *pgScopeTx) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := t.tx.Exec(ctx, deleteScopeSQL, t.scope.Context, t.scope.FieldID)
	if err != nil {
		return 0, fmt.Errorf("delete scope %s: %w", t.scope, err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgScopeTx) Insert(ctx context.Context, bt *model.BlockType) error {
	err := t.tx.QueryRow(ctx, insertBlockTypeSQL,
		bt.FieldID,
		bt.MatrixBlockTypeID,
		bt.FieldLayoutID,
		bt.GroupName,
		bt.Context,
	).Scan(&bt.ID, &bt.CreatedAt, &bt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert block type %d into %s: %w", bt.MatrixBlockTypeID, t.scope, err)
	}
	return nil
}

func scanBlockType(row pgx.Row) (*model.BlockType, error) {
	var bt model.BlockType
	err := row.Scan(
		&bt.ID,
		&bt.FieldID,
		&bt.MatrixBlockTypeID,
		&bt.FieldLayoutID,
		&bt.GroupName,
		&bt.Context,
		&bt.CreatedAt,
		&bt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bt, nil
}
