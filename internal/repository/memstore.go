package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/deppfellow/spoon/internal/model"
)

// MemoryBlockTypes is an in-process store with the BlockTypeRepository
// contract, for service and handler tests. A scope transaction holds the lock,
// works on a copy of the rows and only swaps it in when the callback succeeds.
type MemoryBlockTypes struct {
	mu           sync.Mutex
	rows         []model.BlockType
	layouts      map[int64]model.FieldLayout
	nextID       int64
	nextLayoutID int64

	// InsertErr, when set, is returned by every ScopeTx.Insert.
	InsertErr error
	// DeleteErr, when set, is returned by every ScopeTx.DeleteAll.
	DeleteErr error
	// LayoutErr, when set, is returned by SaveFieldLayout.
	LayoutErr error
}

func NewMemoryBlockTypes() *MemoryBlockTypes {
	return &MemoryBlockTypes{
		layouts:      map[int64]model.FieldLayout{},
		nextID:       1,
		nextLayoutID: 1,
	}
}

func (m *MemoryBlockTypes) InScope(ctx context.Context, scope model.Scope, fn func(tx ScopeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memScopeTx{
		store:  m,
		scope:  scope,
		rows:   slices.Clone(m.rows),
		nextID: m.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}

	m.rows = tx.rows
	m.nextID = tx.nextID
	return nil
}

func (m *MemoryBlockTypes) DeleteByScope(ctx context.Context, scope model.Scope) (int64, error) {
	var deleted int64
	err := m.InScope(ctx, scope, func(tx ScopeTx) error {
		n, err := tx.DeleteAll(ctx)
		deleted = n
		return err
	})
	return deleted, err
}

func (m *MemoryBlockTypes) GetByID(ctx context.Context, id int64) (*model.BlockType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if row.ID == id {
			return &row, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryBlockTypes) ListByScope(ctx context.Context, scope model.Scope) ([]model.BlockType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blockTypes := []model.BlockType{}
	for _, row := range m.rows {
		if row.Scope() == scope {
			blockTypes = append(blockTypes, row)
		}
	}
	return blockTypes, nil
}

func (m *MemoryBlockTypes) SaveFieldLayout(ctx context.Context, bt *model.BlockType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LayoutErr != nil {
		return m.LayoutErr
	}

	idx := slices.IndexFunc(m.rows, func(row model.BlockType) bool { return row.ID == bt.ID })
	if idx < 0 {
		return ErrNotFound
	}

	layout := bt.FieldLayout
	layout.ID = m.nextLayoutID
	layout.CreatedAt = time.Now()
	m.nextLayoutID++
	m.layouts[layout.ID] = *layout

	layoutID := layout.ID
	bt.FieldLayoutID = &layoutID
	bt.UpdatedAt = time.Now()

	m.rows[idx].FieldLayoutID = &layoutID
	m.rows[idx].UpdatedAt = bt.UpdatedAt
	return nil
}

func (m *MemoryBlockTypes) PruneOrphanedLayouts(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := map[int64]bool{}
	for _, row := range m.rows {
		if row.FieldLayoutID != nil {
			used[*row.FieldLayoutID] = true
		}
	}

	var pruned int64
	for id := range m.layouts {
		if !used[id] {
			delete(m.layouts, id)
			pruned++
		}
	}
	return pruned, nil
}

// Layout returns a stored layout by id.
func (m *MemoryBlockTypes) Layout(id int64) (model.FieldLayout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	layout, ok := m.layouts[id]
	return layout, ok
}

type memScopeTx struct {
	store  *MemoryBlockTypes
	scope  model.Scope
	rows   []model.BlockType
	nextID int64
}

func (t *memScopeTx) FieldLayoutIDs(ctx context.Context) (map[int64]int64, error) {
	layoutIDs := map[int64]int64{}
	for _, row := range t.rows {
		if row.Scope() == t.scope && row.FieldLayoutID != nil {
			layoutIDs[row.MatrixBlockTypeID] = *row.FieldLayoutID
		}
	}
	return layoutIDs, nil
}

func (t *memScopeTx) DeleteAll(ctx context.Context) (int64, error) {
	if t.store.DeleteErr != nil {
		return 0, t.store.DeleteErr
	}

	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, func(row model.BlockType) bool {
		return row.Scope() == t.scope
	})
	return int64(before - len(t.rows)), nil
}

func (t *memScopeTx) Insert(ctx context.Context, bt *model.BlockType) error {
	if t.store.InsertErr != nil {
		return t.store.InsertErr
	}

	now := time.Now()
	bt.ID = t.nextID
	bt.CreatedAt = now
	bt.UpdatedAt = now
	t.nextID++

	row := *bt
	row.FieldLayout = nil
	t.rows = append(t.rows, row)
	return nil
}
