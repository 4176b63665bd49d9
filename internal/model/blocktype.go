package model

import (
	"fmt"
	"time"
)

// Scope identifies one set of block type associations: a matrix field as
// used in a particular context.
type Scope struct {
	Context string `json:"context"`
	FieldID int64  `json:"fieldId"`
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d", s.Context, s.FieldID)
}

// BlockType associates a matrix block type with a group (and optionally its
// own field layout) inside a scope.
type BlockType struct {
	ID                int64     `json:"id"`
	FieldID           int64     `json:"fieldId" validate:"required,gt=0"`
	MatrixBlockTypeID int64     `json:"matrixBlockTypeId" validate:"required,gt=0"`
	FieldLayoutID     *int64    `json:"fieldLayoutId"`
	GroupName         string    `json:"groupName" validate:"required,max=255"`
	Context           string    `json:"context" validate:"required,max=255"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// FieldLayout is only populated when a layout has been attached in memory
	// and is waiting to be saved.
	FieldLayout *FieldLayout `json:"fieldLayout,omitempty"`
}

// Scope returns the scope the row belongs to.
func (b *BlockType) Scope() Scope {
	return Scope{Context: b.Context, FieldID: b.FieldID}
}

// SetFieldLayout attaches a layout to be persisted with the row.
func (b *BlockType) SetFieldLayout(layout *FieldLayout) {
	b.FieldLayout = layout
}

// Validate checks the row before it is written.
func (b *BlockType) Validate() error {
	return validate.Struct(b)
}

// BlockTypeGroup is a named run of block types, in display order.
type BlockTypeGroup struct {
	Name       string      `json:"name"`
	BlockTypes []BlockType `json:"blockTypes"`
}

// GroupBlockTypes groups rows by GroupName. Groups appear in the order their
// first row appears, and rows keep their relative order.
func GroupBlockTypes(rows []BlockType) []BlockTypeGroup {
	groups := []BlockTypeGroup{}
	index := map[string]int{}

	for _, row := range rows {
		i, ok := index[row.GroupName]
		if !ok {
			i = len(groups)
			index[row.GroupName] = i
			groups = append(groups, BlockTypeGroup{Name: row.GroupName})
		}
		groups[i].BlockTypes = append(groups[i].BlockTypes, row)
	}

	return groups
}
