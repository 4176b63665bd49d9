package model

import "time"

// BlockTypeLayoutType is the layout type stored for spooned block types.
const BlockTypeLayoutType = "spoon.BlockType"

// FieldLayout is an arrangement of fields into tabs for the editing UI.
type FieldLayout struct {
	ID        int64            `json:"id"`
	Type      string           `json:"type"`
	Tabs      []FieldLayoutTab `json:"tabs"`
	CreatedAt time.Time        `json:"createdAt"`
}

// FieldLayoutTab is a named tab of a layout.
type FieldLayoutTab struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	SortOrder int                `json:"sortOrder"`
	Fields    []FieldLayoutField `json:"fields"`
}

// FieldLayoutField places one field on a tab.
type FieldLayoutField struct {
	FieldID   int64 `json:"fieldId"`
	Required  bool  `json:"required"`
	SortOrder int   `json:"sortOrder"`
}

// FieldIDs returns every field id of the layout in tab order.
func (l *FieldLayout) FieldIDs() []int64 {
	var ids []int64
	for _, tab := range l.Tabs {
		for _, field := range tab.Fields {
			ids = append(ids, field.FieldID)
		}
	}
	return ids
}
