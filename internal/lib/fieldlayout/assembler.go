// Package fieldlayout turns a posted field layout (tab name -> field ids) into
// a model.FieldLayout ready to be persisted.
package fieldlayout

import (
	"errors"
	"fmt"

	"github.com/deppfellow/spoon/internal/model"
)

// ErrInvalidLayout is returned for submissions that cannot form a layout.
var ErrInvalidLayout = errors.New("invalid field layout")

// Assembler builds layouts of a fixed type.
type Assembler struct {
	layoutType string
}

// NewAssembler returns an assembler producing spooned block type layouts.
func NewAssembler() *Assembler {
	return &Assembler{layoutType: model.BlockTypeLayoutType}
}

// Assemble builds a layout from the posted tabs. Tabs and fields keep the
// posted order (sort orders start at 1); fields listed in required are
// marked required. A field may only be placed once per layout.
func (a *Assembler) Assemble(posted model.IDGroups, required []int64) (*model.FieldLayout, error) {
	requiredSet := make(map[int64]struct{}, len(required))
	for _, id := range required {
		requiredSet[id] = struct{}{}
	}

	layout := &model.FieldLayout{
		Type: a.layoutType,
		Tabs: make([]model.FieldLayoutTab, 0, len(posted)),
	}
	seen := map[int64]string{}

	for i, group := range posted {
		name := group.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: tab %d has no name", ErrInvalidLayout, i+1)
		}

		tab := model.FieldLayoutTab{
			Name:      name,
			SortOrder: i + 1,
			Fields:    make([]model.FieldLayoutField, 0, len(group.IDs)),
		}

		for j, fieldID := range group.IDs {
			if fieldID <= 0 {
				return nil, fmt.Errorf("%w: tab %q has an invalid field id", ErrInvalidLayout, name)
			}
			if other, dup := seen[fieldID]; dup {
				return nil, fmt.Errorf("%w: field %d is on both %q and %q", ErrInvalidLayout, fieldID, other, name)
			}
			seen[fieldID] = name

			_, isRequired := requiredSet[fieldID]
			tab.Fields = append(tab.Fields, model.FieldLayoutField{
				FieldID:   fieldID,
				Required:  isRequired,
				SortOrder: j + 1,
			})
		}

		layout.Tabs = append(layout.Tabs, tab)
	}

	return layout, nil
}
