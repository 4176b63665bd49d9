package fieldlayout

import (
	"testing"

	"github.com/deppfellow/spoon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleKeepsOrderAndRequired(t *testing.T) {
	posted := model.IDGroups{
		{Key: "Content", IDs: []int64{4, 2}},
		{Key: "SEO%20Meta", IDs: []int64{9}},
	}

	layout, err := NewAssembler().Assemble(posted, []int64{2, 9})
	require.NoError(t, err)

	assert.Equal(t, model.BlockTypeLayoutType, layout.Type)
	require.Len(t, layout.Tabs, 2)

	assert.Equal(t, "Content", layout.Tabs[0].Name)
	assert.Equal(t, 1, layout.Tabs[0].SortOrder)
	assert.Equal(t, []model.FieldLayoutField{
		{FieldID: 4, Required: false, SortOrder: 1},
		{FieldID: 2, Required: true, SortOrder: 2},
	}, layout.Tabs[0].Fields)

	assert.Equal(t, "SEO Meta", layout.Tabs[1].Name)
	assert.Equal(t, 2, layout.Tabs[1].SortOrder)
	assert.True(t, layout.Tabs[1].Fields[0].Required)

	assert.Equal(t, []int64{4, 2, 9}, layout.FieldIDs())
}

func TestAssembleEmptySubmission(t *testing.T) {
	layout, err := NewAssembler().Assemble(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, layout.Tabs)
}

func TestAssembleRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		posted model.IDGroups
	}{
		{"duplicate field", model.IDGroups{{Key: "A", IDs: []int64{1}}, {Key: "B", IDs: []int64{1}}}},
		{"zero field id", model.IDGroups{{Key: "A", IDs: []int64{0}}}},
		{"unnamed tab", model.IDGroups{{Key: "", IDs: []int64{3}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssembler().Assemble(tt.posted, nil)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}
