package model

import "github.com/deppfellow/spoon/internal/validation"

// ------------------------------------------------------------
// Requests
// ------------------------------------------------------------

// SaveBlockTypesPayload replaces every association of a scope.
type SaveBlockTypesPayload struct {
	Context           string   `json:"context" form:"context" query:"context" validate:"required,max=255"`
	FieldID           ID       `json:"fieldId" form:"fieldId" query:"fieldId" validate:"required,gt=0"`
	SpoonedBlockTypes IDGroups `json:"spoonedBlockTypes"`
}

func (p *SaveBlockTypesPayload) Validate() error {
	return validate.Struct(p)
}

func (p *SaveBlockTypesPayload) BindFormPairs(pairs []validation.FormPair) error {
	p.SpoonedBlockTypes = GroupsFromFormPairs("spoonedBlockTypes", pairs)
	return nil
}

// Scope returns the targeted scope.
func (p *SaveBlockTypesPayload) Scope() Scope {
	return Scope{Context: p.Context, FieldID: p.FieldID.Int64()}
}

// DeleteBlockTypesPayload removes every association of a scope.
type DeleteBlockTypesPayload struct {
	Context string `json:"context" form:"context" query:"context" validate:"required,max=255"`
	FieldID ID     `json:"fieldId" form:"fieldId" query:"fieldId" validate:"required,gt=0"`
}

func (p *DeleteBlockTypesPayload) Validate() error {
	return validate.Struct(p)
}

// Scope returns the targeted scope.
func (p *DeleteBlockTypesPayload) Scope() Scope {
	return Scope{Context: p.Context, FieldID: p.FieldID.Int64()}
}

// ListBlockTypesQuery reads the associations of a scope.
type ListBlockTypesQuery struct {
	Context string `query:"context" validate:"required,max=255"`
	FieldID ID     `query:"fieldId" validate:"required,gt=0"`
}

func (q *ListBlockTypesQuery) Validate() error {
	return validate.Struct(q)
}

// Scope returns the targeted scope.
func (q *ListBlockTypesQuery) Scope() Scope {
	return Scope{Context: q.Context, FieldID: q.FieldID.Int64()}
}

// SaveFieldLayoutPayload attaches a field layout to one association.
//
// SpoonedBlockTypeID is deliberately not tagged required: a missing id is a
// domain failure answered with {"success": false}, not a 400.
type SaveFieldLayoutPayload struct {
	SpoonedBlockTypeID    ID       `json:"spoonedBlockTypeId" form:"spoonedBlockTypeId" query:"spoonedBlockTypeId"`
	BlockTypeFieldLayouts IDGroups `json:"blockTypeFieldLayouts"`
	RequiredFields        []ID     `json:"requiredFields"`
}

func (p *SaveFieldLayoutPayload) Validate() error {
	return nil
}

func (p *SaveFieldLayoutPayload) BindFormPairs(pairs []validation.FormPair) error {
	p.BlockTypeFieldLayouts = GroupsFromFormPairs("blockTypeFieldLayouts", pairs)
	for _, id := range IDsFromFormPairs("requiredFields", pairs) {
		p.RequiredFields = append(p.RequiredFields, ID(id))
	}
	return nil
}

// RequiredFieldIDs returns the required field ids as plain int64s.
func (p *SaveFieldLayoutPayload) RequiredFieldIDs() []int64 {
	ids := make([]int64, 0, len(p.RequiredFields))
	for _, id := range p.RequiredFields {
		ids = append(ids, id.Int64())
	}
	return ids
}

// ------------------------------------------------------------
// Responses
// ------------------------------------------------------------

// SuccessResponse is the envelope every mutating endpoint answers with.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ListBlockTypesResponse carries a scope's associations grouped for display.
type ListBlockTypesResponse struct {
	Success bool             `json:"success"`
	Scope   Scope            `json:"scope"`
	Groups  []BlockTypeGroup `json:"groups"`
}

func (r *SuccessResponse) Succeeded() bool { return r.Success }

func (r *ListBlockTypesResponse) Succeeded() bool { return r.Success }
