package handler

import (
	"github.com/deppfellow/spoon/internal/model"
	"github.com/deppfellow/spoon/internal/server"
	"github.com/deppfellow/spoon/internal/service"
	"github.com/labstack/echo/v4"
)

// BlockTypeHandler serves the block type grouping endpoints.
//
// Domain outcomes are always answered with 200 {"success": bool}; the
// service has already logged why an operation failed.
type BlockTypeHandler struct {
	Handler
	blockTypes *service.BlockTypeService
}

func NewBlockTypeHandler(s *server.Server, blockTypes *service.BlockTypeService) *BlockTypeHandler {
	return &BlockTypeHandler{
		Handler:    NewHandler(s),
		blockTypes: blockTypes,
	}
}

func (h *BlockTypeHandler) SaveBlockTypes(c echo.Context, req *model.SaveBlockTypesPayload) (*model.SuccessResponse, error) {
	err := h.blockTypes.SaveBlockTypes(c.Request().Context(), req.Scope(), req.SpoonedBlockTypes)
	return outcome(err), nil
}

func (h *BlockTypeHandler) DeleteBlockTypes(c echo.Context, req *model.DeleteBlockTypesPayload) (*model.SuccessResponse, error) {
	err := h.blockTypes.DeleteBlockTypes(c.Request().Context(), req.Scope())
	return outcome(err), nil
}

func (h *BlockTypeHandler) SaveFieldLayout(c echo.Context, req *model.SaveFieldLayoutPayload) (*model.SuccessResponse, error) {
	err := h.blockTypes.SaveFieldLayout(
		c.Request().Context(),
		req.SpoonedBlockTypeID.Int64(),
		req.BlockTypeFieldLayouts,
		req.RequiredFieldIDs(),
	)
	return outcome(err), nil
}

func (h *BlockTypeHandler) ListBlockTypes(c echo.Context, req *model.ListBlockTypesQuery) (*model.ListBlockTypesResponse, error) {
	groups, err := h.blockTypes.ListBlockTypes(c.Request().Context(), req.Scope())
	if err != nil {
		return nil, err
	}

	return &model.ListBlockTypesResponse{
		Success: true,
		Scope:   req.Scope(),
		Groups:  groups,
	}, nil
}

func outcome(err error) *model.SuccessResponse {
	return &model.SuccessResponse{Success: err == nil}
}
