package router

import (
	"net/http"

	"github.com/deppfellow/spoon/internal/handler"
	"github.com/deppfellow/spoon/internal/middleware"
	"github.com/deppfellow/spoon/internal/model"
	"github.com/labstack/echo/v4"
)

// registerSpoonRoutes mounts the block type endpoints used by the admin UI.
// Every route requires a signed-in user and a client that accepts JSON.
func registerSpoonRoutes(api *echo.Group, h *handler.Handlers, m *middleware.Middlewares) {
	blockTypes := api.Group("/spoon/block-types",
		m.Auth.RequireAuth,
		// Re-run so the request logger picks up the authenticated user.
		m.ContextEnhancer.EnhanceContext(),
		middleware.RequireAcceptsJSON(),
	)

	bt := h.BlockTypes

	blockTypes.GET("", handler.Handle(bt.Handler, bt.ListBlockTypes, http.StatusOK, &model.ListBlockTypesQuery{}))
	blockTypes.POST("/save", handler.Handle(bt.Handler, bt.SaveBlockTypes, http.StatusOK, &model.SaveBlockTypesPayload{}))
	blockTypes.POST("/delete", handler.Handle(bt.Handler, bt.DeleteBlockTypes, http.StatusOK, &model.DeleteBlockTypesPayload{}))
	blockTypes.POST("/field-layout", handler.Handle(bt.Handler, bt.SaveFieldLayout, http.StatusOK, &model.SaveFieldLayoutPayload{}))
}
