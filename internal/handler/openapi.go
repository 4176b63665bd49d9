package handler

import (
	"fmt"
	"net/http"
	"os"

	"github.com/deppfellow/spoon/internal/server"
	"github.com/labstack/echo/v4"
)

// OpenAPIHandler serves the API reference page for static/openapi.json.
type OpenAPIHandler struct {
	Handler
	templatePath string
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler:      NewHandler(s),
		templatePath: "static/openapi.html",
	}
}

func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	templateBytes, err := os.ReadFile(h.templatePath)
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTML(http.StatusOK, string(templateBytes))
}
