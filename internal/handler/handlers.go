package handler

import (
	"github.com/deppfellow/spoon/internal/server"
	"github.com/deppfellow/spoon/internal/service"
)

type Handlers struct {
	Health     *HealthHandler
	OpenAPI    *OpenAPIHandler
	BlockTypes *BlockTypeHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(s),
		OpenAPI:    NewOpenAPIHandler(s),
		BlockTypes: NewBlockTypeHandler(s, services.BlockTypes),
	}
}
