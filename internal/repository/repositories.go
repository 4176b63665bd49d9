// Package repository holds the SQL behind every persisted entity.
package repository

import (
	"github.com/deppfellow/spoon/internal/server"
)

type Repositories struct {
	BlockTypes *BlockTypeRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		BlockTypes: NewBlockTypeRepository(s.DB.Pool),
	}
}
