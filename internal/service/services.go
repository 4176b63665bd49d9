package service

import (
	"github.com/deppfellow/spoon/internal/lib/cache"
	"github.com/deppfellow/spoon/internal/lib/fieldlayout"
	"github.com/deppfellow/spoon/internal/lib/job"
	"github.com/deppfellow/spoon/internal/repository"
	"github.com/deppfellow/spoon/internal/server"
)

type Services struct {
	Auth       *AuthService
	BlockTypes *BlockTypeService
	Job        *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	authService := NewAuthService(s)

	var scopeCache ScopeCache
	if ttl := s.Config.Spoon.CacheTTL; ttl > 0 && s.Redis != nil {
		scopeCache = cache.NewBlockTypeCache(s.Redis, ttl)
	}

	var jobs TaskEnqueuer
	if s.Config.Spoon.PruneLayouts && s.Job != nil {
		jobs = s.Job.Client
	}

	blockTypes := NewBlockTypeService(
		s.Logger,
		repos.BlockTypes,
		fieldlayout.NewAssembler(),
		scopeCache,
		jobs,
	)

	return &Services{
		Auth:       authService,
		BlockTypes: blockTypes,
		Job:        s.Job,
	}, nil
}
