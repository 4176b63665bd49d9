package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/spoon/internal/lib/job"
	"github.com/deppfellow/spoon/internal/model"
	"github.com/deppfellow/spoon/internal/repository"
	"github.com/deppfellow/spoon/internal/sqlerr"
	"github.com/hibiken/asynq"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingBlockTypeID is returned when no association id was posted.
	ErrMissingBlockTypeID = errors.New("spoonedBlockTypeId is required")
	// ErrBlockTypeNotFound is returned when the posted association id does not exist.
	ErrBlockTypeNotFound = errors.New("spooned block type not found")
)

// InvalidRowsError reports rows that failed validation during a save.
// Nothing is written when it is returned.
type InvalidRowsError struct {
	Failed int
	Total  int
	First  error
}

func (e *InvalidRowsError) Error() string {
	return fmt.Sprintf("%d of %d block types failed validation: %v", e.Failed, e.Total, e.First)
}

func (e *InvalidRowsError) Unwrap() error {
	return e.First
}

// BlockTypeStore persists block type associations.
type BlockTypeStore interface {
	InScope(ctx context.Context, scope model.Scope, fn func(tx repository.ScopeTx) error) error
	DeleteByScope(ctx context.Context, scope model.Scope) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.BlockType, error)
	SaveFieldLayout(ctx context.Context, bt *model.BlockType) error
	ListByScope(ctx context.Context, scope model.Scope) ([]model.BlockType, error)
}

// FieldLayoutAssembler builds a layout from a posted tab -> field ids mapping.
type FieldLayoutAssembler interface {
	Assemble(posted model.IDGroups, required []int64) (*model.FieldLayout, error)
}

// ScopeCache caches the grouped associations of a scope. Set only stores
// groups if no Invalidate happened since gen was read from Generation.
type ScopeCache interface {
	Get(ctx context.Context, scope model.Scope) ([]model.BlockTypeGroup, bool, error)
	Generation(ctx context.Context, scope model.Scope) (int64, error)
	Set(ctx context.Context, scope model.Scope, gen int64, groups []model.BlockTypeGroup) (bool, error)
	Invalidate(ctx context.Context, scope model.Scope) error
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// BlockTypeService implements the block type grouping operations. cache and
// jobs are optional.
type BlockTypeService struct {
	logger    *zerolog.Logger
	store     BlockTypeStore
	assembler FieldLayoutAssembler
	cache     ScopeCache
	jobs      TaskEnqueuer
}

func NewBlockTypeService(
	logger *zerolog.Logger,
	store BlockTypeStore,
	assembler FieldLayoutAssembler,
	cache ScopeCache,
	jobs TaskEnqueuer,
) *BlockTypeService {
	return &BlockTypeService{
		logger:    logger,
		store:     store,
		assembler: assembler,
		cache:     cache,
		jobs:      jobs,
	}
}

// BuildRows flattens posted groups into rows, in posted order. Layouts already
// attached to a block type in the scope are carried over.
func BuildRows(scope model.Scope, groups model.IDGroups, layoutIDs map[int64]int64) []model.BlockType {
	rows := make([]model.BlockType, 0, groups.Len())

	for _, group := range groups {
		name := group.Name()
		for _, blockTypeID := range group.IDs {
			row := model.BlockType{
				FieldID:           scope.FieldID,
				MatrixBlockTypeID: blockTypeID,
				GroupName:         name,
				Context:           scope.Context,
			}
			if layoutID, ok := layoutIDs[blockTypeID]; ok {
				row.FieldLayoutID = &layoutID
			}
			rows = append(rows, row)
		}
	}

	return rows
}

// SaveBlockTypes replaces every association of scope with groups.
//
// The replace is atomic: either every row is valid and the scope holds exactly
// the posted set afterwards, or nothing changes. Empty groups clear the scope.
func (s *BlockTypeService) SaveBlockTypes(ctx context.Context, scope model.Scope, groups model.IDGroups) error {
	log := s.loggerFor(ctx, scope)
	var saved int

	err := s.store.InScope(ctx, scope, func(tx repository.ScopeTx) error {
		layoutIDs, err := tx.FieldLayoutIDs(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.DeleteAll(ctx); err != nil {
			return err
		}

		rows := BuildRows(scope, groups, layoutIDs)

		invalid := &InvalidRowsError{Total: len(rows)}
		for i := range rows {
			if err := rows[i].Validate(); err != nil {
				invalid.Failed++
				if invalid.First == nil {
					invalid.First = fmt.Errorf("block type %d in %q: %w", rows[i].MatrixBlockTypeID, rows[i].GroupName, err)
				}
			}
		}
		if invalid.Failed > 0 {
			return invalid
		}

		for i := range rows {
			if err := tx.Insert(ctx, &rows[i]); err != nil {
				return err
			}
		}
		saved = len(rows)
		return nil
	})
	if err != nil {
		s.logStoreError(log, err, "failed to save block types")
		return err
	}

	log.Info().Int("saved", saved).Int("groups", len(groups)).Msg("saved block types")
	s.afterWrite(ctx, log, scope)
	return nil
}

// DeleteBlockTypes removes every association of scope. Other scopes are untouched.
func (s *BlockTypeService) DeleteBlockTypes(ctx context.Context, scope model.Scope) error {
	log := s.loggerFor(ctx, scope)

	deleted, err := s.store.DeleteByScope(ctx, scope)
	if err != nil {
		s.logStoreError(log, err, "failed to delete block types")
		return err
	}

	log.Info().Int64("deleted", deleted).Msg("deleted block types")
	s.afterWrite(ctx, log, scope)
	return nil
}

// SaveFieldLayout assembles a layout from posted tabs and attaches it to the
// association id. A missing or unknown id fails without touching the store.
func (s *BlockTypeService) SaveFieldLayout(ctx context.Context, id int64, posted model.IDGroups, required []int64) error {
	log := s.loggerFrom(ctx).With().Int64("spooned_block_type_id", id).Logger()

	if id <= 0 {
		log.Warn().Msg("no spooned block type id posted")
		return ErrMissingBlockTypeID
	}

	bt, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().Msg("spooned block type not found")
		return ErrBlockTypeNotFound
	}
	if err != nil {
		s.logStoreError(&log, err, "failed to load spooned block type")
		return err
	}

	layout, err := s.assembler.Assemble(posted, required)
	if err != nil {
		log.Warn().Err(err).Msg("could not assemble field layout")
		return err
	}
	bt.SetFieldLayout(layout)

	if err := s.store.SaveFieldLayout(ctx, bt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn().Msg("spooned block type removed before its layout was saved")
			return ErrBlockTypeNotFound
		}
		s.logStoreError(&log, err, "failed to save field layout")
		return err
	}

	log.Info().
		Int64("field_layout_id", *bt.FieldLayoutID).
		Int("tabs", len(layout.Tabs)).
		Msg("saved field layout")
	s.afterWrite(ctx, &log, bt.Scope())
	return nil
}

// ListBlockTypes returns the associations of scope grouped in display order.
func (s *BlockTypeService) ListBlockTypes(ctx context.Context, scope model.Scope) ([]model.BlockTypeGroup, error) {
	log := s.loggerFor(ctx, scope)

	cacheable := false
	var gen int64
	if s.cache != nil {
		groups, ok, err := s.cache.Get(ctx, scope)
		if err != nil {
			log.Warn().Err(err).Msg("block type cache read failed")
		}
		if ok {
			return groups, nil
		}

		// The generation must be read before the rows: a write committing
		// in between bumps it and the stale listing is not cached.
		gen, err = s.cache.Generation(ctx, scope)
		if err != nil {
			log.Warn().Err(err).Msg("block type cache generation read failed")
		}
		cacheable = err == nil
	}

	rows, err := s.store.ListByScope(ctx, scope)
	if err != nil {
		s.logStoreError(log, err, "failed to list block types")
		return nil, sqlerr.HandleError(err)
	}

	groups := model.GroupBlockTypes(rows)

	if cacheable {
		stored, err := s.cache.Set(ctx, scope, gen, groups)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("block type cache write failed")
		case !stored:
			log.Debug().Int64("generation", gen).Msg("scope changed while listing, not caching")
		}
	}

	return groups, nil
}

// afterWrite drops the scope's cached listing and schedules layout cleanup.
// Failures are logged only; the write itself already committed.
func (s *BlockTypeService) afterWrite(ctx context.Context, log *zerolog.Logger, scope model.Scope) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, scope); err != nil {
			log.Warn().Err(err).Msg("block type cache invalidation failed")
		}
	}

	if s.jobs != nil {
		if _, err := s.jobs.EnqueueContext(ctx, job.NewPruneLayoutsTask()); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			log.Warn().Err(err).Msg("could not enqueue field layout prune")
		}
	}
}

func (s *BlockTypeService) logStoreError(log *zerolog.Logger, err error, msg string) {
	var invalid *InvalidRowsError
	if errors.As(err, &invalid) {
		log.Warn().
			Int("failed", invalid.Failed).
			Int("total", invalid.Total).
			Err(invalid.First).
			Msg(msg)
		return
	}

	log.Error().
		Stack().
		Err(pkgerrors.WithStack(err)).
		Str("sql_code", string(sqlerr.ErrCode(err))).
		Msg(msg)
}

func (s *BlockTypeService) loggerFor(ctx context.Context, scope model.Scope) *zerolog.Logger {
	log := s.loggerFrom(ctx).With().
		Str("context", scope.Context).
		Int64("field_id", scope.FieldID).
		Logger()
	return &log
}

// loggerFrom prefers the request logger carried by ctx.
func (s *BlockTypeService) loggerFrom(ctx context.Context) *zerolog.Logger {
	if log := zerolog.Ctx(ctx); log.GetLevel() != zerolog.Disabled {
		return log
	}
	return s.logger
}
