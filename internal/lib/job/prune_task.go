package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskPruneLayouts deletes field layouts no block type association uses.
const TaskPruneLayouts = "spoon:layouts:prune"

// LayoutPruner is implemented by the block type repository.
type LayoutPruner interface {
	PruneOrphanedLayouts(ctx context.Context) (int64, error)
}

// NewPruneLayoutsTask builds the prune task. Tasks enqueued within the same
// minute collapse into one.
func NewPruneLayoutsTask() *asynq.Task {
	return asynq.NewTask(
		TaskPruneLayouts,
		nil,
		asynq.MaxRetry(3),
		asynq.Queue("low"),
		asynq.Timeout(30*time.Second),
		asynq.Unique(time.Minute),
	)
}

// InitHandlers hands the task handlers their dependencies. Must be called
// before Start.
func (j *JobService) InitHandlers(pruner LayoutPruner) {
	j.pruner = pruner
}

func (j *JobService) handlePruneLayoutsTask(ctx context.Context, t *asynq.Task) error {
	if j.pruner == nil {
		return fmt.Errorf("%s: %w", t.Type(), asynq.SkipRetry)
	}

	pruned, err := j.pruner.PruneOrphanedLayouts(ctx)
	if err != nil {
		j.logger.Error().
			Str("type", t.Type()).
			Err(err).
			Msg("Failed to prune field layouts")
		return err
	}

	j.logger.Info().
		Str("type", t.Type()).
		Int64("pruned", pruned).
		Msg("Pruned orphaned field layouts")

	return nil
}
