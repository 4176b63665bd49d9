package job

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	pruned int64
	err    error
	calls  int
}

func (f *fakePruner) PruneOrphanedLayouts(ctx context.Context) (int64, error) {
	f.calls++
	return f.pruned, f.err
}

func newTestJobService() *JobService {
	logger := zerolog.Nop()
	return &JobService{logger: &logger}
}

func TestNewPruneLayoutsTask(t *testing.T) {
	task := NewPruneLayoutsTask()
	assert.Equal(t, TaskPruneLayouts, task.Type())
	assert.Empty(t, task.Payload())
}

func TestHandlePruneLayoutsTask(t *testing.T) {
	t.Run("prunes", func(t *testing.T) {
		j := newTestJobService()
		pruner := &fakePruner{pruned: 3}
		j.InitHandlers(pruner)

		err := j.handlePruneLayoutsTask(context.Background(), NewPruneLayoutsTask())

		require.NoError(t, err)
		assert.Equal(t, 1, pruner.calls)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		j := newTestJobService()
		boom := errors.New("connection reset")
		j.InitHandlers(&fakePruner{err: boom})

		err := j.handlePruneLayoutsTask(context.Background(), NewPruneLayoutsTask())

		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("not initialized", func(t *testing.T) {
		j := newTestJobService()

		err := j.handlePruneLayoutsTask(context.Background(), NewPruneLayoutsTask())

		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestMuxRoutesPruneTask(t *testing.T) {
	j := newTestJobService()
	pruner := &fakePruner{}
	j.InitHandlers(pruner)

	err := j.mux().ProcessTask(context.Background(), NewPruneLayoutsTask())

	require.NoError(t, err)
	assert.Equal(t, 1, pruner.calls)
}
