package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxrelay/relay-api/internal/store"
)

// RetentionSweeper keeps the number of finished (completed or failed) tasks
// at or below a fixed ceiling by deleting the oldest finished rows in
// batches. Pending and in-progress tasks are never touched.
type RetentionSweeper struct {
	tasks       store.TaskStore
	interval    time.Duration
	maxFinished int64
	batchSize   int
	logger      *slog.Logger
}

func NewRetentionSweeper(
	tasks store.TaskStore,
	interval time.Duration,
	maxFinished int64,
	batchSize int,
	logger *slog.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		tasks:       tasks,
		interval:    interval,
		maxFinished: maxFinished,
		batchSize:   batchSize,
		logger:      logger.With("component", "retention_sweeper"),
	}
}

func (s *RetentionSweeper) Name() string { return "retention_sweep" }

func (s *RetentionSweeper) Interval() time.Duration { return s.interval }

// Run deletes oldest-first until exactly maxFinished finished tasks remain.
// The final batch is capped to the remaining excess so the sweep never
// undershoots the ceiling.
func (s *RetentionSweeper) Run(ctx context.Context) error {
	finished, err := s.tasks.CountFinished(ctx)
	if err != nil {
		return fmt.Errorf("failed to count finished tasks: %w", err)
	}

	excess := finished - s.maxFinished
	if excess <= 0 {
		s.logger.Debug("no cleanup needed", "finished", finished)
		return nil
	}

	s.logger.Info("finished task count over limit, cleaning up",
		"finished", finished, "limit", s.maxFinished, "excess", excess)

	var deleted int64
	for excess > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		limit := s.batchSize
		if excess < int64(limit) {
			limit = int(excess)
		}

		ids, err := s.tasks.OldestFinishedIDs(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to select tasks for deletion: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		n, err := s.tasks.DeleteByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to delete tasks: %w", err)
		}
		excess -= n
		deleted += n
	}

	s.logger.Info("retention sweep complete", "deleted", deleted)
	return nil
}
