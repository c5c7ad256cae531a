package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inboxrelay/relay-api/internal/store"
)

// InterruptedTaskError is the error text recovery stamps onto tasks a crashed
// process left mid-execution. Exact wording is load-bearing: the dashboard
// filters on it.
const InterruptedTaskError = "Task was interrupted due to server restart"

// RecoverInterrupted repairs tasks left in the running state by a previous
// process instance, marking each failed with InterruptedTaskError. It must
// run to completion before the worker pool starts; since a single process
// owns the queue, every running row at startup is a crash leftover. Any error
// is returned to the caller, which must treat it as fatal: starting the pool
// with unreconciled running rows would break the at-most-once guarantee.
func RecoverInterrupted(ctx context.Context, taskStore store.TaskStore, log *slog.Logger) error {
	interrupted, err := taskStore.GetInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan for interrupted tasks: %w", err)
	}

	for _, t := range interrupted {
		log.Info("marking interrupted task as failed",
			"task_id", t.ID,
			"task_type", t.Type)
		if err := taskStore.MarkFailed(ctx, t.ID, InterruptedTaskError); err != nil {
			return fmt.Errorf("failed to mark interrupted task %d as failed: %w", t.ID, err)
		}
	}

	log.Info("task recovery complete", "recovered_count", len(interrupted))
	return nil
}
