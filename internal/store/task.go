package store

import (
	"context"
	"encoding/json"

	"github.com/inboxrelay/relay-api/internal/domain"
)

// TaskStore is the single durable home of task records. It must support
// concurrent readers and writers: the worker pool, every scheduler producer
// and the retention sweeper all touch it simultaneously, so every mutation
// here is atomic at the row level. Store errors are never retried at this
// layer; they propagate to the calling loop.
type TaskStore interface {
	// Enqueue inserts a new pending task and returns the stored record with
	// its assigned ID and timestamps.
	Enqueue(ctx context.Context, taskType string, payload json.RawMessage) (*domain.Task, error)

	// GetByID returns the task with the given ID, or ErrTaskNotFound.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// GetPendingBatch returns up to limit pending tasks in creation order
	// (oldest first). It has no side effects: rows are not claimed.
	GetPendingBatch(ctx context.Context, limit int) ([]*domain.Task, error)

	// GetInterrupted returns every task that was started but never finished,
	// i.e. rows left "in progress" by a crashed process instance.
	GetInterrupted(ctx context.Context) ([]*domain.Task, error)

	// MarkStarted, MarkCompleted and MarkFailed advance the task lifecycle.
	// Each is idempotent and refuses (no-ops) a transition out of a terminal
	// state; updated_at advances on every applied transition.
	MarkStarted(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error

	// List returns a page of tasks filtered by derived status (nil filter
	// means all), ordered by ID. Count returns the matching total for the
	// same filter.
	List(ctx context.Context, status *domain.TaskStatus, offset, limit int) ([]*domain.Task, error)
	Count(ctx context.Context, status *domain.TaskStatus) (int64, error)

	// StatusCounts returns the number of tasks in each derived state.
	StatusCounts(ctx context.Context) (map[domain.TaskStatus]int64, error)

	// CountFinished returns the number of terminal (completed or failed)
	// tasks; OldestFinishedIDs returns up to limit of their IDs ordered by
	// created_at ascending; DeleteByIDs physically removes rows and reports
	// how many were deleted. Together they implement the retention sweep.
	CountFinished(ctx context.Context) (int64, error)
	OldestFinishedIDs(ctx context.Context, limit int) ([]int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}
