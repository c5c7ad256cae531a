package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Common validation errors
var (
	ErrEmptyTaskType   = errors.New("task type cannot be empty")
	ErrInvalidPayload  = errors.New("task payload must be valid JSON")
	ErrConflictingTask = errors.New("task cannot be both completed and failed")
)

// TaskStatus is the derived state of a task. It is never stored; it is
// computed from the lifecycle timestamps on the record.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "in_progress"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// ParseTaskStatus converts a wire-format status string into a TaskStatus.
// Returns false for anything that is not one of the four known states.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return TaskStatus(s), true
	default:
		return "", false
	}
}

// Task is a durable record of one unit of background work. The store assigns
// the ID; the worker pool advances the lifecycle timestamps. A task whose
// CompletedAt or FailedAt is set is terminal and is never executed again.
type Task struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       *string         `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	FailedAt    *time.Time      `json:"failed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Status derives the task's state from its timestamps:
// no StartedAt means pending; StartedAt without a terminal timestamp means
// in progress; CompletedAt wins over FailedAt never both being set.
func (t *Task) Status() TaskStatus {
	switch {
	case t.CompletedAt != nil:
		return TaskStatusCompleted
	case t.FailedAt != nil:
		return TaskStatusFailed
	case t.StartedAt != nil:
		return TaskStatusRunning
	default:
		return TaskStatusPending
	}
}

// Finished reports whether the task has reached a terminal state.
func (t *Task) Finished() bool {
	return t.CompletedAt != nil || t.FailedAt != nil
}

// Validate checks the structural invariants of the record.
func (t *Task) Validate() error {
	if t.Type == "" {
		return ErrEmptyTaskType
	}

	if len(t.Payload) > 0 && !json.Valid(t.Payload) {
		return ErrInvalidPayload
	}

	if t.CompletedAt != nil && t.FailedAt != nil {
		return ErrConflictingTask
	}

	return nil
}
