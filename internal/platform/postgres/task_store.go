package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/platform/logger"
	"github.com/inboxrelay/relay-api/internal/store"
)

// taskColumns is the column list shared by every task SELECT.
const taskColumns = `id, type, payload, error, started_at, completed_at, failed_at, created_at, updated_at`

// TaskStore implements store.TaskStore using PostgreSQL. All lifecycle
// transitions are single-statement UPDATEs guarded against terminal states,
// so they are atomic at the row level and safe under the concurrent access of
// the worker pool, the producers and the retention sweeper.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// statusPredicate translates a derived status into the SQL condition over the
// lifecycle timestamps that defines it.
func statusPredicate(status domain.TaskStatus) string {
	switch status {
	case domain.TaskStatusPending:
		return "started_at IS NULL"
	case domain.TaskStatusRunning:
		return "started_at IS NOT NULL AND completed_at IS NULL AND failed_at IS NULL"
	case domain.TaskStatusCompleted:
		return "completed_at IS NOT NULL"
	case domain.TaskStatusFailed:
		return "failed_at IS NOT NULL"
	default:
		// Unreachable for statuses produced by domain.ParseTaskStatus.
		return "FALSE"
	}
}

// finishedPredicate matches terminal rows.
const finishedPredicate = "(completed_at IS NOT NULL OR failed_at IS NOT NULL)"

// Enqueue inserts a new pending task and returns the stored record.
func (s *TaskStore) Enqueue(
	ctx context.Context,
	taskType string,
	payload json.RawMessage,
) (*domain.Task, error) {
	candidate := domain.Task{Type: taskType, Payload: payload}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO tasks (type, payload)
		VALUES ($1, $2)
		RETURNING %s
	`, taskColumns)

	var payloadArg any
	if len(payload) > 0 {
		payloadArg = []byte(payload)
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskType, payloadArg))
	if err != nil {
		logger.FromContext(ctx).Error("failed to enqueue task",
			"task_type", taskType,
			"error", err)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return task, nil
}

// GetByID returns the task with the given ID.
func (s *TaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// GetPendingBatch returns up to limit pending tasks, oldest first. It does
// not claim them; rows stay pending until MarkStarted.
func (s *TaskStore) GetPendingBatch(ctx context.Context, limit int) ([]*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE started_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`, taskColumns)

	return s.queryTasks(ctx, query, limit)
}

// GetInterrupted returns tasks left in progress by a previous process
// instance: started but neither completed nor failed.
func (s *TaskStore) GetInterrupted(ctx context.Context) ([]*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE started_at IS NOT NULL AND completed_at IS NULL AND failed_at IS NULL
		ORDER BY id ASC
	`, taskColumns)

	return s.queryTasks(ctx, query)
}

// MarkStarted stamps started_at. The guards make the call idempotent and
// refuse rows that already reached a terminal state.
func (s *TaskStore) MarkStarted(ctx context.Context, id int64) error {
	query := `
		UPDATE tasks
		SET started_at = now(), updated_at = now()
		WHERE id = $1
		  AND started_at IS NULL
		  AND completed_at IS NULL
		  AND failed_at IS NULL
	`
	return s.applyTransition(ctx, "started", query, id)
}

// MarkCompleted stamps completed_at on a non-terminal row.
func (s *TaskStore) MarkCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE tasks
		SET completed_at = now(), updated_at = now()
		WHERE id = $1
		  AND completed_at IS NULL
		  AND failed_at IS NULL
	`
	return s.applyTransition(ctx, "completed", query, id)
}

// MarkFailed stamps failed_at and records the error text on a non-terminal row.
func (s *TaskStore) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE tasks
		SET failed_at = now(), error = $2, updated_at = now()
		WHERE id = $1
		  AND completed_at IS NULL
		  AND failed_at IS NULL
	`
	return s.applyTransition(ctx, "failed", query, id, errorMessage)
}

// applyTransition runs a guarded lifecycle UPDATE. Zero rows affected means
// the row is gone, already transitioned or terminal; per the idempotency
// contract that is a no-op, not an error.
func (s *TaskStore) applyTransition(
	ctx context.Context,
	transition string,
	query string,
	id int64,
	extraArgs ...any,
) error {
	log := logger.FromContext(ctx)

	args := append([]any{id}, extraArgs...)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task lifecycle",
			"task_id", id,
			"transition", transition,
			"error", err)
		return fmt.Errorf("failed to mark task %s: %w", transition, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("task lifecycle transition not applied",
			"task_id", id,
			"transition", transition)
	}

	return nil
}

// List returns a page of tasks filtered by derived status, ordered by ID.
func (s *TaskStore) List(
	ctx context.Context,
	status *domain.TaskStatus,
	offset, limit int,
) ([]*domain.Task, error) {
	where := "TRUE"
	if status != nil {
		where = statusPredicate(*status)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE %s
		ORDER BY id ASC
		LIMIT $1 OFFSET $2
	`, taskColumns, where)

	return s.queryTasks(ctx, query, limit, offset)
}

// Count returns the number of tasks matching the status filter.
func (s *TaskStore) Count(ctx context.Context, status *domain.TaskStatus) (int64, error) {
	where := "TRUE"
	if status != nil {
		where = statusPredicate(*status)
	}

	var count int64
	query := fmt.Sprintf(`SELECT count(*) FROM tasks WHERE %s`, where)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// StatusCounts returns the number of tasks in each derived state in a single
// pass over the table.
func (s *TaskStore) StatusCounts(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE started_at IS NULL),
			count(*) FILTER (WHERE started_at IS NOT NULL AND completed_at IS NULL AND failed_at IS NULL),
			count(*) FILTER (WHERE completed_at IS NOT NULL),
			count(*) FILTER (WHERE failed_at IS NOT NULL)
		FROM tasks
	`

	var pending, running, completed, failed int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&pending, &running, &completed, &failed); err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	return map[domain.TaskStatus]int64{
		domain.TaskStatusPending:   pending,
		domain.TaskStatusRunning:   running,
		domain.TaskStatusCompleted: completed,
		domain.TaskStatusFailed:    failed,
	}, nil
}

// CountFinished returns the number of terminal tasks.
func (s *TaskStore) CountFinished(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT count(*) FROM tasks WHERE ` + finishedPredicate
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count finished tasks: %w", err)
	}

	return count, nil
}

// OldestFinishedIDs returns up to limit IDs of terminal tasks ordered by
// created_at ascending, the deletion order of the retention sweep.
func (s *TaskStore) OldestFinishedIDs(ctx context.Context, limit int) ([]int64, error) {
	query := `
		SELECT id FROM tasks
		WHERE ` + finishedPredicate + `
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest finished tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task ids: %w", err)
	}

	return ids, nil
}

// DeleteByIDs physically removes the given rows and reports how many were
// deleted. Deleting already-removed IDs is not an error, which keeps the
// retention sweep safe to interrupt and re-run.
func (s *TaskStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM tasks WHERE id = ANY($1)`
	result, err := s.db.ExecContext(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// queryTasks runs a multi-row task query and scans the results.
func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query tasks", "error", err)
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps one task row onto a domain.Task, converting the nullable
// columns into pointers.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		payload     []byte
		errMsg      sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
		failedAt    sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Type,
		&payload,
		&errMsg,
		&startedAt,
		&completedAt,
		&failedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if payload != nil {
		task.Payload = json.RawMessage(payload)
	}
	if errMsg.Valid {
		task.Error = &errMsg.String
	}
	task.StartedAt = nullTimePtr(startedAt)
	task.CompletedAt = nullTimePtr(completedAt)
	task.FailedAt = nullTimePtr(failedAt)

	return &task, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
