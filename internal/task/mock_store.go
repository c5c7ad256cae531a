package task

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/store"
)

// MemoryTaskStore is an in-memory store.TaskStore used by tests across the
// engine's packages. It honors the same lifecycle guards as the Postgres
// implementation and supports per-method error injection.
type MemoryTaskStore struct {
	mu    sync.Mutex
	seq   int64
	tasks map[int64]*domain.Task

	// Error injection for failure-path tests.
	EnqueueErr        error
	GetPendingErr     error
	GetInterruptedErr error
	MarkStartedErr    error
	MarkFailedErr     error
	CountFinishedErr  error
	DeleteErr         error
	markStartedCalls  map[int64]int
}

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks:            make(map[int64]*domain.Task),
		markStartedCalls: make(map[int64]int),
	}
}

// Seed inserts a task record as-is, assigning an ID (and CreatedAt) when
// unset. It lets tests construct rows in arbitrary lifecycle states.
func (s *MemoryTaskStore) Seed(t *domain.Task) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		s.seq++
		t.ID = s.seq
	} else if t.ID > s.seq {
		s.seq = t.ID
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	clone := *t
	s.tasks[t.ID] = &clone
	return t
}

// Snapshot returns a copy of the stored record.
func (s *MemoryTaskStore) Snapshot(id int64) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	clone := *t
	return &clone, true
}

// MarkStartedCalls reports how many times MarkStarted ran for the task.
func (s *MemoryTaskStore) MarkStartedCalls(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markStartedCalls[id]
}

// Len returns the number of stored tasks.
func (s *MemoryTaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *MemoryTaskStore) Enqueue(
	_ context.Context,
	taskType string,
	payload json.RawMessage,
) (*domain.Task, error) {
	if s.EnqueueErr != nil {
		return nil, s.EnqueueErr
	}

	candidate := domain.Task{Type: taskType, Payload: payload}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now().UTC()
	t := &domain.Task{
		ID:        s.seq,
		Type:      taskType,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t

	clone := *t
	return &clone, nil
}

func (s *MemoryTaskStore) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	t, ok := s.Snapshot(id)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t, nil
}

// SetGetPendingErr swaps the injected prefetch error while the store is in
// concurrent use.
func (s *MemoryTaskStore) SetGetPendingErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetPendingErr = err
}

func (s *MemoryTaskStore) GetPendingBatch(_ context.Context, limit int) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetPendingErr != nil {
		return nil, s.GetPendingErr
	}

	pending := s.matching(func(t *domain.Task) bool { return t.StartedAt == nil })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryTaskStore) GetInterrupted(_ context.Context) ([]*domain.Task, error) {
	if s.GetInterruptedErr != nil {
		return nil, s.GetInterruptedErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.matching(func(t *domain.Task) bool {
		return t.StartedAt != nil && !t.Finished()
	}), nil
}

func (s *MemoryTaskStore) MarkStarted(_ context.Context, id int64) error {
	if s.MarkStartedErr != nil {
		return s.MarkStartedErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.markStartedCalls[id]++
	t, ok := s.tasks[id]
	if !ok || t.StartedAt != nil || t.Finished() {
		return nil
	}
	now := time.Now().UTC()
	t.StartedAt = &now
	t.UpdatedAt = now
	return nil
}

func (s *MemoryTaskStore) MarkCompleted(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Finished() {
		return nil
	}
	now := time.Now().UTC()
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

func (s *MemoryTaskStore) MarkFailed(_ context.Context, id int64, errorMessage string) error {
	if s.MarkFailedErr != nil {
		return s.MarkFailedErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Finished() {
		return nil
	}
	now := time.Now().UTC()
	t.FailedAt = &now
	t.Error = &errorMessage
	t.UpdatedAt = now
	return nil
}

func (s *MemoryTaskStore) List(
	_ context.Context,
	status *domain.TaskStatus,
	offset, limit int,
) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.matching(func(t *domain.Task) bool {
		return status == nil || t.Status() == *status
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryTaskStore) Count(_ context.Context, status *domain.TaskStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.matching(func(t *domain.Task) bool {
		return status == nil || t.Status() == *status
	}))), nil
}

func (s *MemoryTaskStore) StatusCounts(_ context.Context) (map[domain.TaskStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[domain.TaskStatus]int64{
		domain.TaskStatusPending:   0,
		domain.TaskStatusRunning:   0,
		domain.TaskStatusCompleted: 0,
		domain.TaskStatusFailed:    0,
	}
	for _, t := range s.tasks {
		counts[t.Status()]++
	}
	return counts, nil
}

func (s *MemoryTaskStore) CountFinished(_ context.Context) (int64, error) {
	if s.CountFinishedErr != nil {
		return 0, s.CountFinishedErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.tasks {
		if t.Finished() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryTaskStore) OldestFinishedIDs(_ context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	finished := s.matching(func(t *domain.Task) bool { return t.Finished() })
	sort.Slice(finished, func(i, j int) bool {
		if finished[i].CreatedAt.Equal(finished[j].CreatedAt) {
			return finished[i].ID < finished[j].ID
		}
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	if len(finished) > limit {
		finished = finished[:limit]
	}
	ids := make([]int64, len(finished))
	for i, t := range finished {
		ids[i] = t.ID
	}
	return ids, nil
}

func (s *MemoryTaskStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := s.tasks[id]; ok {
			delete(s.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

// matching returns copies of the tasks satisfying the predicate, in ID order.
// Callers must hold s.mu.
func (s *MemoryTaskStore) matching(pred func(*domain.Task) bool) []*domain.Task {
	var out []*domain.Task
	for _, t := range s.tasks {
		if pred(t) {
			clone := *t
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Compile-time interface check.
var _ store.TaskStore = (*MemoryTaskStore)(nil)
