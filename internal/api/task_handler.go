package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inboxrelay/relay-api/internal/api/shared"
	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/store"
	"github.com/inboxrelay/relay-api/internal/task"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// TaskHandler serves the task inspection and enqueue endpoints.
type TaskHandler struct {
	tasks    store.TaskStore
	registry *task.Registry
	validate *validator.Validate
	logger   *slog.Logger
}

// NewTaskHandler creates a TaskHandler. The registry is consulted only to
// warn about enqueues of unregistered types; such tasks are stored anyway
// and stay pending until a handler exists.
func NewTaskHandler(tasks store.TaskStore, registry *task.Registry, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		registry: registry,
		validate: validator.New(),
		logger:   logger.With("component", "task_handler"),
	}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req EnqueueTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task type is required")
		return
	}

	if _, ok := h.registry.Lookup(req.Type); !ok {
		h.logger.Warn("enqueueing task with no registered handler", "task_type", req.Type)
	}

	created, err := h.tasks.Enqueue(r.Context(), req.Type, req.Payload)
	if err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to enqueue task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(created))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	found, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(found))
}

// List handles GET /api/tasks with optional status filter and pagination.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var statusFilter *domain.TaskStatus
	if raw := query.Get("status"); raw != "" {
		status, ok := domain.ParseTaskStatus(raw)
		if !ok {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
			return
		}
		statusFilter = &status
	}

	page, err := positiveIntParam(query.Get("page"), 1)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid page")
		return
	}
	limit, err := positiveIntParam(query.Get("limit"), defaultPageLimit)
	if err != nil || limit > maxPageLimit {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}

	offset := (page - 1) * limit
	tasks, err := h.tasks.List(r.Context(), statusFilter, offset, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}
	total, err := h.tasks.Count(r.Context(), statusFilter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to count tasks", err)
		return
	}

	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskResponse(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks:      out,
		Pagination: PaginationMeta{Total: total, Page: page, Limit: limit},
	})
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.tasks.StatusCounts(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load stats", err)
		return
	}

	resp := TaskStatsResponse{
		Pending:    counts[domain.TaskStatusPending],
		InProgress: counts[domain.TaskStatusRunning],
		Completed:  counts[domain.TaskStatusCompleted],
		Failed:     counts[domain.TaskStatusFailed],
	}
	resp.Total = resp.Pending + resp.InProgress + resp.Completed + resp.Failed

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// positiveIntParam parses a positive integer query parameter, substituting
// the fallback when the parameter is absent.
func positiveIntParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
