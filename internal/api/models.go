package api

import (
	"encoding/json"
	"time"

	"github.com/inboxrelay/relay-api/internal/domain"
)

// LoginRequest is the dashboard login request body.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the minted access token.
type LoginResponse struct {
	Token string `json:"token"`
}

// EnqueueTaskRequest is the body of POST /api/tasks.
type EnqueueTaskRequest struct {
	Type    string          `json:"type"    validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// TaskResponse is the wire form of a task record. Status is the derived
// state; the lifecycle timestamps are null until reached.
type TaskResponse struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      string          `json:"status"`
	Error       *string         `json:"error"`
	StartedAt   *time.Time      `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt"`
	FailedAt    *time.Time      `json:"failedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PaginationMeta describes one page of a list response.
type PaginationMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// TaskListResponse is the envelope of GET /api/tasks.
type TaskListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	Pagination PaginationMeta `json:"pagination"`
}

// TaskStatsResponse is the body of GET /api/tasks/stats.
type TaskStatsResponse struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// RegisterCustomerRequest is the body of POST /api/customers.
type RegisterCustomerRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
}

// RegisterAccountRequest is one account entry in a notifications registration.
type RegisterAccountRequest struct {
	Username string `json:"username" validate:"required"`
	Session  string `json:"session"  validate:"required"`
}

// RegisterNotificationsRequest is the body of POST /api/notifications.
type RegisterNotificationsRequest struct {
	CustomerID string                   `json:"customerId" validate:"required"`
	PushToken  string                   `json:"pushToken"  validate:"required"`
	Accounts   []RegisterAccountRequest `json:"accounts"   validate:"dive"`
}

// CustomerResponse is the wire form of a customer record. The push token is
// only echoed as present or absent, never as its value.
type CustomerResponse struct {
	ID           int64     `json:"id"`
	CustomerID   string    `json:"customerId"`
	IsSubscribed bool      `json:"isSubscribed"`
	HasPushToken bool      `json:"hasPushToken"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterNotificationsResponse is the body of a successful notifications
// registration.
type RegisterNotificationsResponse struct {
	Customer CustomerResponse `json:"customer"`
	Accounts int              `json:"accounts"`
}

// newTaskResponse converts a stored task to its wire form.
func newTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Type:        t.Type,
		Payload:     t.Payload,
		Status:      string(t.Status()),
		Error:       t.Error,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		FailedAt:    t.FailedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// newCustomerResponse converts a stored customer to its wire form.
func newCustomerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:           c.ID,
		CustomerID:   c.CustomerID,
		IsSubscribed: c.IsSubscribed,
		HasPushToken: c.PushToken != nil && *c.PushToken != "",
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
