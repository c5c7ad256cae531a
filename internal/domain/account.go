package domain

import (
	"errors"
	"time"
)

// WatchedAccount validation errors
var (
	ErrEmptyUsername = errors.New("account username cannot be empty")
	ErrEmptySession  = errors.New("account session cannot be empty")
)

// WatchedAccount is a Reddit account whose inbox the engine monitors on
// behalf of a customer. Session is an opaque credential blob consumed by the
// inbox client. LastMessageID marks the newest inbox item already notified;
// LastCheckedAt drives the check cooldown and is nil until the first check.
type WatchedAccount struct {
	ID            int64      `json:"id"`
	CustomerID    string     `json:"customer_id"`
	Username      string     `json:"username"`
	Session       string     `json:"-"` // Never expose credentials in JSON
	LastMessageID *string    `json:"last_message_id,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validate checks if the WatchedAccount has valid data.
func (a *WatchedAccount) Validate() error {
	if a.CustomerID == "" {
		return ErrEmptyCustomerID
	}
	if a.Username == "" {
		return ErrEmptyUsername
	}
	if a.Session == "" {
		return ErrEmptySession
	}
	return nil
}
