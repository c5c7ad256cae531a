package domain

import (
	"errors"
	"time"
)

// Customer validation errors
var (
	ErrEmptyCustomerID = errors.New("customer ID cannot be empty")
)

// Customer represents a registered app customer. CustomerID is the external
// billing identifier (assigned by the subscription provider), distinct from
// the row ID. PushToken is nil until the customer registers a device.
type Customer struct {
	ID           int64     `json:"id"`
	CustomerID   string    `json:"customer_id"`
	IsSubscribed bool      `json:"is_subscribed"`
	PushToken    *string   `json:"push_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks if the Customer has valid data.
func (c *Customer) Validate() error {
	if c.CustomerID == "" {
		return ErrEmptyCustomerID
	}
	return nil
}

// CanReceiveChecks reports whether the customer is eligible for inbox checks:
// an active subscription and a registered push destination.
func (c *Customer) CanReceiveChecks() bool {
	return c.IsSubscribed && c.PushToken != nil && *c.PushToken != ""
}
