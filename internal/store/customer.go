package store

import (
	"context"

	"github.com/inboxrelay/relay-api/internal/domain"
)

// CustomerStore persists app customers and their subscription state.
type CustomerStore interface {
	// Create inserts a new customer. Returns ErrCustomerExists if the billing
	// ID is already registered.
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByCustomerID returns the customer with the given external billing
	// ID, or ErrCustomerNotFound.
	GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error)

	// ListSubscribedIDs returns the billing IDs of every customer currently
	// flagged as subscribed. This is the population the subscription refresh
	// producer re-verifies.
	ListSubscribedIDs(ctx context.Context) ([]string, error)

	// SetSubscribed writes the refreshed subscription flag back for the
	// given billing ID.
	SetSubscribed(ctx context.Context, customerID string, subscribed bool) error

	// SetPushToken registers or replaces the customer's push destination.
	SetPushToken(ctx context.Context, customerID string, pushToken string) error
}
