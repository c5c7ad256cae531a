package store

import (
	"context"
	"time"

	"github.com/inboxrelay/relay-api/internal/domain"
)

// AccountStore persists the Reddit accounts whose inboxes are monitored.
type AccountStore interface {
	// Upsert inserts a watched account or, when the customer already watches
	// that username, refreshes its session credential. Registration is
	// re-run by the app on every launch, so this must be safe to repeat.
	Upsert(ctx context.Context, account *domain.WatchedAccount) error

	// GetByID returns the account with the given ID, or ErrAccountNotFound.
	GetByID(ctx context.Context, id int64) (*domain.WatchedAccount, error)

	// DueForCheck returns the IDs of accounts eligible for an inbox check:
	// never checked or not checked within the cooldown window, owned by a
	// subscribed customer with a registered push token.
	DueForCheck(ctx context.Context, cooldown time.Duration) ([]int64, error)

	// MarkChecked stamps last_checked_at for the account.
	MarkChecked(ctx context.Context, id int64) error

	// RecordMessage stamps last_checked_at and records the newest inbox item
	// the customer has been notified about.
	RecordMessage(ctx context.Context, id int64, lastMessageID string) error
}
