package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/platform/logger"
	"github.com/inboxrelay/relay-api/internal/store"
)

// AccountStore implements store.AccountStore using PostgreSQL.
type AccountStore struct {
	db store.DBTX
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(db store.DBTX) *AccountStore {
	return &AccountStore{db: db}
}

// Upsert inserts a watched account or refreshes the session of an existing
// (customer_id, username) row. Check progress (last_message_id,
// last_checked_at) survives a re-registration.
func (s *AccountStore) Upsert(ctx context.Context, account *domain.WatchedAccount) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO watched_accounts (customer_id, username, session)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, username)
		DO UPDATE SET session = EXCLUDED.session, updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		account.CustomerID,
		account.Username,
		account.Session,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		logger.FromContext(ctx).Error("failed to upsert watched account",
			"customer_id", account.CustomerID,
			"username", account.Username,
			"error", err)
		return fmt.Errorf("failed to upsert watched account: %w", err)
	}

	return nil
}

// GetByID returns the watched account with the given ID.
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*domain.WatchedAccount, error) {
	query := `
		SELECT id, customer_id, username, session, last_message_id, last_checked_at,
		       created_at, updated_at
		FROM watched_accounts
		WHERE id = $1
	`

	var (
		account       domain.WatchedAccount
		lastMessageID sql.NullString
		lastCheckedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.CustomerID,
		&account.Username,
		&account.Session,
		&lastMessageID,
		&lastCheckedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get watched account: %w", err)
	}

	if lastMessageID.Valid {
		account.LastMessageID = &lastMessageID.String
	}
	account.LastCheckedAt = nullTimePtr(lastCheckedAt)

	return &account, nil
}

// DueForCheck returns the IDs of accounts eligible for an inbox check. An
// account qualifies when it was never checked or its last check is older than
// the cooldown, and its owning customer is subscribed with a push token.
func (s *AccountStore) DueForCheck(ctx context.Context, cooldown time.Duration) ([]int64, error) {
	query := `
		SELECT a.id
		FROM watched_accounts a
		JOIN customers c ON c.customer_id = a.customer_id
		WHERE (a.last_checked_at IS NULL OR a.last_checked_at <= $1)
		  AND c.is_subscribed = TRUE
		  AND c.push_token IS NOT NULL
		ORDER BY a.id ASC
	`

	cutoff := time.Now().UTC().Add(-cooldown)
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts due for check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account ids: %w", err)
	}

	return ids, nil
}

// MarkChecked stamps last_checked_at for the account.
func (s *AccountStore) MarkChecked(ctx context.Context, id int64) error {
	query := `
		UPDATE watched_accounts
		SET last_checked_at = now(), updated_at = now()
		WHERE id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark account checked: %w", err)
	}

	return nil
}

// RecordMessage stamps last_checked_at and the newest notified inbox item.
func (s *AccountStore) RecordMessage(ctx context.Context, id int64, lastMessageID string) error {
	query := `
		UPDATE watched_accounts
		SET last_message_id = $2, last_checked_at = now(), updated_at = now()
		WHERE id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, id, lastMessageID); err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	return nil
}
