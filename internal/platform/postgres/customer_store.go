package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/platform/logger"
	"github.com/inboxrelay/relay-api/internal/store"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint violations.
const uniqueViolationCode = "23505"

// CustomerStore implements store.CustomerStore using PostgreSQL.
type CustomerStore struct {
	db store.DBTX
}

// NewCustomerStore creates a new CustomerStore.
func NewCustomerStore(db store.DBTX) *CustomerStore {
	return &CustomerStore{db: db}
}

// Create inserts a new customer.
func (s *CustomerStore) Create(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO customers (customer_id, is_subscribed, push_token)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		customer.CustomerID,
		customer.IsSubscribed,
		customer.PushToken,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrCustomerExists
		}
		logger.FromContext(ctx).Error("failed to create customer",
			"customer_id", customer.CustomerID,
			"error", err)
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// GetByCustomerID returns the customer with the given external billing ID.
func (s *CustomerStore) GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error) {
	query := `
		SELECT id, customer_id, is_subscribed, push_token, created_at, updated_at
		FROM customers
		WHERE customer_id = $1
	`

	var (
		customer  domain.Customer
		pushToken sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, customerID).Scan(
		&customer.ID,
		&customer.CustomerID,
		&customer.IsSubscribed,
		&pushToken,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	if pushToken.Valid {
		customer.PushToken = &pushToken.String
	}

	return &customer, nil
}

// ListSubscribedIDs returns the billing IDs of all currently subscribed customers.
func (s *CustomerStore) ListSubscribedIDs(ctx context.Context) ([]string, error) {
	query := `SELECT customer_id FROM customers WHERE is_subscribed = TRUE ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribed customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan customer id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer ids: %w", err)
	}

	return ids, nil
}

// SetSubscribed writes the refreshed subscription flag for the customer.
func (s *CustomerStore) SetSubscribed(ctx context.Context, customerID string, subscribed bool) error {
	query := `
		UPDATE customers
		SET is_subscribed = $2, updated_at = now()
		WHERE customer_id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, customerID, subscribed); err != nil {
		logger.FromContext(ctx).Error("failed to update subscription flag",
			"customer_id", customerID,
			"error", err)
		return fmt.Errorf("failed to update subscription flag: %w", err)
	}

	return nil
}

// SetPushToken registers or replaces the customer's push destination.
func (s *CustomerStore) SetPushToken(ctx context.Context, customerID string, pushToken string) error {
	query := `
		UPDATE customers
		SET push_token = $2, updated_at = now()
		WHERE customer_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, customerID, pushToken)
	if err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrCustomerNotFound
	}

	return nil
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
