package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/inboxrelay/relay-api/internal/api/shared"
	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/store"
)

// SubscriptionVerifier answers whether a customer currently holds an active
// subscription. Implemented by the RevenueCat client.
type SubscriptionVerifier interface {
	IsSubscribed(ctx context.Context, customerID string) (bool, error)
}

// CustomerHandler serves the app-facing registration endpoints. The app
// re-registers on every launch, so both endpoints are upserts: an existing
// customer gets its subscription flag (and push token, when supplied)
// refreshed rather than a conflict.
type CustomerHandler struct {
	customers store.CustomerStore
	accounts  store.AccountStore
	verifier  SubscriptionVerifier
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewCustomerHandler creates a CustomerHandler.
func NewCustomerHandler(
	customers store.CustomerStore,
	accounts store.AccountStore,
	verifier SubscriptionVerifier,
	logger *slog.Logger,
) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		accounts:  accounts,
		verifier:  verifier,
		validate:  validator.New(),
		logger:    logger.With("component", "customer_handler"),
	}
}

// Register handles POST /api/customers. The subscription state comes from
// the billing provider at registration time, never from the client.
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Customer ID is required")
		return
	}

	customer, err := h.upsertCustomer(r.Context(), req.CustomerID, nil)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to register customer", err)
		return
	}

	h.logger.Info("customer registered",
		"customer_id", customer.CustomerID,
		"is_subscribed", customer.IsSubscribed)
	shared.RespondWithJSON(w, r, http.StatusOK, newCustomerResponse(customer))
}

// RegisterNotifications handles POST /api/notifications: it stores the push
// token and upserts the accounts to watch in one call.
func (h *CustomerHandler) RegisterNotifications(w http.ResponseWriter, r *http.Request) {
	var req RegisterNotificationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid registration")
		return
	}

	customer, err := h.upsertCustomer(r.Context(), req.CustomerID, &req.PushToken)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to register customer", err)
		return
	}

	for _, acc := range req.Accounts {
		account := &domain.WatchedAccount{
			CustomerID: req.CustomerID,
			Username:   acc.Username,
			Session:    acc.Session,
		}
		if err := h.accounts.Upsert(r.Context(), account); err != nil {
			if errors.Is(err, store.ErrInvalidEntity) {
				shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid account")
				return
			}
			shared.RespondWithErrorAndLog(w, r,
				http.StatusInternalServerError, "Failed to register account", err)
			return
		}
	}

	h.logger.Info("notifications registered",
		"customer_id", customer.CustomerID,
		"accounts", len(req.Accounts))
	shared.RespondWithJSON(w, r, http.StatusOK, RegisterNotificationsResponse{
		Customer: newCustomerResponse(customer),
		Accounts: len(req.Accounts),
	})
}

// upsertCustomer verifies the subscription with the billing provider and
// inserts or refreshes the customer row. A nil pushToken leaves any stored
// token untouched on the refresh path.
func (h *CustomerHandler) upsertCustomer(
	ctx context.Context,
	customerID string,
	pushToken *string,
) (*domain.Customer, error) {
	active, err := h.verifier.IsSubscribed(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify subscription for %s: %w", customerID, err)
	}

	candidate := &domain.Customer{
		CustomerID:   customerID,
		IsSubscribed: active,
		PushToken:    pushToken,
	}
	err = h.customers.Create(ctx, candidate)
	switch {
	case err == nil:
		return candidate, nil
	case errors.Is(err, store.ErrCustomerExists):
		if err := h.customers.SetSubscribed(ctx, customerID, active); err != nil {
			return nil, err
		}
		if pushToken != nil {
			if err := h.customers.SetPushToken(ctx, customerID, *pushToken); err != nil {
				return nil, err
			}
		}
		return h.customers.GetByCustomerID(ctx, customerID)
	default:
		return nil, err
	}
}
