// Package api implements the HTTP surface of the engine: dashboard login and
// the task inspection and enqueue endpoints. Handlers translate between wire
// DTOs and the store; all engine semantics live below this layer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/inboxrelay/relay-api/internal/api/shared"
	"github.com/inboxrelay/relay-api/internal/service/auth"
)

// AuthHandler serves the dashboard login endpoint.
type AuthHandler struct {
	authService *auth.Service
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		logger:      logger.With("component", "auth_handler"),
	}
}

// Login handles POST /api/auth/login. A valid dashboard password yields a
// Bearer token; anything else yields 401 with no detail.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Password is required")
		return
	}

	token, err := h.authService.Login(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Login failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{Token: token})
}
