package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inboxrelay/relay-api/internal/config"
	"github.com/inboxrelay/relay-api/internal/service/auth"
)

func newAuthTestRouter(t *testing.T) (http.Handler, auth.TokenService) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.AuthConfig{
		PasswordHash:     string(hash),
		TokenSecret:      "0123456789abcdef0123456789abcdef",
		TokenLifetimeMin: 60,
	}
	tokens, err := auth.NewTokenService(cfg)
	require.NoError(t, err)

	logger := setupTestLogger()
	handler := NewAuthHandler(auth.NewService(cfg, auth.NewBcryptVerifier(), tokens, logger), logger)

	r := chi.NewRouter()
	r.Post("/api/auth/login", handler.Login)
	return r, tokens
}

func TestAuthHandler_Login(t *testing.T) {
	router, tokens := newAuthTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/auth/login",
		`{"password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	claims, err := tokens.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Subject)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/auth/login",
		`{"password":"battery staple"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Login_BadRequests(t *testing.T) {
	router, _ := newAuthTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/auth/login", `{"password":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/auth/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
