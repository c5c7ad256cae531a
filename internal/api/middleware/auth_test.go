package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxrelay/relay-api/internal/config"
	"github.com/inboxrelay/relay-api/internal/service/auth"
)

func protectedRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	tokens, err := auth.NewTokenService(config.AuthConfig{
		PasswordHash:     "unused",
		TokenSecret:      "0123456789abcdef0123456789abcdef",
		TokenLifetimeMin: 60,
	})
	require.NoError(t, err)

	token, err := tokens.GenerateToken(context.Background())
	require.NoError(t, err)

	mw := NewAuthMiddleware(tokens)
	protected := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	return protected, token
}

func TestAuthMiddleware(t *testing.T) {
	protected, token := protectedRouter(t)

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token passes", "Bearer " + token, http.StatusNoContent},
		{"missing header rejected", "", http.StatusUnauthorized},
		{"malformed header rejected", "Token " + token, http.StatusUnauthorized},
		{"missing scheme rejected", token, http.StatusUnauthorized},
		{"garbage token rejected", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestAuthMiddleware_RejectsForeignToken(t *testing.T) {
	protected, _ := protectedRouter(t)

	other, err := auth.NewTokenService(config.AuthConfig{
		PasswordHash:     "unused",
		TokenSecret:      "ffffffffffffffffffffffffffffffff",
		TokenLifetimeMin: 60,
	})
	require.NoError(t, err)
	foreign, err := other.GenerateToken(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
