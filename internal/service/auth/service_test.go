package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testAuthConfig()
	cfg.PasswordHash = string(hash)

	tokens, err := NewTokenService(cfg)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(cfg, NewBcryptVerifier(), tokens, logger)

	t.Run("valid password returns a working token", func(t *testing.T) {
		token, err := svc.Login(context.Background(), "correct horse")
		require.NoError(t, err)

		claims, err := tokens.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "dashboard", claims.Subject)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "battery staple")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
