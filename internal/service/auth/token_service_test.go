package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxrelay/relay-api/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		PasswordHash:     "$2a$10$unusedunusedunusedunusedunusedunusedunusedunusedunused",
		TokenSecret:      "0123456789abcdef0123456789abcdef",
		TokenLifetimeMin: 60,
	}
}

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.TokenSecret = "too-short"

	_, err := NewTokenService(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	token, err := svc.GenerateToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)
	impl := svc.(*hmacTokenService)

	// Mint in the past, validate in the present.
	issuedAt := time.Now().Add(-24 * time.Hour)
	impl.timeFunc = func() time.Time { return issuedAt }
	token, err := impl.GenerateToken(context.Background())
	require.NoError(t, err)

	impl.timeFunc = time.Now
	_, err = impl.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.TokenSecret = "ffffffffffffffffffffffffffffffff"
	other, err := NewTokenService(otherCfg)
	require.NoError(t, err)

	token, err := other.GenerateToken(context.Background())
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}
