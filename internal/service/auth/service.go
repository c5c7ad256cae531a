package auth

import (
	"context"
	"log/slog"

	"github.com/inboxrelay/relay-api/internal/config"
)

// Service handles the dashboard login flow: verify the password against the
// configured bcrypt hash, then mint an access token.
type Service struct {
	passwordHash string
	verifier     PasswordVerifier
	tokens       TokenService
	logger       *slog.Logger
}

// NewService creates the auth service.
func NewService(
	cfg config.AuthConfig,
	verifier PasswordVerifier,
	tokens TokenService,
	logger *slog.Logger,
) *Service {
	return &Service{
		passwordHash: cfg.PasswordHash,
		verifier:     verifier,
		tokens:       tokens,
		logger:       logger.With("component", "auth_service"),
	}
}

// Login verifies the password and returns a fresh access token, or
// ErrInvalidCredentials. The mismatch detail from the verifier is never
// surfaced to the caller.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	if err := s.verifier.Compare(s.passwordHash, password); err != nil {
		s.logger.Warn("login attempt with invalid credentials")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx)
	if err != nil {
		return "", err
	}

	s.logger.Info("dashboard login succeeded")
	return token, nil
}
