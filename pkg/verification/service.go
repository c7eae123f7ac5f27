package verification

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Default time-to-live per purpose. Overridable per call and via config.
const (
	DefaultDeviceTokenTTL   = 30 * time.Minute
	DefaultSignupTokenTTL   = 30 * time.Minute
	DefaultRecoveryTokenTTL = 60 * time.Minute
)

// Service manages the lifecycle of single-use verification tokens: issue,
// consume, and the invariants between them.
type Service struct {
	repo  TokenRepository
	nowFn func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNow overrides the clock. Used by tests to simulate token expiry.
func WithNow(nowFn func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFn = nowFn
	}
}

// NewService creates a new token lifecycle service.
func NewService(repo TokenRepository, opts ...ServiceOption) *Service {
	service := &Service{
		repo:  repo,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// generateToken returns a cryptographically random token string with at
// least 256 bits of entropy.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Issue creates a new token for the given user and purpose. Any prior unused
// token of the same (user, purpose) is deleted first, so at most one live
// token exists per purpose at a time. Returns the token string for embedding
// in a link.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID, email string, purpose Purpose, ttl time.Duration) (string, error) {
	if err := s.repo.DeleteUnusedTokens(ctx, userID, purpose); err != nil {
		slog.Error("Failed to delete prior unused tokens", "user_id", userID, "purpose", purpose, "error", err)
		return "", fmt.Errorf("failed to invalidate prior tokens: %w", err)
	}

	tokenStr, err := generateToken()
	if err != nil {
		return "", err
	}

	now := s.nowFn()
	token := Token{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		Token:     tokenStr,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	created, err := s.repo.CreateToken(ctx, token)
	if err != nil {
		slog.Error("Failed to create verification token", "user_id", userID, "purpose", purpose, "error", err)
		return "", fmt.Errorf("failed to create verification token: %w", err)
	}

	slog.Info("Verification token issued",
		"user_id", userID,
		"purpose", purpose,
		"token_id", created.ID,
		"expires_at", created.ExpiresAt)
	return tokenStr, nil
}

// IsActive reports whether the token string refers to a token that still
// exists, is unused, and has not expired. Issuing a new token of the same
// (user, purpose) deletes prior unused rows, so a token string cached
// elsewhere can go dead before its recorded expiry.
func (s *Service) IsActive(ctx context.Context, tokenStr string) bool {
	token, err := s.repo.GetTokenByString(ctx, tokenStr)
	if err != nil {
		return false
	}
	return token.UsedAt == nil && !token.IsExpired(s.nowFn())
}

// ConsumeResult is the identity a successfully consumed token proves.
type ConsumeResult struct {
	UserID  uuid.UUID
	Email   string
	Purpose Purpose
}

// Consume validates and claims a token by its string. Validation order
// matters for correct error attribution: not found, then already used, then
// expired. The final claim is a conditional update so that two concurrent
// consumers of the same token cannot both succeed.
func (s *Service) Consume(ctx context.Context, tokenStr string) (ConsumeResult, error) {
	token, err := s.repo.GetTokenByString(ctx, tokenStr)
	if err != nil {
		return ConsumeResult{}, ErrTokenNotFound
	}

	if token.UsedAt != nil {
		slog.Warn("Token already used", "token_id", token.ID, "used_at", *token.UsedAt)
		return ConsumeResult{}, ErrTokenAlreadyUsed
	}

	now := s.nowFn()
	if token.IsExpired(now) {
		slog.Warn("Token expired", "token_id", token.ID, "expires_at", token.ExpiresAt)
		return ConsumeResult{}, ErrTokenExpired
	}

	claimed, err := s.repo.ClaimToken(ctx, token.ID, now)
	if err != nil {
		slog.Error("Failed to claim token", "token_id", token.ID, "error", err)
		return ConsumeResult{}, fmt.Errorf("failed to claim token: %w", err)
	}
	if !claimed {
		// Lost the race against a concurrent consume of the same link.
		slog.Warn("Token claimed concurrently", "token_id", token.ID)
		return ConsumeResult{}, ErrTokenAlreadyUsed
	}

	slog.Info("Verification token consumed", "token_id", token.ID, "user_id", token.UserID, "purpose", token.Purpose)
	return ConsumeResult{
		UserID:  token.UserID,
		Email:   token.Email,
		Purpose: token.Purpose,
	}, nil
}
