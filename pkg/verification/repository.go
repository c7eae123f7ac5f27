package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Purpose tags what a verification token is for. Tokens of different
// purposes share one schema and one lifecycle.
type Purpose string

const (
	PurposeDevice   Purpose = "device"
	PurposeSignup   Purpose = "signup"
	PurposeRecovery Purpose = "recovery"
)

// ParsePurpose validates a purpose string from an external caller.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeDevice, PurposeSignup, PurposeRecovery:
		return Purpose(s), nil
	}
	return "", ErrInvalidPurpose
}

// Token is a single-use, time-bound credential. The token string itself is
// the capability: lookups go by string, never by user.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Token     string
	Purpose   Purpose
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsExpired reports whether the token is past its expiry at the given time.
func (t Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenRepository defines the storage operations for verification tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token Token) (Token, error)
	GetTokenByString(ctx context.Context, tokenStr string) (Token, error)

	// ClaimToken conditionally sets used_at on an unused token. It must be a
	// single compare-and-swap style update ("set used_at where used_at is
	// null") so that exactly one of two concurrent consumers succeeds.
	// Returns false when the token was already claimed.
	ClaimToken(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) (bool, error)

	// DeleteUnusedTokens removes all unused tokens for a (user, purpose)
	// pair, enforcing the at-most-one-live-token invariant on issue.
	DeleteUnusedTokens(ctx context.Context, userID uuid.UUID, purpose Purpose) error
}
