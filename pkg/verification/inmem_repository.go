package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemTokenRepository implements TokenRepository using an in-memory map.
// Intended for tests and local development.
type InMemTokenRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]Token
}

// NewInMemTokenRepository creates a new in-memory token repository.
func NewInMemTokenRepository() *InMemTokenRepository {
	return &InMemTokenRepository{
		tokens: make(map[uuid.UUID]Token),
	}
}

// CreateToken stores a new token.
func (r *InMemTokenRepository) CreateToken(ctx context.Context, token Token) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	r.tokens[token.ID] = token
	return token, nil
}

// GetTokenByString retrieves a token by its token string.
func (r *InMemTokenRepository) GetTokenByString(ctx context.Context, tokenStr string) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.Token == tokenStr {
			return token, nil
		}
	}
	return Token{}, ErrTokenNotFound
}

// ClaimToken sets used_at if and only if it is still unset. The check and
// the write happen under one lock, mirroring the conditional UPDATE the
// postgres repository uses.
func (r *InMemTokenRepository) ClaimToken(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.tokens[tokenID]
	if !exists {
		return false, ErrTokenNotFound
	}
	if token.UsedAt != nil {
		return false, nil
	}
	token.UsedAt = &usedAt
	r.tokens[tokenID] = token
	return true, nil
}

// DeleteUnusedTokens removes all unused tokens for a (user, purpose) pair.
func (r *InMemTokenRepository) DeleteUnusedTokens(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.UserID == userID && token.Purpose == purpose && token.UsedAt == nil {
			delete(r.tokens, id)
		}
	}
	return nil
}
