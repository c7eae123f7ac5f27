package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX allows the repository to run on either a pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresTokenRepository implements TokenRepository using PostgreSQL.
type PostgresTokenRepository struct {
	db DBTX
}

// NewPostgresTokenRepository creates a new PostgreSQL token repository.
func NewPostgresTokenRepository(db DBTX) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

// CreateToken inserts a new verification token.
func (r *PostgresTokenRepository) CreateToken(ctx context.Context, token Token) (Token, error) {
	query := `
		INSERT INTO verification_tokens (id, user_id, email, token, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, email, token, purpose, created_at, expires_at, used_at
	`

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	var created Token
	err := r.db.QueryRow(ctx, query,
		token.ID,
		token.UserID,
		token.Email,
		token.Token,
		string(token.Purpose),
		token.CreatedAt,
		token.ExpiresAt,
	).Scan(
		&created.ID,
		&created.UserID,
		&created.Email,
		&created.Token,
		&created.Purpose,
		&created.CreatedAt,
		&created.ExpiresAt,
		&created.UsedAt,
	)
	if err != nil {
		return Token{}, err
	}
	return created, nil
}

// GetTokenByString retrieves a token by its token string.
func (r *PostgresTokenRepository) GetTokenByString(ctx context.Context, tokenStr string) (Token, error) {
	query := `
		SELECT id, user_id, email, token, purpose, created_at, expires_at, used_at
		FROM verification_tokens
		WHERE token = $1
	`

	var token Token
	err := r.db.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.UserID,
		&token.Email,
		&token.Token,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, err
	}
	return token, nil
}

// ClaimToken sets used_at only when it is still NULL. The WHERE clause is
// what guarantees exactly-once consumption under concurrent clicks.
func (r *PostgresTokenRepository) ClaimToken(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) (bool, error) {
	query := `
		UPDATE verification_tokens
		SET used_at = $2
		WHERE id = $1
		AND used_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, tokenID, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteUnusedTokens removes all unused tokens for a (user, purpose) pair.
func (r *PostgresTokenRepository) DeleteUnusedTokens(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	query := `
		DELETE FROM verification_tokens
		WHERE user_id = $1
		AND purpose = $2
		AND used_at IS NULL
	`

	_, err := r.db.Exec(ctx, query, userID, string(purpose))
	return err
}
