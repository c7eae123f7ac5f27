package verification

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "000001_init_schema.up.sql")),
		postgres.WithDatabase("trust_db"),
		postgres.WithUsername("trust"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return pool, cleanup
}

func seedDbUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, $2, 'hash', 'student')
	`, userID, userID.String()+"@example.com")
	require.NoError(t, err)
	return userID
}

func TestPostgresTokenLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresTokenRepository(pool)
	svc := NewService(repo)
	userID := seedDbUser(t, pool)

	tokenStr, err := svc.Issue(ctx, userID, "alice@example.com", PurposeDevice, DefaultDeviceTokenTTL)
	require.NoError(t, err)

	result, err := svc.Consume(ctx, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, userID, result.UserID)

	_, err = svc.Consume(ctx, tokenStr)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestPostgresClaimTokenConditional(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresTokenRepository(pool)
	userID := seedDbUser(t, pool)

	now := time.Now().UTC()
	token, err := repo.CreateToken(ctx, Token{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     "bob@example.com",
		Token:     "claim-test-token",
		Purpose:   PurposeDevice,
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	})
	require.NoError(t, err)

	claimed, err := repo.ClaimToken(ctx, token.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// The conditional update refuses a second claim.
	claimed, err = repo.ClaimToken(ctx, token.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestPostgresDeleteUnusedTokens(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewPostgresTokenRepository(pool)
	svc := NewService(repo)
	userID := seedDbUser(t, pool)

	first, err := svc.Issue(ctx, userID, "c@example.com", PurposeRecovery, DefaultRecoveryTokenTTL)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, userID, "c@example.com", PurposeRecovery, DefaultRecoveryTokenTTL)
	require.NoError(t, err)

	_, err = svc.Consume(ctx, first)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = svc.Consume(ctx, second)
	assert.NoError(t, err)
}
