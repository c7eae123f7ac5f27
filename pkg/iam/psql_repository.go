package iam

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roomyhq/device-trust/pkg/role"
	"github.com/roomyhq/device-trust/pkg/utils"
)

// DBTX allows the repository to run on either a pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresUserRepository implements UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db DBTX
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser inserts a new user.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user User) (User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, email_confirmed, role, created_at)
		VALUES ($1, LOWER($2), $3, $4, $5, $6)
		RETURNING id, email, password_hash, email_confirmed, email_confirmed_at, role, created_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = role.RoleUnassigned
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		utils.ToNullString(user.PasswordHash),
		user.EmailConfirmed,
		string(user.Role),
		user.CreatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrUserExists
		}
		return User{}, err
	}
	return created, nil
}

// GetUserByID retrieves a user by ID.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	query := `
		SELECT id, email, password_hash, email_confirmed, email_confirmed_at, role, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `
		SELECT id, email, password_hash, email_confirmed, email_confirmed_at, role, created_at
		FROM users
		WHERE email = LOWER($1)
	`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

// ConfirmUserEmail marks the user's email as confirmed.
func (r *PostgresUserRepository) ConfirmUserEmail(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET email_confirmed = TRUE,
		    email_confirmed_at = $2
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetUserRole updates the user's role.
func (r *PostgresUserRepository) SetUserRole(ctx context.Context, userID uuid.UUID, userRole role.Role) error {
	query := `
		UPDATE users
		SET role = $2
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, string(userRole))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserPassword stores a new password hash.
func (r *PostgresUserRepository) UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateProfile inserts a minimal profile for a user.
func (r *PostgresUserRepository) CreateProfile(ctx context.Context, profile Profile) (Profile, error) {
	query := `
		INSERT INTO profiles (id, user_id, display_name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, display_name, created_at
	`

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	var created Profile
	err := r.db.QueryRow(ctx, query,
		profile.ID,
		profile.UserID,
		profile.DisplayName,
		profile.CreatedAt,
	).Scan(&created.ID, &created.UserID, &created.DisplayName, &created.CreatedAt)
	if err != nil {
		return Profile{}, err
	}
	return created, nil
}

// GetProfileByUser retrieves the profile for a user.
func (r *PostgresUserRepository) GetProfileByUser(ctx context.Context, userID uuid.UUID) (Profile, error) {
	query := `
		SELECT id, user_id, display_name, created_at
		FROM profiles
		WHERE user_id = $1
	`

	var profile Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	return profile, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var passwordHash sql.NullString
	var roleStr string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&passwordHash,
		&user.EmailConfirmed,
		&user.EmailConfirmedAt,
		&roleStr,
		&user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if passwordHash.Valid {
		user.PasswordHash = passwordHash.String
	}
	parsed, err := role.Parse(roleStr)
	if err != nil {
		// Unknown roles from storage surface as unassigned; the role
		// package rejects them everywhere else.
		parsed = role.RoleUnassigned
	}
	user.Role = parsed
	return user, nil
}
