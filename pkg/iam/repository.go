package iam

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/role"
)

// UserRepository defines the storage operations for users and profiles.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ConfirmUserEmail(ctx context.Context, userID uuid.UUID, at time.Time) error
	SetUserRole(ctx context.Context, userID uuid.UUID, r role.Role) error
	UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	CreateProfile(ctx context.Context, profile Profile) (Profile, error)
	GetProfileByUser(ctx context.Context, userID uuid.UUID) (Profile, error)
}
