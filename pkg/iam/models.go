package iam

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/role"
)

// User is the slice of the marketplace user entity this service needs:
// identity, email confirmation state, role, and credential hash. The full
// user aggregate lives with the main application.
type User struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     string
	EmailConfirmed   bool
	EmailConfirmedAt *time.Time
	Role             role.Role
	CreatedAt        time.Time
}

// Profile is a minimal profile record created on signup confirmation,
// seeded from the user's email.
type Profile struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}
