package iam

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/role"
)

// InMemUserRepository implements UserRepository using in-memory maps.
type InMemUserRepository struct {
	mu       sync.Mutex
	users    map[uuid.UUID]User
	profiles map[uuid.UUID]Profile // keyed by user ID
}

// NewInMemUserRepository creates a new in-memory user repository.
func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{
		users:    make(map[uuid.UUID]User),
		profiles: make(map[uuid.UUID]Profile),
	}
}

// CreateUser stores a new user. Emails are unique, case-insensitively.
func (r *InMemUserRepository) CreateUser(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return User{}, ErrUserExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = role.RoleUnassigned
	}
	r.users[user.ID] = user
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *InMemUserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *InMemUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

// ConfirmUserEmail marks the user's email as confirmed.
func (r *InMemUserRepository) ConfirmUserEmail(ctx context.Context, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.EmailConfirmed = true
	user.EmailConfirmedAt = &at
	r.users[userID] = user
	return nil
}

// SetUserRole updates the user's role.
func (r *InMemUserRepository) SetUserRole(ctx context.Context, userID uuid.UUID, role role.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.Role = role
	r.users[userID] = user
	return nil
}

// UpdateUserPassword stores a new password hash.
func (r *InMemUserRepository) UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	r.users[userID] = user
	return nil
}

// CreateProfile stores a new profile for a user.
func (r *InMemUserRepository) CreateProfile(ctx context.Context, profile Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	r.profiles[profile.UserID] = profile
	return profile, nil
}

// GetProfileByUser retrieves the profile for a user.
func (r *InMemUserRepository) GetProfileByUser(ctx context.Context, userID uuid.UUID) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, exists := r.profiles[userID]
	if !exists {
		return Profile{}, ErrProfileNotFound
	}
	return profile, nil
}
