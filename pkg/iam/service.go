package iam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/role"
)

// IamService exposes the user and profile operations the device-trust flows
// depend on.
type IamService struct {
	repo        UserRepository
	defaultRole role.Role
}

// IamServiceOption configures an IamService.
type IamServiceOption func(*IamService)

// WithDefaultRole overrides the role assigned on signup confirmation.
func WithDefaultRole(r role.Role) IamServiceOption {
	return func(s *IamService) {
		s.defaultRole = r
	}
}

// NewIamService creates a new IAM service.
func NewIamService(repo UserRepository, opts ...IamServiceOption) *IamService {
	service := &IamService{
		repo:        repo,
		defaultRole: role.Default,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// GetUser looks up a user by ID.
func (s *IamService) GetUser(ctx context.Context, userID uuid.UUID) (User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// GetUserByEmail looks up a user by email. Callers on unauthenticated paths
// must keep responses success-shaped on ErrUserNotFound to avoid account
// enumeration.
func (s *IamService) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

// GetUserRole returns the role for a user, falling back to unassigned when
// the stored value is missing or unknown.
func (s *IamService) GetUserRole(ctx context.Context, userID uuid.UUID) (role.Role, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return role.RoleUnassigned, err
	}
	if !user.Role.Valid() {
		slog.Warn("User has unknown role, treating as unassigned", "user_id", userID, "role", user.Role)
		return role.RoleUnassigned, nil
	}
	return user.Role, nil
}

// CompleteSignup performs the post-processing of a consumed signup token:
// mark the email confirmed, assign the default role when the user has none,
// and create a minimal profile seeded from the email.
func (s *IamService) CompleteSignup(ctx context.Context, userID uuid.UUID, email string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now().UTC()
	if !user.EmailConfirmed {
		if err := s.repo.ConfirmUserEmail(ctx, userID, now); err != nil {
			return fmt.Errorf("failed to confirm email: %w", err)
		}
	}

	if user.Role == role.RoleUnassigned || !user.Role.Valid() {
		if err := s.repo.SetUserRole(ctx, userID, s.defaultRole); err != nil {
			return fmt.Errorf("failed to assign default role: %w", err)
		}
		slog.Info("Assigned default role on signup", "user_id", userID, "role", s.defaultRole)
	}

	if _, err := s.repo.GetProfileByUser(ctx, userID); err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			return fmt.Errorf("failed to check profile: %w", err)
		}
		profile := Profile{
			ID:          uuid.New(),
			UserID:      userID,
			DisplayName: displayNameFromEmail(email),
			CreatedAt:   now,
		}
		if _, err := s.repo.CreateProfile(ctx, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		slog.Info("Created minimal profile on signup", "user_id", userID, "display_name", profile.DisplayName)
	}

	return nil
}

// UpdatePassword stores a new password hash for the user.
func (s *IamService) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	if err := s.repo.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	slog.Info("Password updated", "user_id", userID)
	return nil
}

func displayNameFromEmail(email string) string {
	local := email
	if idx := strings.Index(email, "@"); idx > 0 {
		local = email[:idx]
	}
	return local
}
