package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roomyhq/device-trust/pkg/iam"
	"github.com/roomyhq/device-trust/pkg/notification"
	"github.com/roomyhq/device-trust/pkg/utils"
	"github.com/roomyhq/device-trust/pkg/verification"
)

// PasswordPolicy sets the requirements a new password must meet.
type PasswordPolicy struct {
	MinLength        int
	RequireDigit     bool
	RequireUppercase bool
}

// DefaultPasswordPolicy requires eight characters with no class rules.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

func (p PasswordPolicy) check(password string) error {
	if len(password) < p.MinLength {
		return ErrWeakPassword
	}
	hasDigit, hasUpper := false, false
	for _, c := range password {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		}
	}
	if p.RequireDigit && !hasDigit {
		return ErrWeakPassword
	}
	if p.RequireUppercase && !hasUpper {
		return ErrWeakPassword
	}
	return nil
}

// RecoveryService drives the forgot-password flow: issuing reset tokens by
// email and applying a new password against a consumed token.
type RecoveryService struct {
	iamService          *iam.IamService
	tokens              *verification.Service
	hasher              PasswordHasher
	notificationManager *notification.NotificationManager
	baseURL             string
	policy              PasswordPolicy
}

// RecoveryServiceOption configures a RecoveryService.
type RecoveryServiceOption func(*RecoveryService)

// WithNotificationManager sets the manager used to send reset emails.
func WithNotificationManager(nm *notification.NotificationManager) RecoveryServiceOption {
	return func(s *RecoveryService) {
		s.notificationManager = nm
	}
}

// WithHasher overrides the password hasher.
func WithHasher(h PasswordHasher) RecoveryServiceOption {
	return func(s *RecoveryService) {
		s.hasher = h
	}
}

// WithPasswordPolicy overrides the default password requirements.
func WithPasswordPolicy(policy PasswordPolicy) RecoveryServiceOption {
	return func(s *RecoveryService) {
		s.policy = policy
	}
}

// NewRecoveryService creates a recovery service.
func NewRecoveryService(iamService *iam.IamService, tokens *verification.Service, baseURL string, opts ...RecoveryServiceOption) *RecoveryService {
	s := &RecoveryService{
		iamService: iamService,
		tokens:     tokens,
		hasher:     NewBcryptHasher(0),
		baseURL:    strings.TrimRight(baseURL, "/"),
		policy:     DefaultPasswordPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset issues a recovery token for the account with the given email
// and sends the reset link. Unknown addresses return nil without any side
// effect, so the response never reveals whether an account exists.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	user, err := s.iamService.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, iam.ErrUserNotFound) {
			slog.Info("Password reset requested for unknown email", "email", utils.MaskEmail(email))
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	tokenStr, err := s.tokens.Issue(ctx, user.ID, user.Email, verification.PurposeRecovery, verification.DefaultRecoveryTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if s.notificationManager != nil {
		data := notification.NotificationData{
			To: user.Email,
			Data: map[string]string{
				"Name":      displayName(user),
				"ResetLink": s.baseURL + "/reset-password?token=" + tokenStr,
			},
		}
		if err := s.notificationManager.Send(notification.PasswordResetNotice, data); err != nil {
			slog.Error("Failed to send password reset email", "email", utils.MaskEmail(user.Email), "error", err)
		}
	}

	slog.Info("Password reset token issued", "user_id", user.ID, "email", utils.MaskEmail(user.Email))
	return nil
}

// CompleteReset consumes a recovery token and replaces the account password.
func (s *RecoveryService) CompleteReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := s.policy.check(newPassword); err != nil {
		return err
	}

	result, err := s.tokens.Consume(ctx, tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrTokenExpired):
			return ErrTokenExpired
		case errors.Is(err, verification.ErrTokenNotFound), errors.Is(err, verification.ErrTokenAlreadyUsed):
			return ErrInvalidToken
		default:
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
	}
	if result.Purpose != verification.PurposeRecovery {
		return ErrInvalidToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.iamService.UpdatePassword(ctx, result.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("Password reset completed", "user_id", result.UserID)
	return nil
}

func displayName(user iam.User) string {
	at := strings.Index(user.Email, "@")
	if at <= 0 {
		return user.Email
	}
	return user.Email[:at]
}
