package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/fingerprint"
	"github.com/roomyhq/device-trust/pkg/notification"
	"github.com/roomyhq/device-trust/pkg/verification"
)

// Defaults for the new-device rate limit and token lifetime. All are
// configurable via options.
const (
	DefaultRateLimitThreshold = 5
	DefaultRateLimitWindow    = time.Hour
	DefaultTokenTTL           = verification.DefaultDeviceTokenTTL
)

// DeviceService is the authorization gate deciding whether a login from a
// given (user, fingerprint) pair may proceed immediately or must wait for
// out-of-band approval.
type DeviceService struct {
	repo                DeviceRepository
	tokens              *verification.Service
	notificationManager *notification.NotificationManager
	baseURL             string
	rateLimitThreshold  int64
	rateLimitWindow     time.Duration
	tokenTTL            time.Duration
	nowFn               func() time.Time
}

// DeviceServiceOption configures a DeviceService.
type DeviceServiceOption func(*DeviceService)

// WithRateLimit overrides the new-device threshold and trailing window.
func WithRateLimit(threshold int64, window time.Duration) DeviceServiceOption {
	return func(s *DeviceService) {
		s.rateLimitThreshold = threshold
		s.rateLimitWindow = window
	}
}

// WithTokenTTL overrides the device verification token lifetime.
func WithTokenTTL(ttl time.Duration) DeviceServiceOption {
	return func(s *DeviceService) {
		s.tokenTTL = ttl
	}
}

// WithNotificationManager sets the manager used for out-of-band dispatch.
// Without one, notifications are skipped (logged only).
func WithNotificationManager(nm *notification.NotificationManager) DeviceServiceOption {
	return func(s *DeviceService) {
		s.notificationManager = nm
	}
}

// WithNow overrides the clock. Used by tests.
func WithNow(nowFn func() time.Time) DeviceServiceOption {
	return func(s *DeviceService) {
		s.nowFn = nowFn
	}
}

// NewDeviceService creates a new device registry and verification service.
func NewDeviceService(repo DeviceRepository, tokens *verification.Service, baseURL string, opts ...DeviceServiceOption) *DeviceService {
	service := &DeviceService{
		repo:               repo,
		tokens:             tokens,
		baseURL:            baseURL,
		rateLimitThreshold: DefaultRateLimitThreshold,
		rateLimitWindow:    DefaultRateLimitWindow,
		tokenTTL:           DefaultTokenTTL,
		nowFn:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CheckResult is the outcome of a device check.
type CheckResult struct {
	NeedsVerification bool
	DeviceID          uuid.UUID
	Message           string
}

// CheckDevice decides, for a user and fingerprint, whether the login may
// proceed or must be held pending out-of-band approval.
//
// The rate limit check runs before any device lookup so that an attacker
// cannot enumerate devices to bypass it. The count is advisory: a race
// letting one extra attempt through is acceptable.
func (s *DeviceService) CheckDevice(ctx context.Context, userID uuid.UUID, email string, desc fingerprint.Descriptor, region string) (CheckResult, error) {
	now := s.nowFn()

	count, err := s.repo.CountSecurityEvents(ctx, userID, EventNewDeviceDetected, now.Add(-s.rateLimitWindow))
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to count security events: %w", err)
	}
	if count >= s.rateLimitThreshold {
		slog.Warn("New device rate limit exceeded", "user_id", userID, "count", count, "threshold", s.rateLimitThreshold)
		s.recordEvent(ctx, SecurityEvent{
			UserID:      userID,
			EventType:   EventRateLimitExceeded,
			Fingerprint: desc.Hash,
			Region:      region,
		})
		return CheckResult{}, ErrRateLimited
	}

	dev, err := s.repo.GetDeviceByUserAndFingerprint(ctx, userID, desc.Hash)
	if err != nil {
		if !errors.Is(err, ErrDeviceNotFound) {
			return CheckResult{}, fmt.Errorf("failed to look up device: %w", err)
		}
		return s.registerNewDevice(ctx, userID, email, desc, region, now)
	}

	if dev.Verified {
		if err := s.repo.TouchDevice(ctx, dev.ID, now); err != nil {
			slog.Error("Failed to update device last used", "device_id", dev.ID, "error", err)
		}
		if err := s.repo.SetCurrentDevice(ctx, userID, dev.ID); err != nil {
			slog.Error("Failed to set current device", "device_id", dev.ID, "error", err)
		}
		slog.Info("Known verified device", "user_id", userID, "device_id", dev.ID)
		return CheckResult{NeedsVerification: false, DeviceID: dev.ID}, nil
	}

	// The cached expiry alone is not enough: minting a token for a sibling
	// device deletes this device's token row, leaving the cached string dead.
	if dev.HasLiveToken(now) && s.tokens.IsActive(ctx, *dev.TokenString) {
		slog.Info("Device verification already pending", "user_id", userID, "device_id", dev.ID)
		return CheckResult{
			NeedsVerification: true,
			DeviceID:          dev.ID,
			Message:           "verification email already sent",
		}, nil
	}

	if err := s.mintAndNotify(ctx, dev, email, now); err != nil {
		return CheckResult{}, err
	}
	return CheckResult{
		NeedsVerification: true,
		DeviceID:          dev.ID,
		Message:           "verification email sent",
	}, nil
}

// registerNewDevice creates an unverified device row, records the security
// event, and dispatches the out-of-band notification.
func (s *DeviceService) registerNewDevice(ctx context.Context, userID uuid.UUID, email string, desc fingerprint.Descriptor, region string, now time.Time) (CheckResult, error) {
	newDevice := Device{
		ID:              uuid.New(),
		UserID:          userID,
		FingerprintHash: desc.Hash,
		DisplayName:     desc.DisplayName(),
		Browser:         desc.Browser,
		OS:              desc.OS,
		DeviceType:      desc.DeviceType,
		Region:          region,
		LastUsedAt:      now,
		CreatedAt:       now,
	}

	dev, err := s.repo.CreateDevice(ctx, newDevice)
	if err != nil {
		if !errors.Is(err, ErrDeviceExists) {
			return CheckResult{}, fmt.Errorf("failed to create device: %w", err)
		}
		// Lost a concurrent race for the same fingerprint; fall back to
		// the known-but-unverified path.
		slog.Info("Concurrent device creation, falling back to lookup", "user_id", userID)
		dev, err = s.repo.GetDeviceByUserAndFingerprint(ctx, userID, desc.Hash)
		if err != nil {
			return CheckResult{}, fmt.Errorf("failed to look up device after conflict: %w", err)
		}
		if dev.HasLiveToken(now) {
			return CheckResult{NeedsVerification: true, DeviceID: dev.ID, Message: "verification email already sent"}, nil
		}
	} else {
		s.recordEvent(ctx, SecurityEvent{
			UserID:      userID,
			EventType:   EventNewDeviceDetected,
			Fingerprint: desc.Hash,
			Region:      region,
			Metadata:    map[string]string{"device_name": dev.DisplayName},
		})
		slog.Info("New device detected", "user_id", userID, "device_id", dev.ID, "device_name", dev.DisplayName)
	}

	if err := s.mintAndNotify(ctx, dev, email, now); err != nil {
		return CheckResult{}, err
	}
	return CheckResult{
		NeedsVerification: true,
		DeviceID:          dev.ID,
		Message:           "verification email sent",
	}, nil
}

// mintAndNotify issues a fresh verification token, persists it on the device
// record, and dispatches the security email. Dispatch is best-effort: a send
// failure is logged but never rolls back the token or device state, since
// the user can always trigger a fresh email by logging in again.
func (s *DeviceService) mintAndNotify(ctx context.Context, dev Device, email string, now time.Time) error {
	tokenStr, err := s.tokens.Issue(ctx, dev.UserID, email, verification.PurposeDevice, s.tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue device token: %w", err)
	}
	if err := s.repo.SetDeviceToken(ctx, dev.ID, tokenStr, now.Add(s.tokenTTL)); err != nil {
		return fmt.Errorf("failed to attach token to device: %w", err)
	}

	s.sendVerificationEmail(email, dev, tokenStr, now)
	return nil
}

func (s *DeviceService) sendVerificationEmail(email string, dev Device, tokenStr string, now time.Time) {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping device email", "device_id", dev.ID)
		return
	}

	err := s.notificationManager.Send(notification.DeviceVerificationNotice, notification.NotificationData{
		To: email,
		Data: map[string]string{
			"DeviceName":    dev.DisplayName,
			"Region":        dev.Region,
			"Timestamp":     now.Format(time.RFC1123),
			"ApproveLink":   fmt.Sprintf("%s/auth/approve-device?token=%s", s.baseURL, tokenStr),
			"SecureLink":    fmt.Sprintf("%s/devices/secure?token=%s", s.baseURL, tokenStr),
			"ExpiryMinutes": fmt.Sprintf("%.0f", s.tokenTTL.Minutes()),
		},
	})
	if err != nil {
		slog.Error("Failed to send device verification email", "device_id", dev.ID, "error", err)
	}
}

// GetDeviceByToken returns the device carrying the given verification token.
func (s *DeviceService) GetDeviceByToken(ctx context.Context, tokenStr string) (Device, error) {
	return s.repo.GetDeviceByToken(ctx, tokenStr)
}

// GetDeviceByID returns a device by its ID.
func (s *DeviceService) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (Device, error) {
	return s.repo.GetDeviceByID(ctx, deviceID)
}

// FindDevicesByUser returns all devices recorded for a user.
func (s *DeviceService) FindDevicesByUser(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	devices, err := s.repo.FindDevicesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices for user: %w", err)
	}
	return devices, nil
}

// ApproveDevice marks a device verified after its token was consumed: the
// verified flag is set, the token fields cleared, and the device becomes the
// user's current device.
func (s *DeviceService) ApproveDevice(ctx context.Context, dev Device) error {
	now := s.nowFn()
	if err := s.repo.MarkDeviceVerified(ctx, dev.ID, now); err != nil {
		return fmt.Errorf("failed to mark device verified: %w", err)
	}
	if err := s.repo.TouchDevice(ctx, dev.ID, now); err != nil {
		slog.Error("Failed to update device last used", "device_id", dev.ID, "error", err)
	}
	if err := s.repo.SetCurrentDevice(ctx, dev.UserID, dev.ID); err != nil {
		slog.Error("Failed to set current device", "device_id", dev.ID, "error", err)
	}

	s.recordEvent(ctx, SecurityEvent{
		UserID:      dev.UserID,
		EventType:   EventDeviceApproved,
		Fingerprint: dev.FingerprintHash,
		Region:      dev.Region,
		Metadata:    map[string]string{"device_name": dev.DisplayName},
	})
	slog.Info("Device approved", "user_id", dev.UserID, "device_id", dev.ID, "device_name", dev.DisplayName)
	return nil
}

// RevokeAllDevices revokes every device belonging to the user: verified and
// current flags cleared and tokens removed across all rows, not just the
// device that triggered the notification. Returns the number of devices
// revoked.
func (s *DeviceService) RevokeAllDevices(ctx context.Context, userID uuid.UUID, triggerFingerprint string) (int, error) {
	revoked, err := s.repo.RevokeUserDevices(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke devices: %w", err)
	}

	s.recordEvent(ctx, SecurityEvent{
		UserID:      userID,
		EventType:   EventAccountSecured,
		Fingerprint: triggerFingerprint,
		Metadata:    map[string]string{"revoked_devices": fmt.Sprintf("%d", revoked)},
	})
	slog.Info("All devices revoked", "user_id", userID, "revoked", revoked)
	return revoked, nil
}

// recordEvent appends a security event, logging failures without failing the
// caller.
func (s *DeviceService) recordEvent(ctx context.Context, event SecurityEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.nowFn()
	}
	if err := s.repo.RecordSecurityEvent(ctx, event); err != nil {
		slog.Error("Failed to record security event", "user_id", event.UserID, "event_type", event.EventType, "error", err)
	}
}
