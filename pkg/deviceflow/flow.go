package deviceflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/device"
	"github.com/roomyhq/device-trust/pkg/iam"
	"github.com/roomyhq/device-trust/pkg/role"
	"github.com/roomyhq/device-trust/pkg/verification"
)

var (
	// ErrInvalidToken covers any token that cannot authorize the flow:
	// unknown, already used, or issued for a different purpose.
	ErrInvalidToken = errors.New("invalid or already used token")
	// ErrTokenExpired is returned when the token exists but its window has
	// passed. Callers should prompt the user to sign in again for a fresh
	// verification email.
	ErrTokenExpired = errors.New("token expired")
)

// DeviceFlowService drives the two outcomes reachable from a device
// verification email: approving the new device, or securing the account.
// Both consume the same single-use token, so whichever link is clicked
// first wins and the other becomes a no-op.
type DeviceFlowService struct {
	tokens        *verification.Service
	deviceService *device.DeviceService
	iamService    *iam.IamService
}

// NewDeviceFlowService creates a device flow service.
func NewDeviceFlowService(tokens *verification.Service, deviceService *device.DeviceService, iamService *iam.IamService) *DeviceFlowService {
	return &DeviceFlowService{
		tokens:        tokens,
		deviceService: deviceService,
		iamService:    iamService,
	}
}

// ConfirmResult is the outcome of a successful device approval.
type ConfirmResult struct {
	UserID     uuid.UUID
	DeviceID   uuid.UUID
	DeviceName string
	Role       role.Role
}

// ConfirmDevice consumes a device verification token and approves the
// pending device it was issued for.
func (s *DeviceFlowService) ConfirmDevice(ctx context.Context, tokenStr string) (ConfirmResult, error) {
	dev, err := s.consumeForDevice(ctx, tokenStr)
	if err != nil {
		return ConfirmResult{}, err
	}

	if err := s.deviceService.ApproveDevice(ctx, dev); err != nil {
		return ConfirmResult{}, fmt.Errorf("failed to approve device: %w", err)
	}

	userRole, err := s.iamService.GetUserRole(ctx, dev.UserID)
	if err != nil {
		slog.Error("Failed to resolve user role after device approval", "user_id", dev.UserID, "error", err)
		userRole = role.RoleUnassigned
	}

	return ConfirmResult{
		UserID:     dev.UserID,
		DeviceID:   dev.ID,
		DeviceName: dev.DisplayName,
		Role:       userRole,
	}, nil
}

// SecureResult is the outcome of a successful account lockdown.
type SecureResult struct {
	UserID         uuid.UUID
	RevokedDevices int
}

// SecureAccount consumes a device verification token and revokes every
// device on the account, forcing re-verification everywhere.
func (s *DeviceFlowService) SecureAccount(ctx context.Context, tokenStr string) (SecureResult, error) {
	dev, err := s.consumeForDevice(ctx, tokenStr)
	if err != nil {
		return SecureResult{}, err
	}

	revoked, err := s.deviceService.RevokeAllDevices(ctx, dev.UserID, dev.FingerprintHash)
	if err != nil {
		return SecureResult{}, fmt.Errorf("failed to secure account: %w", err)
	}

	return SecureResult{
		UserID:         dev.UserID,
		RevokedDevices: revoked,
	}, nil
}

// consumeForDevice resolves the device a token was minted for and then
// claims the token. Only the caller that wins the claim proceeds, so a
// device is never approved twice however many links are clicked.
func (s *DeviceFlowService) consumeForDevice(ctx context.Context, tokenStr string) (device.Device, error) {
	dev, devErr := s.deviceService.GetDeviceByToken(ctx, tokenStr)

	result, err := s.tokens.Consume(ctx, tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrTokenExpired):
			return device.Device{}, ErrTokenExpired
		case errors.Is(err, verification.ErrTokenNotFound), errors.Is(err, verification.ErrTokenAlreadyUsed):
			return device.Device{}, ErrInvalidToken
		default:
			return device.Device{}, fmt.Errorf("failed to consume token: %w", err)
		}
	}
	if result.Purpose != verification.PurposeDevice {
		return device.Device{}, ErrInvalidToken
	}
	if devErr != nil {
		// An unused token row can outlive its device's token fields, for
		// example after a revoke-all. The link is dead, not a server fault.
		if errors.Is(devErr, device.ErrDeviceNotFound) {
			return device.Device{}, ErrInvalidToken
		}
		return device.Device{}, fmt.Errorf("failed to find device for token: %w", devErr)
	}
	if dev.UserID != result.UserID {
		return device.Device{}, ErrInvalidToken
	}
	return dev, nil
}
