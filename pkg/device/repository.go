package device

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeviceRepository defines the storage operations for devices and security
// events.
type DeviceRepository interface {
	// CreateDevice inserts a new device. The storage layer enforces the
	// (user, fingerprint) uniqueness constraint: a losing concurrent
	// writer receives ErrDeviceExists.
	CreateDevice(ctx context.Context, device Device) (Device, error)

	GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (Device, error)
	GetDeviceByUserAndFingerprint(ctx context.Context, userID uuid.UUID, fingerprintHash string) (Device, error)

	// GetDeviceByToken retrieves the device carrying the given verification
	// token string.
	GetDeviceByToken(ctx context.Context, tokenStr string) (Device, error)

	FindDevicesByUser(ctx context.Context, userID uuid.UUID) ([]Device, error)

	// TouchDevice updates the last-used timestamp.
	TouchDevice(ctx context.Context, deviceID uuid.UUID, at time.Time) error

	// SetCurrentDevice sets is_current on the given device and clears it on
	// every other device of the same user.
	SetCurrentDevice(ctx context.Context, userID uuid.UUID, deviceID uuid.UUID) error

	// SetDeviceToken attaches a verification token to the device, replacing
	// any previous one.
	SetDeviceToken(ctx context.Context, deviceID uuid.UUID, tokenStr string, expiresAt time.Time) error

	// MarkDeviceVerified sets the verified flag and clears the token fields.
	MarkDeviceVerified(ctx context.Context, deviceID uuid.UUID, at time.Time) error

	// RevokeUserDevices clears verified, is_current and token fields on
	// every device belonging to the user. Returns the number of devices
	// affected.
	RevokeUserDevices(ctx context.Context, userID uuid.UUID) (int, error)

	// RecordSecurityEvent appends an immutable audit record.
	RecordSecurityEvent(ctx context.Context, event SecurityEvent) error

	// CountSecurityEvents counts events of one type for a user since the
	// given time. Used for trailing-window rate limiting; slight
	// overcounting under concurrency is acceptable.
	CountSecurityEvents(ctx context.Context, userID uuid.UUID, eventType EventType, since time.Time) (int64, error)
}
