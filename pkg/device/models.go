package device

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/device-trust/pkg/fingerprint"
)

// Device represents one browser/device previously seen for a user.
//
// Invariants: the (UserID, FingerprintHash) pair is unique; at most one
// non-expired, unused verification token is attached at a time; exactly one
// device per user holds IsCurrent.
type Device struct {
	ID              uuid.UUID              `json:"id"`
	UserID          uuid.UUID              `json:"user_id"`
	FingerprintHash string                 `json:"fingerprint_hash"`
	DisplayName     string                 `json:"display_name"`
	Browser         string                 `json:"browser"`
	OS              string                 `json:"os"`
	DeviceType      fingerprint.DeviceType `json:"device_type"`
	Region          string                 `json:"region"`
	Verified        bool                   `json:"verified"`
	TokenString     *string                `json:"-"`
	TokenExpiresAt  *time.Time             `json:"-"`
	LastUsedAt      time.Time              `json:"last_used_at"`
	IsCurrent       bool                   `json:"is_current"`
	CreatedAt       time.Time              `json:"created_at"`
}

// HasLiveToken reports whether the device carries a verification token that
// has not yet expired at the given time.
func (d Device) HasLiveToken(now time.Time) bool {
	return d.TokenString != nil && d.TokenExpiresAt != nil && now.Before(*d.TokenExpiresAt)
}

// EventType classifies a security event.
type EventType string

const (
	EventNewDeviceDetected EventType = "new-device-detected"
	EventRateLimitExceeded EventType = "rate-limit-exceeded"
	EventDeviceApproved    EventType = "device-approved"
	EventAccountSecured    EventType = "account-secured"
)

// SecurityEvent is an append-only audit record. Events are immutable once
// written and are used only for rate-limit counting and the audit trail,
// never for authorization decisions beyond counting.
type SecurityEvent struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	EventType   EventType         `json:"event_type"`
	Fingerprint string            `json:"fingerprint"`
	Region      string            `json:"region"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
