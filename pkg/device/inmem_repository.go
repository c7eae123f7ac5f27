package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemDeviceRepository implements DeviceRepository using in-memory maps.
// Intended for tests and local development.
type InMemDeviceRepository struct {
	mu      sync.Mutex
	devices map[uuid.UUID]Device
	events  []SecurityEvent
}

// NewInMemDeviceRepository creates a new in-memory device repository.
func NewInMemDeviceRepository() *InMemDeviceRepository {
	return &InMemDeviceRepository{
		devices: make(map[uuid.UUID]Device),
	}
}

// CreateDevice stores a new device, enforcing (user, fingerprint)
// uniqueness the way the database unique constraint does.
func (r *InMemDeviceRepository) CreateDevice(ctx context.Context, device Device) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.devices {
		if existing.UserID == device.UserID && existing.FingerprintHash == device.FingerprintHash {
			return Device{}, ErrDeviceExists
		}
	}
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	r.devices[device.ID] = device
	return device, nil
}

// GetDeviceByID retrieves a device by ID.
func (r *InMemDeviceRepository) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return Device{}, ErrDeviceNotFound
	}
	return device, nil
}

// GetDeviceByUserAndFingerprint retrieves a device by its owner and
// fingerprint hash.
func (r *InMemDeviceRepository) GetDeviceByUserAndFingerprint(ctx context.Context, userID uuid.UUID, fingerprintHash string) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, device := range r.devices {
		if device.UserID == userID && device.FingerprintHash == fingerprintHash {
			return device, nil
		}
	}
	return Device{}, ErrDeviceNotFound
}

// GetDeviceByToken retrieves the device carrying the given token string.
func (r *InMemDeviceRepository) GetDeviceByToken(ctx context.Context, tokenStr string) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, device := range r.devices {
		if device.TokenString != nil && *device.TokenString == tokenStr {
			return device, nil
		}
	}
	return Device{}, ErrDeviceNotFound
}

// FindDevicesByUser returns all devices for a user, newest first.
func (r *InMemDeviceRepository) FindDevicesByUser(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var devices []Device
	for _, device := range r.devices {
		if device.UserID == userID {
			devices = append(devices, device)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].CreatedAt.After(devices[j].CreatedAt)
	})
	return devices, nil
}

// TouchDevice updates the last-used timestamp.
func (r *InMemDeviceRepository) TouchDevice(ctx context.Context, deviceID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return ErrDeviceNotFound
	}
	device.LastUsedAt = at
	r.devices[deviceID] = device
	return nil
}

// SetCurrentDevice marks one device current and clears the flag on all the
// user's other devices.
func (r *InMemDeviceRepository) SetCurrentDevice(ctx context.Context, userID uuid.UUID, deviceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[deviceID]; !exists {
		return ErrDeviceNotFound
	}
	for id, device := range r.devices {
		if device.UserID != userID {
			continue
		}
		device.IsCurrent = id == deviceID
		r.devices[id] = device
	}
	return nil
}

// SetDeviceToken attaches a verification token to a device.
func (r *InMemDeviceRepository) SetDeviceToken(ctx context.Context, deviceID uuid.UUID, tokenStr string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return ErrDeviceNotFound
	}
	device.TokenString = &tokenStr
	device.TokenExpiresAt = &expiresAt
	r.devices[deviceID] = device
	return nil
}

// MarkDeviceVerified sets the verified flag and clears the token fields.
func (r *InMemDeviceRepository) MarkDeviceVerified(ctx context.Context, deviceID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return ErrDeviceNotFound
	}
	device.Verified = true
	device.TokenString = nil
	device.TokenExpiresAt = nil
	device.LastUsedAt = at
	r.devices[deviceID] = device
	return nil
}

// RevokeUserDevices revokes every device belonging to the user.
func (r *InMemDeviceRepository) RevokeUserDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	revoked := 0
	for id, device := range r.devices {
		if device.UserID != userID {
			continue
		}
		device.Verified = false
		device.IsCurrent = false
		device.TokenString = nil
		device.TokenExpiresAt = nil
		r.devices[id] = device
		revoked++
	}
	return revoked, nil
}

// RecordSecurityEvent appends an audit record.
func (r *InMemDeviceRepository) RecordSecurityEvent(ctx context.Context, event SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	r.events = append(r.events, event)
	return nil
}

// CountSecurityEvents counts events of one type for a user since the given
// time.
func (r *InMemDeviceRepository) CountSecurityEvents(ctx context.Context, userID uuid.UUID, eventType EventType, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, event := range r.events {
		if event.UserID == userID && event.EventType == eventType && event.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// Events returns a copy of the recorded events. Test helper.
func (r *InMemDeviceRepository) Events() []SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]SecurityEvent, len(r.events))
	copy(events, r.events)
	return events
}
