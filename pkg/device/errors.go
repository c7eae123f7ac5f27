package device

import "errors"

var (
	// ErrDeviceNotFound is returned when a device lookup misses
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceExists is returned when a (user, fingerprint) pair already
	// has a device row. Concurrent losers fall back to the lookup path.
	ErrDeviceExists = errors.New("device already exists")

	// ErrRateLimited is returned when a user exceeds the new-device
	// detection threshold within the trailing window
	ErrRateLimited = errors.New("too many new device attempts, please try again later")
)
