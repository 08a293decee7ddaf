package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotMonitored) {
//	    // advertisement for a UUID outside the configured set
//	}
var (
	// ErrNotMonitored is returned when a UUID is not in the configured identity set.
	ErrNotMonitored = errors.New("device: not monitored")

	// ErrNoReading is returned when the identity's decoder derives nothing
	// from the applied fields. The state is left untouched.
	ErrNoReading = errors.New("device: no reading derivable")

	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidIdentity is returned when identity validation fails.
	ErrInvalidIdentity = errors.New("device: invalid identity")

	// ErrInvalidName is returned when an identity name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidSlug is returned when an identity ID is not a valid slug.
	ErrInvalidSlug = errors.New("device: invalid slug")

	// ErrInvalidUUID is returned when an identity UUID cannot be parsed.
	ErrInvalidUUID = errors.New("device: invalid uuid")

	// ErrDuplicateID is returned when two different identities share an ID.
	ErrDuplicateID = errors.New("device: duplicate id")
)
