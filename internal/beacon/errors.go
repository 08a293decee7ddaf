package beacon

import "errors"

// Domain errors for the beacon package.
var (
	// ErrNotIBeacon is returned when manufacturer data does not carry the
	// Apple iBeacon prefix. Most BLE traffic falls into this bucket.
	ErrNotIBeacon = errors.New("beacon: not an iBeacon frame")

	// ErrMalformedFrame is returned when a frame has the iBeacon prefix but
	// is too short or otherwise cannot be decoded.
	ErrMalformedFrame = errors.New("beacon: malformed iBeacon frame")

	// ErrNoScanner is returned when a Source is created without a Scanner.
	ErrNoScanner = errors.New("beacon: scanner is required")
)
