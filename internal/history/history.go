// Package history keeps a local SQLite log of device readings.
//
// Every registry update is appended as one row, giving the API a short
// per-device history even when no time-series database is configured.
package history

import (
	"context"
	"time"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// Entry sources.
const (
	SourceScan = "scan"
	SourceBus  = "bus"
)

// Entry is one recorded reading.
type Entry struct {
	ID              int64     `json:"id"`
	DeviceID        string    `json:"device_id"`
	UUID            string    `json:"uuid"`
	Temperature     *float64  `json:"temperature,omitempty"`
	SpecificGravity *float64  `json:"specific_gravity,omitempty"`
	RSSI            *int      `json:"rssi,omitempty"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// Repository stores and retrieves reading history.
//
// Implementations must be safe for concurrent use and store UTC timestamps.
type Repository interface {
	// Record appends the snapshot's readings.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - snap: Snapshot produced by the registry
	//   - source: Where the update came from (scan, bus)
	//
	// Returns:
	//   - error: nil on success, otherwise the persistence error
	Record(ctx context.Context, snap device.Snapshot, source string) error

	// History returns recent entries for a device, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Device slug
	//   - limit: Maximum entries (default 50, clamped to 200)
	//
	// Returns:
	//   - []Entry: Entries ordered newest first (may be empty)
	//   - error: nil on success, otherwise the query error
	History(ctx context.Context, deviceID string, limit int) ([]Entry, error)

	// Prune deletes entries older than olderThan and returns how many.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
