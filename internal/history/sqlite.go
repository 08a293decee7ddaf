package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// SQLiteRepository implements Repository on the readings table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Record inserts one row for snap. The row time is the snapshot's
// UpdatedAt, or now if it is unset.
func (r *SQLiteRepository) Record(ctx context.Context, snap device.Snapshot, source string) error {
	if snap.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = SourceScan
	}
	at := snap.UpdatedAt
	if at.IsZero() {
		at = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO readings (device_id, uuid, temperature, specific_gravity, rssi, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.DeviceID,
		snap.UUID,
		nullFloat(snap.Temperature),
		nullFloat(snap.SpecificGravity),
		nullInt(snap.RSSI),
		source,
		at.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// History returns the most recent entries for deviceID.
func (r *SQLiteRepository) History(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	limit = ClampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, uuid, temperature, specific_gravity, rssi, source, created_at
		 FROM readings
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e         Entry
			temp, sg  sql.NullFloat64
			rssi      sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.UUID, &temp, &sg, &rssi, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		if temp.Valid {
			e.Temperature = &temp.Float64
		}
		if sg.Valid {
			e.SpecificGravity = &sg.Float64
		}
		if rssi.Valid {
			v := int(rssi.Int64)
			e.RSSI = &v
		}
		if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than now-olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := r.now().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM readings WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting readings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// parseTimestamp accepts our millisecond layout and the second-precision
// column default.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return t.UTC(), nil
}
