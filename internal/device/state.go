package device

import (
	"sync"
	"time"
)

// State holds the latest readings for one identity.
//
// A nil field means "not yet seen". Fields are overwritten individually, so
// temperature and specific gravity may come from different advertisements.
//
// Thread Safety: all methods are safe for concurrent use.
type State struct {
	identity Identity

	mu              sync.RWMutex
	temperature     *float64
	specificGravity *float64
	rssi            *int
	updatedAt       time.Time
	updates         uint64
}

func newState(identity Identity) *State {
	return &State{identity: identity}
}

// Identity returns the identity this state belongs to.
func (s *State) Identity() Identity {
	return s.identity
}

// apply overwrites the fields present in r and returns the resulting snapshot.
func (s *State) apply(r Reading, at time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Temperature != nil {
		v := *r.Temperature
		s.temperature = &v
	}
	if r.SpecificGravity != nil {
		v := *r.SpecificGravity
		s.specificGravity = &v
	}
	if r.RSSI != nil {
		v := *r.RSSI
		s.rssi = &v
	}
	s.updatedAt = at
	s.updates++

	return s.snapshotLocked()
}

// Value returns the current value of a metric and whether it has been seen.
func (s *State) Value(m Metric) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch m {
	case MetricTemperature:
		if s.temperature != nil {
			return *s.temperature, true
		}
	case MetricSpecificGravity:
		if s.specificGravity != nil {
			return *s.specificGravity, true
		}
	case MetricRSSI:
		if s.rssi != nil {
			return float64(*s.rssi), true
		}
	}
	return 0, false
}

// Available reports whether a metric has a value.
func (s *State) Available(m Metric) bool {
	_, ok := s.Value(m)
	return ok
}

// Snapshot returns an immutable copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		DeviceID:  s.identity.ID,
		Name:      s.identity.Name,
		UUID:      s.identity.UUID,
		UpdatedAt: s.updatedAt,
		Updates:   s.updates,
	}
	if s.identity.Decoder != nil {
		snap.Decoder = s.identity.Decoder.Name()
	}
	if s.temperature != nil {
		v := *s.temperature
		snap.Temperature = &v
	}
	if s.specificGravity != nil {
		v := *s.specificGravity
		snap.SpecificGravity = &v
	}
	if s.rssi != nil {
		v := *s.rssi
		snap.RSSI = &v
	}
	return snap
}

// Snapshot is a point-in-time copy of a device state. It is safe to share.
type Snapshot struct {
	DeviceID        string    `json:"device_id"`
	Name            string    `json:"name"`
	UUID            string    `json:"uuid"`
	Decoder         string    `json:"decoder"`
	Temperature     *float64  `json:"temperature,omitempty"`
	SpecificGravity *float64  `json:"specific_gravity,omitempty"`
	RSSI            *int      `json:"rssi,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
	Updates         uint64    `json:"updates"`
}

// Seen reports whether any reading has been applied.
func (s Snapshot) Seen() bool {
	return s.Updates > 0
}
