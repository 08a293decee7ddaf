package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Listener is notified after every state mutation. Listeners run on the
// goroutine that applied the update and must not block for long.
type Listener func(Snapshot)

// Registry maps configured identities to their states.
//
// The identity set is fixed by NewRegistry. Lookups are exact matches on the
// canonical lowercase UUID, so mixed-case input resolves to the same state.
//
// All public methods are thread-safe.
type Registry struct {
	byUUID   map[string]*State
	byID     map[string]*State
	ordered  []*State
	wildcard bool

	listeners   []Listener
	listenersMu sync.RWMutex

	rejected atomic.Uint64
	now      func() time.Time

	logger   Logger
	loggerMu sync.RWMutex
}

// NewRegistry creates a registry holding one state per distinct identity.
//
// Identities sharing a UUID collapse into the first one given. Two
// identities with the same ID but different UUIDs are a configuration error.
// Including AnyIBeacon makes Accepts true for every UUID.
func NewRegistry(identities ...Identity) (*Registry, error) {
	r := &Registry{
		byUUID: make(map[string]*State, len(identities)),
		byID:   make(map[string]*State, len(identities)),
		now:    func() time.Time { return time.Now().UTC() },
		logger: noopLogger{},
	}

	for _, ident := range identities {
		if ident.IsWildcard() {
			r.wildcard = true
			continue
		}
		if err := ValidateIdentity(ident); err != nil {
			return nil, err
		}
		ident.UUID = normalizeUUID(ident.UUID)

		if _, ok := r.byUUID[ident.UUID]; ok {
			continue
		}
		if existing, ok := r.byID[ident.ID]; ok {
			return nil, fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateID, ident.ID, existing.identity.UUID, ident.UUID)
		}

		st := newState(ident)
		r.byUUID[ident.UUID] = st
		r.byID[ident.ID] = st
		r.ordered = append(r.ordered, st)
	}

	return r, nil
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Registry) log() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

// OnUpdate registers a listener for state mutations.
func (r *Registry) OnUpdate(l Listener) {
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, l)
	r.listenersMu.Unlock()
}

// Wildcard reports whether the registry accepts any UUID.
func (r *Registry) Wildcard() bool {
	return r.wildcard
}

// Accepts reports whether advertisements for uuid should be relayed.
func (r *Registry) Accepts(uuid string) bool {
	if r.wildcard {
		return true
	}
	_, ok := r.byUUID[normalizeUUID(uuid)]
	return ok
}

// Resolve returns the state for uuid, or ErrNotMonitored.
func (r *Registry) Resolve(uuid string) (*State, error) {
	st, ok := r.byUUID[normalizeUUID(uuid)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMonitored, uuid)
	}
	return st, nil
}

// Lookup returns the state for a device ID, or ErrDeviceNotFound.
func (r *Registry) Lookup(id string) (*State, error) {
	st, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return st, nil
}

// Apply decodes f with the identity's decoder, overwrites the present
// fields and notifies listeners.
//
// Unknown UUIDs are logged and rejected with ErrNotMonitored; no state is
// created for them. In wildcard mode the rejection is expected, so it is
// only logged at debug and not counted in Rejected.
//
// When the decoder derives no value from f (a major-decoder beacon sent only
// a minor), the current snapshot is returned with ErrNoReading. Nothing is
// stamped and listeners are not called.
func (r *Registry) Apply(uuid string, f Fields) (Snapshot, error) {
	st, err := r.Resolve(uuid)
	if err != nil {
		if r.wildcard {
			r.log().Debug("no state kept for iBeacon", "uuid", uuid)
		} else {
			r.rejected.Add(1)
			r.log().Warn("ignoring update for unmonitored iBeacon", "uuid", uuid)
		}
		return Snapshot{}, err
	}

	reading := st.identity.Decoder.Decode(f)
	if reading.Empty() {
		r.log().Debug("no reading derivable from update",
			"device_id", st.identity.ID,
			"decoder", st.identity.Decoder.Name(),
		)
		return st.Snapshot(), ErrNoReading
	}

	snap := st.apply(reading, r.now())

	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()
	for _, l := range listeners {
		l(snap)
	}

	return snap, nil
}

// Identities returns the concrete identities in configuration order.
func (r *Registry) Identities() []Identity {
	out := make([]Identity, 0, len(r.ordered))
	for _, st := range r.ordered {
		out = append(out, st.identity)
	}
	return out
}

// States returns the live states in configuration order.
func (r *Registry) States() []*State {
	return append([]*State(nil), r.ordered...)
}

// Snapshots returns a snapshot of every state in configuration order.
func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(r.ordered))
	for _, st := range r.ordered {
		out = append(out, st.Snapshot())
	}
	return out
}

// Get returns a snapshot for a device ID.
func (r *Registry) Get(id string) (Snapshot, error) {
	st, err := r.Lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return st.Snapshot(), nil
}

// Len returns the number of concrete identities.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Rejected returns how many updates were dropped for UUIDs outside a
// concrete identity set.
func (r *Registry) Rejected() uint64 {
	return r.rejected.Load()
}
