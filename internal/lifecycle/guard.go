// Package lifecycle provides the Stopped/Active toggle shared by components
// that own a single external handle (a BLE scan, a set of MQTT subscriptions).
//
// The presence of a handle is the only state. Start while Active and Stop
// while Stopped are no-ops that report false, never errors.
//
// Thread Safety: all methods are safe for concurrent use. Acquire and release
// callbacks run while the guard's mutex is held, so they must not call back
// into the same Guard.
package lifecycle

import "sync"

// State is the observable lifecycle state of a guarded component.
type State int

const (
	// Stopped means no handle is held. This is the initial state.
	Stopped State = iota

	// Active means a handle has been acquired and not yet released.
	Active
)

// String returns the lowercase state name used in logs and health payloads.
func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "stopped"
}

// Guard serialises transitions around a single optional handle of type H.
type Guard[H any] struct {
	mu     sync.Mutex
	handle H
	held   bool
}

// Start acquires a handle if none is held.
//
// Returns:
//   - bool: true if a transition Stopped→Active happened, false if already Active
//   - error: the acquire error; the guard stays Stopped when it is non-nil
func (g *Guard[H]) Start(acquire func() (H, error)) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return false, nil
	}

	h, err := acquire()
	if err != nil {
		return false, err
	}

	g.handle = h
	g.held = true
	return true, nil
}

// Stop releases the held handle exactly once.
//
// The guard is cleared even if release returns an error, so a failing
// transport can never leave the component stuck in Active.
//
// Returns:
//   - bool: true if a transition Active→Stopped happened, false if already Stopped
//   - error: the release error, if any
func (g *Guard[H]) Stop(release func(H) error) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.held {
		return false, nil
	}

	h := g.handle
	var zero H
	g.handle = zero
	g.held = false

	if release == nil {
		return true, nil
	}
	return true, release(h)
}

// State reports the current lifecycle state.
func (g *Guard[H]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return Active
	}
	return Stopped
}

// Active is shorthand for State() == Active.
func (g *Guard[H]) Active() bool {
	return g.State() == Active
}
