package beacon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/beacon-bridge/internal/lifecycle"
)

// Scanner is the radio collaborator. Scan blocks, delivering every received
// packet to onPacket on the scanner's own goroutine, until ctx is cancelled
// or the adapter fails.
type Scanner interface {
	Scan(ctx context.Context, onPacket func(Packet)) error
}

// Handler receives decoded advertisements. It may run concurrently with
// Start and Stop.
type Handler func(Advertisement)

// Filter reports whether an advertisement should reach the handler.
// A nil Filter accepts everything.
type Filter func(Advertisement) bool

// Logger is the logging interface used by Source.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats is a snapshot of Source counters.
type Stats struct {
	PacketsReceived uint64 `json:"packets_received"`
	Dispatched      uint64 `json:"dispatched"`
	DecodeFailures  uint64 `json:"decode_failures"`
	Filtered        uint64 `json:"filtered"`
	ScanFailures    uint64 `json:"scan_failures"`
	Restarting      bool   `json:"restarting"`
}

const (
	defaultRestartDelay    = time.Second
	defaultMaxRestartDelay = 30 * time.Second
)

// scanRun is the handle for one active scan.
type scanRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Source controls the scan and dispatches decoded advertisements.
//
// Thread Safety: Start, Stop and State are safe for concurrent use.
type Source struct {
	scanner Scanner
	handler Handler
	filter  Filter
	guard   lifecycle.Guard[*scanRun]

	restartDelay    time.Duration
	maxRestartDelay time.Duration
	restarting      atomic.Bool

	packets     atomic.Uint64
	dispatched  atomic.Uint64
	decodeFails atomic.Uint64
	filtered    atomic.Uint64
	scanFails   atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// SourceOptions configures a Source.
type SourceOptions struct {
	// Scanner is the radio collaborator (required).
	Scanner Scanner

	// Handler receives each decoded advertisement (required).
	Handler Handler

	// Filter restricts which advertisements reach Handler. Nil accepts all,
	// leaving identity filtering to the handler.
	Filter Filter

	// RestartDelay is the wait before re-running a scan that failed.
	// It doubles after each consecutive failure up to MaxRestartDelay.
	// Zero values select 1s and 30s.
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// Logger is optional.
	Logger Logger
}

// NewSource creates a Source in the Stopped state.
func NewSource(opts SourceOptions) (*Source, error) {
	if opts.Scanner == nil {
		return nil, ErrNoScanner
	}
	if opts.Handler == nil {
		return nil, errors.New("beacon: handler is required")
	}

	s := &Source{
		scanner:         opts.Scanner,
		handler:         opts.Handler,
		filter:          opts.Filter,
		restartDelay:    opts.RestartDelay,
		maxRestartDelay: opts.MaxRestartDelay,
		logger:          noopLogger{},
	}
	if s.restartDelay <= 0 {
		s.restartDelay = defaultRestartDelay
	}
	if s.maxRestartDelay < s.restartDelay {
		s.maxRestartDelay = max(defaultMaxRestartDelay, s.restartDelay)
	}
	if opts.Logger != nil {
		s.logger = opts.Logger
	}
	return s, nil
}

// SetLogger replaces the logger.
func (s *Source) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Source) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Start begins scanning in the background. Calling Start while a scan is
// active is a no-op.
func (s *Source) Start() error {
	started, err := s.guard.Start(func() (*scanRun, error) {
		ctx, cancel := context.WithCancel(context.Background())
		run := &scanRun{cancel: cancel, done: make(chan struct{})}
		go s.scan(ctx, run)
		return run, nil
	})
	if err != nil {
		return err
	}
	if !started {
		s.log().Debug("already scanning for iBeacons")
		return nil
	}
	s.log().Info("started scanning for iBeacons")
	return nil
}

// Stop terminates the active scan and waits for the scanner to return.
// Calling Stop while stopped is a no-op.
func (s *Source) Stop() {
	stopped, _ := s.guard.Stop(func(run *scanRun) error { //nolint:errcheck // release never fails
		run.cancel()
		<-run.done
		return nil
	})
	if !stopped {
		s.log().Debug("already not scanning for iBeacons")
		return
	}
	s.log().Info("stopped scanning for iBeacons")
}

// State reports whether a scan is active.
func (s *Source) State() lifecycle.State {
	return s.guard.State()
}

// Stats returns a snapshot of the dispatch counters.
func (s *Source) Stats() Stats {
	return Stats{
		PacketsReceived: s.packets.Load(),
		Dispatched:      s.dispatched.Load(),
		DecodeFailures:  s.decodeFails.Load(),
		Filtered:        s.filtered.Load(),
		ScanFailures:    s.scanFails.Load(),
		Restarting:      s.restarting.Load(),
	}
}

// scan runs the scanner until its context is cancelled. A scanner that
// returns for any other reason is run again after a backoff delay, so only
// Stop ends the scan.
func (s *Source) scan(ctx context.Context, run *scanRun) {
	defer close(run.done)
	defer s.restarting.Store(false)

	delay := s.restartDelay
	for {
		started := time.Now()
		err := s.scanner.Scan(ctx, s.handlePacket)
		if ctx.Err() != nil {
			return
		}

		s.scanFails.Add(1)
		if err != nil {
			s.log().Error("iBeacon scan terminated", "error", err)
		} else {
			s.log().Warn("iBeacon scan returned without being stopped")
		}

		// A scan that ran for a while before failing starts the backoff over.
		if time.Since(started) > s.maxRestartDelay {
			delay = s.restartDelay
		}

		s.restarting.Store(true)
		s.log().Info("restarting iBeacon scan", "delay", delay.String())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.restarting.Store(false)

		delay = min(delay*2, s.maxRestartDelay)
	}
}

// handlePacket decodes one packet and dispatches it.
func (s *Source) handlePacket(p Packet) {
	s.packets.Add(1)

	adv, err := Decode(p)
	if err != nil {
		if errors.Is(err, ErrNotIBeacon) {
			return
		}
		s.decodeFails.Add(1)
		s.log().Error("failed to decode iBeacon advertisement",
			"address", p.Address,
			"error", err,
		)
		return
	}

	if s.filter != nil && !s.filter(adv) {
		s.filtered.Add(1)
		return
	}

	s.log().Debug("received iBeacon", "advertisement", adv.String())
	s.dispatched.Add(1)
	s.handler(adv)
}
