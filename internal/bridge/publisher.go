package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/beacon-bridge/internal/beacon"
	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
)

// PublisherStats is a snapshot of Publisher counters.
type PublisherStats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// maxUnmonitoredTracked bounds the set of UUIDs already warned about.
const maxUnmonitoredTracked = 1024

// Publisher relays advertisements to ibeacon/<uuid>.
//
// HandleAdvertisement is a beacon.Handler. Publish failures are logged and
// swallowed so the scan loop is never affected.
//
// Thread Safety: HandleAdvertisement is safe for concurrent use.
type Publisher struct {
	client      MQTTClient
	registry    Registry
	qos         byte
	retain      bool
	updateState bool

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64

	unmonitored   map[string]struct{}
	unmonitoredMu sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// Client publishes readings (required).
	Client MQTTClient

	// Registry decides which UUIDs are relayed (required).
	Registry Registry

	// QoS for reading messages (0-2).
	QoS byte

	// Retain marks reading messages retained.
	Retain bool

	// UpdateState applies each advertisement to the registry before
	// publishing. Leave false when a Subscriber in the same process owns
	// local state.
	UpdateState bool

	// Logger is optional.
	Logger Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.QoS > 2 {
		return nil, mqtt.ErrInvalidQoS
	}

	p := &Publisher{
		client:      opts.Client,
		registry:    opts.Registry,
		qos:         opts.QoS,
		retain:      opts.Retain,
		updateState: opts.UpdateState,
		unmonitored: make(map[string]struct{}),
		logger:      noopLogger{},
	}
	if opts.Logger != nil {
		p.logger = opts.Logger
	}
	return p, nil
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}

func (p *Publisher) log() Logger {
	p.loggerMu.RLock()
	defer p.loggerMu.RUnlock()
	return p.logger
}

// HandleAdvertisement resolves, optionally applies, and publishes one
// advertisement. Unmonitored UUIDs are dropped; the first sighting of each is
// logged at warn, repeats at debug.
func (p *Publisher) HandleAdvertisement(adv beacon.Advertisement) {
	if !p.registry.Accepts(adv.UUID) {
		p.dropped.Add(1)
		logf := p.log().Debug
		if p.firstSighting(adv.UUID) {
			logf = p.log().Warn
		}
		logf("dropping advertisement for unmonitored iBeacon",
			"uuid", adv.UUID,
			"address", adv.SourceAddress,
		)
		return
	}

	if p.updateState {
		// ErrNotMonitored here means wildcard mode without local state;
		// the registry has already logged it.
		_, err := p.registry.Apply(adv.UUID, device.FieldsFrom(adv.Major, adv.Minor, adv.SignalStrength))
		if err != nil && !errors.Is(err, device.ErrNotMonitored) {
			p.log().Error("failed to apply advertisement", "uuid", adv.UUID, "error", err)
		}
	}

	if err := p.Publish(adv); err != nil {
		p.failed.Add(1)
		p.log().Error("failed to publish iBeacon reading",
			"uuid", adv.UUID,
			"error", err,
		)
		return
	}
	p.published.Add(1)
}

// firstSighting records uuid and reports whether it was new. Once the set
// is full every sighting counts as a repeat.
func (p *Publisher) firstSighting(uuid string) bool {
	p.unmonitoredMu.Lock()
	defer p.unmonitoredMu.Unlock()

	if _, ok := p.unmonitored[uuid]; ok {
		return false
	}
	if len(p.unmonitored) >= maxUnmonitoredTracked {
		return false
	}
	p.unmonitored[uuid] = struct{}{}
	return true
}

// Publish sends {"major","minor"} for adv to ibeacon/<uuid>.
func (p *Publisher) Publish(adv beacon.Advertisement) error {
	payload, err := json.Marshal(NewMessage(adv))
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	return p.client.Publish(mqtt.Topics{}.Beacon(adv.UUID), payload, p.qos, p.retain)
}

// Stats returns a snapshot of the publish counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}
