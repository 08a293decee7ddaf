package bridge

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/beacon-bridge/internal/lifecycle"
)

// SubscriberStats is a snapshot of Subscriber counters.
type SubscriberStats struct {
	Received       uint64 `json:"received"`
	Applied        uint64 `json:"applied"`
	InvalidPayload uint64 `json:"invalid_payload"`
	PartialPayload uint64 `json:"partial_payload"`
	Topics         int    `json:"topics"`
}

// Subscriber consumes ibeacon/<uuid> messages into the registry.
//
// It subscribes one topic per configured identity on Start and releases
// them exactly once on Stop. Both are idempotent.
//
// Thread Safety: all methods are safe for concurrent use.
type Subscriber struct {
	client   MQTTClient
	registry Registry
	qos      byte

	guard  lifecycle.Guard[*subscriptionSet]
	active atomic.Bool

	received atomic.Uint64
	applied  atomic.Uint64
	invalid  atomic.Uint64
	partial  atomic.Uint64
	topics   atomic.Int64

	logger   Logger
	loggerMu sync.RWMutex
}

// subscriptionSet is the handle held while subscribed.
type subscriptionSet struct {
	topics []string
}

// SubscriberOptions configures a Subscriber.
type SubscriberOptions struct {
	// Client delivers messages (required).
	Client MQTTClient

	// Registry receives decoded fields (required).
	Registry Registry

	// QoS requested for subscriptions (0-2).
	QoS byte

	// Logger is optional.
	Logger Logger
}

// NewSubscriber creates a Subscriber in the Stopped state.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.QoS > 2 {
		return nil, mqtt.ErrInvalidQoS
	}

	s := &Subscriber{
		client:   opts.Client,
		registry: opts.Registry,
		qos:      opts.QoS,
		logger:   noopLogger{},
	}
	if opts.Logger != nil {
		s.logger = opts.Logger
	}
	return s, nil
}

// SetLogger sets the logger for the subscriber.
func (s *Subscriber) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Subscriber) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Start subscribes to every configured identity's topic. Calling Start
// while subscribed is a no-op.
//
// If any subscription fails the ones already made are released, the
// subscriber stays Stopped and the error is returned so the caller can
// retry (for example after the broker reconnects).
func (s *Subscriber) Start() error {
	started, err := s.guard.Start(s.subscribeAll)
	if err != nil {
		return err
	}
	if !started {
		s.log().Debug("already subscribed to iBeacon topics")
		return nil
	}
	s.log().Info("subscribed to iBeacon topics", "topics", s.topics.Load())
	return nil
}

func (s *Subscriber) subscribeAll() (*subscriptionSet, error) {
	idents := s.registry.Identities()
	topics := make([]string, 0, len(idents))

	s.active.Store(true)
	for _, ident := range idents {
		topic := mqtt.Topics{}.Beacon(ident.UUID)
		if err := s.client.Subscribe(topic, s.qos, s.handleMessage); err != nil {
			s.active.Store(false)
			s.unsubscribeAll(topics) //nolint:errcheck // rollback is best-effort
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		topics = append(topics, topic)
	}

	s.topics.Store(int64(len(topics)))
	return &subscriptionSet{topics: topics}, nil
}

// Stop releases every subscription. Calling Stop while stopped is a no-op.
// Unsubscribe failures are logged and returned joined; the subscriber is
// Stopped regardless.
func (s *Subscriber) Stop() error {
	stopped, err := s.guard.Stop(func(set *subscriptionSet) error {
		s.active.Store(false)
		return s.unsubscribeAll(set.topics)
	})
	if !stopped {
		s.log().Debug("already unsubscribed from iBeacon topics")
		return nil
	}
	s.topics.Store(0)
	if err != nil {
		s.log().Error("failed to release iBeacon subscriptions", "error", err)
		return err
	}
	s.log().Info("unsubscribed from iBeacon topics")
	return nil
}

func (s *Subscriber) unsubscribeAll(topics []string) error {
	var errs []error
	for _, topic := range topics {
		if err := s.client.Unsubscribe(topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing from %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// State reports whether the subscriptions are held.
func (s *Subscriber) State() lifecycle.State {
	return s.guard.State()
}

// Stats returns a snapshot of the subscriber counters.
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Received:       s.received.Load(),
		Applied:        s.applied.Load(),
		InvalidPayload: s.invalid.Load(),
		PartialPayload: s.partial.Load(),
		Topics:         int(s.topics.Load()),
	}
}

// handleMessage applies one bus message. Problems are logged here and never
// returned, so the MQTT client does not log them a second time.
func (s *Subscriber) handleMessage(topic string, payload []byte) error {
	if !s.active.Load() {
		return nil
	}
	s.received.Add(1)

	uuid, err := UUIDFromTopic(topic)
	if err != nil {
		s.log().Error("message on unexpected topic", "topic", topic)
		return nil
	}

	decoded, err := DecodeMessage(payload)
	if err != nil {
		s.invalid.Add(1)
		s.log().Error("failed to decode iBeacon message", "topic", topic, "error", err)
		return nil
	}

	if len(decoded.Missing) > 0 || len(decoded.Invalid) > 0 {
		s.partial.Add(1)
	}
	for _, field := range decoded.Missing {
		s.log().Error("iBeacon message is missing field", "topic", topic, "field", field)
	}
	for field, ferr := range decoded.Invalid {
		s.log().Error("iBeacon message has invalid field", "topic", topic, "field", field, "error", ferr)
	}
	if decoded.Empty() {
		return nil
	}

	if _, err := s.registry.Apply(uuid, decoded.Fields); err != nil {
		// Unknown identities and underivable readings are logged by the registry.
		return nil
	}
	s.applied.Add(1)
	return nil
}
