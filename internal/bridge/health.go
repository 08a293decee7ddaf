package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/beacon-bridge/internal/beacon"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/beacon-bridge/internal/lifecycle"
)

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates every enabled component is running.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge runs with a component down.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline is published by the broker from the Last Will.
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published to ibeacon/bridge/<bridge-id>/status.
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	Mode          string       `json:"mode"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	// Scanning is true while the BLE scan is active.
	Scanning bool `json:"scanning"`

	// Subscribed is true while the bus subscriptions are held.
	Subscribed bool `json:"subscribed"`

	DevicesMonitored int    `json:"devices_monitored"`
	RejectedUpdates  uint64 `json:"rejected_updates"`

	Scanner    *beacon.Stats    `json:"scanner,omitempty"`
	Publisher  *PublisherStats  `json:"publisher,omitempty"`
	Subscriber *SubscriberStats `json:"subscriber,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// HealthPublisher is the interface for publishing health messages.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// ScanSource is the view of beacon.Source the reporter needs.
type ScanSource interface {
	State() lifecycle.State
	Stats() beacon.Stats
}

// DeviceCounter is the view of device.Registry the reporter needs.
type DeviceCounter interface {
	Len() int
	Rejected() uint64
}

// HealthReporter manages periodic health status reporting.
type HealthReporter struct {
	bridgeID  string
	version   string
	mode      string
	startTime time.Time
	interval  time.Duration

	client     HealthPublisher
	scanner    ScanSource
	publisher  *Publisher
	subscriber *Subscriber
	devices    DeviceCounter

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
// Scanner, Publisher and Subscriber are nil when the mode does not run them.
type HealthReporterConfig struct {
	// BridgeID is the bridge identifier used in the topic and message.
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Mode is the configured bridge mode.
	Mode string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Client publishes the messages.
	Client HealthPublisher

	Scanner    ScanSource
	Publisher  *Publisher
	Subscriber *Subscriber
	Devices    DeviceCounter
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &HealthReporter{
		bridgeID:   cfg.BridgeID,
		version:    cfg.Version,
		mode:       cfg.Mode,
		startTime:  time.Now(),
		interval:   interval,
		client:     cfg.Client,
		scanner:    cfg.Scanner,
		publisher:  cfg.Publisher,
		subscriber: cfg.Subscriber,
		devices:    cfg.Devices,
		done:       make(chan struct{}),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

func (h *HealthReporter) log() Logger {
	h.loggerMu.RLock()
	defer h.loggerMu.RUnlock()
	return h.logger
}

// Topic returns the status topic for this bridge.
func (h *HealthReporter) Topic() string {
	return mqtt.Topics{}.BridgeStatus(h.bridgeID)
}

// Start begins periodic health reporting until ctx is cancelled or Stop
// is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // best-effort during shutdown
		h.publishStatus(HealthStopping, "bridge stopping")
	})
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// Current returns the health message the next report would publish.
func (h *HealthReporter) Current() HealthMessage {
	status, reason := h.determineStatus()
	return h.Message(status, reason)
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.log().Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.log().Error("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.client == nil || !h.client.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.scanner != nil {
		if h.scanner.State() != lifecycle.Active {
			return HealthDegraded, "scanner stopped"
		}
		if h.scanner.Stats().Restarting {
			return HealthDegraded, "scanner restarting"
		}
	}
	if h.subscriber != nil && h.subscriber.State() != lifecycle.Active {
		return HealthDegraded, "not subscribed"
	}
	return HealthHealthy, ""
}

// Message builds the health message for status.
func (h *HealthReporter) Message(status HealthStatus, reason string) HealthMessage {
	msg := HealthMessage{
		Bridge:        h.bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		Mode:          h.mode,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
	}
	if h.devices != nil {
		msg.DevicesMonitored = h.devices.Len()
		msg.RejectedUpdates = h.devices.Rejected()
	}
	if h.scanner != nil {
		stats := h.scanner.Stats()
		msg.Scanner = &stats
		msg.Scanning = h.scanner.State() == lifecycle.Active
	}
	if h.publisher != nil {
		stats := h.publisher.Stats()
		msg.Publisher = &stats
	}
	if h.subscriber != nil {
		stats := h.subscriber.Stats()
		msg.Subscriber = &stats
		msg.Subscribed = h.subscriber.State() == lifecycle.Active
	}
	return msg
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.client == nil {
		return nil
	}

	payload, err := json.Marshal(h.Message(status, reason))
	if err != nil {
		return err
	}
	return h.client.Publish(h.Topic(), payload, 1, true)
}
