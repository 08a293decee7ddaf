package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/beacon-bridge/internal/sensor"
)

// Home Assistant birth payload on <prefix>/status.
const homeAssistantOnline = "online"

// Value templates read the {"major","minor"} payload on ibeacon/<uuid>.
const (
	templateMajor   = "{{ value_json.major }}"
	templateGravity = "{{ (value_json.minor | float / 1000) | round(3) }}"

	// templateAvailability maps the bridge health message to online/offline.
	templateAvailability = "{{ 'offline' if value_json.status in ['offline', 'stopping'] else 'online' }}"
)

// DiscoveryConfig is the Home Assistant MQTT discovery payload for one sensor.
type DiscoveryConfig struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	ObjectID            string          `json:"object_id"`
	StateTopic          string          `json:"state_topic"`
	ValueTemplate       string          `json:"value_template"`
	UnitOfMeasurement   string          `json:"unit_of_measurement,omitempty"`
	DeviceClass         string          `json:"device_class,omitempty"`
	StateClass          string          `json:"state_class"`
	AvailabilityTopic   string          `json:"availability_topic"`
	AvailabilityTmpl    string          `json:"availability_template"`
	PayloadAvailable    string          `json:"payload_available"`
	PayloadNotAvailable string          `json:"payload_not_available"`
	Device              DiscoveryDevice `json:"device"`
}

// DiscoveryDevice groups sensors of one beacon under a Home Assistant device.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// DiscoveryOptions configures an Announcer.
type DiscoveryOptions struct {
	Client   MQTTClient
	Sensors  []sensor.Sensor
	BridgeID string
	Version  string

	// Prefix is the discovery prefix. Default: "homeassistant".
	Prefix string

	Logger Logger
}

// Announcer publishes retained discovery configs for a set of sensors and
// republishes them whenever Home Assistant comes back online.
type Announcer struct {
	client   MQTTClient
	sensors  []sensor.Sensor
	bridgeID string
	version  string
	prefix   string

	watching   bool
	watchingMu sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(opts DiscoveryOptions) (*Announcer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.BridgeID == "" {
		return nil, fmt.Errorf("bridge ID is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = mqtt.DefaultDiscoveryPrefix
	}

	a := &Announcer{
		client:   opts.Client,
		sensors:  opts.Sensors,
		bridgeID: opts.BridgeID,
		version:  opts.Version,
		prefix:   prefix,
		logger:   noopLogger{},
	}
	if opts.Logger != nil {
		a.logger = opts.Logger
	}
	return a, nil
}

// SetLogger sets the logger for the announcer.
func (a *Announcer) SetLogger(logger Logger) {
	a.loggerMu.Lock()
	a.logger = logger
	a.loggerMu.Unlock()
}

func (a *Announcer) log() Logger {
	a.loggerMu.RLock()
	defer a.loggerMu.RUnlock()
	return a.logger
}

// Topic returns the discovery config topic for s.
func (a *Announcer) Topic(s sensor.Sensor) string {
	return mqtt.Topics{}.Discovery(a.prefix, "sensor", a.bridgeID, s.ID())
}

// Config builds the discovery payload for s.
func (a *Announcer) Config(s sensor.Sensor) DiscoveryConfig {
	ident := s.Identity()

	cfg := DiscoveryConfig{
		Name:                s.Name(),
		UniqueID:            a.bridgeID + "_" + strings.ReplaceAll(s.ID(), "-", "_"),
		ObjectID:            strings.ReplaceAll(s.ID(), "-", "_"),
		StateTopic:          mqtt.Topics{}.Beacon(ident.UUID),
		UnitOfMeasurement:   s.Unit(),
		StateClass:          "measurement",
		AvailabilityTopic:   mqtt.Topics{}.BridgeStatus(a.bridgeID),
		AvailabilityTmpl:    templateAvailability,
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
		Device: DiscoveryDevice{
			Identifiers:  []string{a.bridgeID + "_" + ident.ID},
			Name:         ident.Name,
			Manufacturer: "Beacon Bridge",
			Model:        modelFor(ident),
			SWVersion:    a.version,
		},
	}

	switch s.Metric() {
	case device.MetricTemperature:
		cfg.ValueTemplate = templateMajor
		cfg.DeviceClass = "temperature"
	case device.MetricSpecificGravity:
		cfg.ValueTemplate = templateGravity
	}
	return cfg
}

func modelFor(ident device.Identity) string {
	if ident.Decoder != nil && ident.Decoder.Name() == "tilt" {
		return "Tilt Hydrometer"
	}
	return "iBeacon"
}

// Announce publishes every sensor config retained at QoS 1. Failures are
// logged and the remaining sensors are still announced.
func (a *Announcer) Announce() error {
	var errs []error
	for _, s := range a.sensors {
		payload, err := json.Marshal(a.Config(s))
		if err != nil {
			errs = append(errs, fmt.Errorf("marshalling %s: %w", s.ID(), err))
			continue
		}
		if err := a.client.Publish(a.Topic(s), payload, 1, true); err != nil {
			a.log().Error("failed to announce sensor", "sensor", s.ID(), "error", err)
			errs = append(errs, fmt.Errorf("announcing %s: %w", s.ID(), err))
		}
	}
	if len(errs) == 0 {
		a.log().Info("announced sensors to Home Assistant", "sensors", len(a.sensors), "prefix", a.prefix)
	}
	return errors.Join(errs...)
}

// Remove clears every retained config so Home Assistant deletes the sensors.
func (a *Announcer) Remove() error {
	var errs []error
	for _, s := range a.sensors {
		if err := a.client.Publish(a.Topic(s), []byte{}, 1, true); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Watch subscribes to the Home Assistant status topic and re-announces on
// every "online" birth message. Calling Watch twice is a no-op.
func (a *Announcer) Watch() error {
	a.watchingMu.Lock()
	defer a.watchingMu.Unlock()
	if a.watching {
		return nil
	}

	topic := mqtt.Topics{}.HomeAssistantStatus(a.prefix)
	if err := a.client.Subscribe(topic, 1, a.handleStatus); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	a.watching = true
	return nil
}

// Unwatch releases the Home Assistant status subscription.
func (a *Announcer) Unwatch() error {
	a.watchingMu.Lock()
	defer a.watchingMu.Unlock()
	if !a.watching {
		return nil
	}
	a.watching = false
	return a.client.Unsubscribe(mqtt.Topics{}.HomeAssistantStatus(a.prefix))
}

func (a *Announcer) handleStatus(_ string, payload []byte) error {
	if strings.TrimSpace(string(payload)) != homeAssistantOnline {
		return nil
	}
	a.log().Info("Home Assistant online, re-announcing sensors")
	if err := a.Announce(); err != nil {
		a.log().Error("failed to re-announce sensors", "error", err)
	}
	return nil
}
