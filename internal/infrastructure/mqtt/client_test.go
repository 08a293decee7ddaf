package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/beacon-bridge/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "beaconbridge-test",
			TLS:      false,
		},
		QoS: 0,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// fakeMessage implements pahomqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// recordingLogger captures errors and warnings.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// tracked reports whether topic will be replayed on reconnect.
func tracked(c *Client, topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "beaconbridge-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured for plain connection")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl scheme", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS minimum version not set")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	topic := Topics{}.BridgeStatus("brewshed")

	configureLWT(opts, topic, "beaconbridge")

	if !opts.WillEnabled {
		t.Fatal("will not enabled")
	}
	if opts.WillTopic != "ibeacon/bridge/brewshed/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if opts.WillQos != statusQoS || !opts.WillRetained {
		t.Errorf("will qos/retained = %d/%v", opts.WillQos, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), `"status":"offline"`) {
		t.Errorf("WillPayload = %s", opts.WillPayload)
	}
}

func TestEncodeStatus(t *testing.T) {
	tests := []struct {
		status string
		reason string
	}{
		{"online", ""},
		{"offline", reasonShutdown},
		{"offline", reasonUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.reason, func(t *testing.T) {
			var got statusPayload
			if err := json.Unmarshal(encodeStatus(tt.status, "bb", tt.reason), &got); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if got.Status != tt.status || got.ClientID != "bb" || got.Reason != tt.reason {
				t.Errorf("payload = %+v", got)
			}
			if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
				t.Errorf("timestamp %q: %v", got.Timestamp, err)
			}
		})
	}
}

// =============================================================================
// Disconnected Client Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 0, ErrInvalidTopic},
		{"invalid qos", "ibeacon/x", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "ibeacon/x", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
		{"disconnected", "ibeacon/x", []byte("x"), 0, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 0, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v", err)
	}
	if err := client.Subscribe("ibeacon/+", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v", err)
	}
	if err := client.Subscribe("ibeacon/+", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v", err)
	}
	if err := client.Subscribe("ibeacon/+", 0, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v", err)
	}
	if tracked(client, "ibeacon/+") || len(client.subscriptions) != 0 {
		t.Error("failed subscribe was tracked")
	}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v", err)
	}
	if err := client.Unsubscribe("ibeacon/+"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe(disconnected) error = %v", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestWrapHandler_DeliversMessage(t *testing.T) {
	client := &Client{}
	var gotTopic, gotPayload string

	h := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return nil
	})
	h(nil, fakeMessage{topic: "ibeacon/abc", payload: []byte(`{"major":1}`)})

	if gotTopic != "ibeacon/abc" || gotPayload != `{"major":1}` {
		t.Errorf("handler got %q %q", gotTopic, gotPayload)
	}
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	h := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	h(nil, fakeMessage{topic: "ibeacon/abc"})

	if len(logger.errors) != 1 {
		t.Errorf("panic logged %d times, want 1", len(logger.errors))
	}
}

func TestWrapHandler_LogsHandlerError(t *testing.T) {
	logger := &recordingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	h := client.wrapHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})
	h(nil, fakeMessage{topic: "ibeacon/abc"})

	if len(logger.warns) != 1 {
		t.Errorf("handler error logged %d times, want 1", len(logger.warns))
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	client := &Client{}
	h := client.wrapHandler(func(string, []byte) error { panic("boom") })

	// Must not propagate the panic.
	h(nil, fakeMessage{topic: "ibeacon/abc"})
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name:     "Beacon",
			builder:  func() string { return Topics{}.Beacon("a495bb30-c5b1-4b44-b512-1370f02d74de") },
			expected: "ibeacon/a495bb30-c5b1-4b44-b512-1370f02d74de",
		},
		{
			name:     "AllBeacons",
			builder:  func() string { return Topics{}.AllBeacons() },
			expected: "ibeacon/+",
		},
		{
			name:     "BridgeStatus",
			builder:  func() string { return Topics{}.BridgeStatus("brewshed") },
			expected: "ibeacon/bridge/brewshed/status",
		},
		{
			name:     "AllBridgeStatus",
			builder:  func() string { return Topics{}.AllBridgeStatus() },
			expected: "ibeacon/bridge/+/status",
		},
		{
			name:     "Discovery",
			builder:  func() string { return Topics{}.Discovery("homeassistant", "sensor", "brewshed", "tilt-black-temperature") },
			expected: "homeassistant/sensor/brewshed/tilt-black-temperature/config",
		},
		{
			name:     "DiscoveryDefaultPrefix",
			builder:  func() string { return Topics{}.Discovery("", "sensor", "n", "o") },
			expected: "homeassistant/sensor/n/o/config",
		},
		{
			name:     "HomeAssistantStatus",
			builder:  func() string { return Topics{}.HomeAssistantStatus("ha") },
			expected: "ha/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}
