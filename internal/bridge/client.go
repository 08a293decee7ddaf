package bridge

import (
	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
)

// MQTTClient is the interface for MQTT operations.
// *mqtt.Client satisfies it; tests use MockMQTTClient.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes the subscription for a topic.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Registry is the subset of *device.Registry used by the bridge.
type Registry interface {
	Accepts(uuid string) bool
	Apply(uuid string, f device.Fields) (device.Snapshot, error)
	Identities() []device.Identity
}

// Logger is the logging interface used by bridge components.
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
