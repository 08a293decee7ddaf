package bridge

import (
	"fmt"
	"sync"

	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu             sync.Mutex
	published      []mockPublish
	subscriptions  []mockSubscription
	unsubscribed   []string
	handlers       map[string]mqtt.MessageHandler
	connected      bool
	publishErr     error
	failSubscribe  map[string]error
	unsubscribeErr error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected:     true,
		handlers:      make(map[string]mqtt.MessageHandler),
		failSubscribe: make(map[string]error),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  append([]byte(nil), payload...),
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSubscribe[topic]; err != nil {
		return err
	}
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribeErr != nil {
		return m.unsubscribeErr
	}
	if _, ok := m.handlers[topic]; !ok {
		return fmt.Errorf("not subscribed to %s", topic)
	}
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	m.mu.Unlock()
}

func (m *MockMQTTClient) SetPublishError(err error) {
	m.mu.Lock()
	m.publishErr = err
	m.mu.Unlock()
}

func (m *MockMQTTClient) FailSubscribe(topic string, err error) {
	m.mu.Lock()
	m.failSubscribe[topic] = err
	m.mu.Unlock()
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

func (m *MockMQTTClient) GetUnsubscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unsubscribed...)
}

func (m *MockMQTTClient) ActiveHandlers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// SimulateMessage delivers a message to the handler subscribed on topic.
// It reports whether a handler was found.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) bool {
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if ok {
		//nolint:errcheck // handlers under test never return errors
		handler(topic, payload)
	}
	return ok
}

// recordingLogger captures log records by level.
type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

type logRecord struct {
	level string
	msg   string
	args  []any
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	l.records = append(l.records, logRecord{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.level == level {
			n++
		}
	}
	return n
}

// hasArg reports whether any record at level has key=value in its args.
func (l *recordingLogger) hasArg(level, key string, value any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.level != level {
			continue
		}
		for i := 0; i+1 < len(r.args); i += 2 {
			if r.args[i] == key && r.args[i+1] == value {
				return true
			}
		}
	}
	return false
}
