//go:build integration

package mqtt

import (
	"errors"
	"testing"
	"time"
)

// Integration tests against a live broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg, Topics{}.BridgeStatus(clientID))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_Connect(t *testing.T) {
	client := connectTest(t, "beaconbridge-int-connect")
	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg, "")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_CloseThenPublish(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "beaconbridge-int-close"
	client, err := Connect(cfg, "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.Publish("ibeacon/x", []byte("x"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestIntegration_BeaconRoundtrip(t *testing.T) {
	client := connectTest(t, "beaconbridge-int-roundtrip")

	topic := Topics{}.Beacon("a495bb30-c5b1-4b44-b512-1370f02d74de")
	received := make(chan string, 1)

	err := client.Subscribe(Topics{}.AllBeacons(), 1, func(tp string, p []byte) error {
		if tp == topic {
			received <- string(p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !tracked(client, Topics{}.AllBeacons()) {
		t.Error("subscription not tracked")
	}

	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(topic, []byte(`{"major":68,"minor":1046}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `{"major":68,"minor":1046}` {
			t.Errorf("payload = %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	if err := client.Unsubscribe(Topics{}.AllBeacons()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if tracked(client, Topics{}.AllBeacons()) {
		t.Error("subscription still tracked after unsubscribe")
	}
}
