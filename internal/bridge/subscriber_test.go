package bridge

import (
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/lifecycle"
	"github.com/nerrad567/beacon-bridge/internal/tilt"
)

func newTestSubscriber(t *testing.T, client MQTTClient, reg Registry) (*Subscriber, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	s, err := NewSubscriber(SubscriberOptions{Client: client, Registry: reg, Logger: log})
	if err != nil {
		t.Fatalf("NewSubscriber() error = %v", err)
	}
	return s, log
}

func TestSubscriber_StartSubscribesEachIdentity(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity(), tilt.Red.Identity())
	s, _ := newTestSubscriber(t, client, reg)

	if s.State() != lifecycle.Stopped {
		t.Fatalf("initial State() = %v", s.State())
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	subs := client.GetSubscriptions()
	if len(subs) != 2 {
		t.Fatalf("subscriptions = %+v, want 2", subs)
	}
	if subs[0].Topic != "ibeacon/"+tilt.Black.UUID() || subs[1].Topic != "ibeacon/"+tilt.Red.UUID() {
		t.Errorf("topics = %s, %s", subs[0].Topic, subs[1].Topic)
	}
	if s.State() != lifecycle.Active {
		t.Errorf("State() = %v, want active", s.State())
	}
	if s.Stats().Topics != 2 {
		t.Errorf("Stats().Topics = %d, want 2", s.Stats().Topics)
	}
}

func TestSubscriber_DoubleStartDoubleStop(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, log := newTestSubscriber(t, client, reg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if n := len(client.GetSubscriptions()); n != 1 {
		t.Errorf("subscriptions after double start = %d, want 1", n)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if got := client.GetUnsubscribed(); len(got) != 1 {
		t.Errorf("unsubscribed = %v, want exactly one", got)
	}
	if s.State() != lifecycle.Stopped {
		t.Errorf("State() = %v, want stopped", s.State())
	}
	if log.count("debug") != 2 {
		t.Errorf("debug logs = %d, want 2 (one per no-op)", log.count("debug"))
	}
}

func TestSubscriber_Restart(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, _ := newTestSubscriber(t, client, reg)

	for i := 0; i < 3; i++ {
		if err := s.Start(); err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
		if err := s.Stop(); err != nil {
			t.Fatalf("Stop() #%d error = %v", i, err)
		}
	}
	if client.ActiveHandlers() != 0 {
		t.Errorf("%d handlers still registered", client.ActiveHandlers())
	}
	if n := len(client.GetUnsubscribed()); n != 3 {
		t.Errorf("unsubscribed %d times, want 3", n)
	}
}

func TestSubscriber_StartFailureRollsBack(t *testing.T) {
	client := NewMockMQTTClient()
	client.FailSubscribe("ibeacon/"+tilt.Red.UUID(), errors.New("not authorised"))
	reg := newTestRegistry(t, tilt.Black.Identity(), tilt.Red.Identity())
	s, _ := newTestSubscriber(t, client, reg)

	if err := s.Start(); err == nil {
		t.Fatal("Start() succeeded with failing subscription")
	}
	if s.State() != lifecycle.Stopped {
		t.Errorf("State() = %v, want stopped", s.State())
	}
	if client.ActiveHandlers() != 0 {
		t.Errorf("%d subscriptions leaked", client.ActiveHandlers())
	}

	// A later retry succeeds once the broker allows it.
	client.FailSubscribe("ibeacon/"+tilt.Red.UUID(), nil)
	if err := s.Start(); err != nil {
		t.Fatalf("retry Start() error = %v", err)
	}
	if client.ActiveHandlers() != 2 {
		t.Errorf("handlers = %d, want 2", client.ActiveHandlers())
	}
}

func TestSubscriber_StopJoinsErrors(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, _ := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client.unsubscribeErr = errors.New("timeout")
	if err := s.Stop(); err == nil {
		t.Error("Stop() error = nil, want unsubscribe failure")
	}
	if s.State() != lifecycle.Stopped {
		t.Errorf("State() = %v, want stopped after failed release", s.State())
	}
}

func TestSubscriber_AppliesMessage(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, _ := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client.SimulateMessage("ibeacon/"+tilt.Black.UUID(), []byte(`{"major":70,"minor":1050}`))

	snap, _ := reg.Get("tilt-black")
	if snap.Temperature == nil || *snap.Temperature != 70 {
		t.Errorf("temperature = %v, want 70", snap.Temperature)
	}
	if snap.SpecificGravity == nil || *snap.SpecificGravity != 1.05 {
		t.Errorf("specific gravity = %v, want 1.05", snap.SpecificGravity)
	}
	if got := s.Stats(); got.Received != 1 || got.Applied != 1 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestSubscriber_PartialPayload(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, log := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	topic := "ibeacon/" + tilt.Black.UUID()

	client.SimulateMessage(topic, []byte(`{"major":70,"minor":1050}`))
	client.SimulateMessage(topic, []byte(`{"major":72}`))

	snap, _ := reg.Get("tilt-black")
	if *snap.Temperature != 72 {
		t.Errorf("temperature = %v, want 72", *snap.Temperature)
	}
	if *snap.SpecificGravity != 1.05 {
		t.Errorf("specific gravity = %v, want unchanged 1.05", *snap.SpecificGravity)
	}
	if !log.hasArg("error", "field", FieldMinor) {
		t.Error("missing minor field was not logged by name")
	}

	client.SimulateMessage(topic, []byte(`{"major":99999,"minor":1040}`))
	snap, _ = reg.Get("tilt-black")
	if *snap.Temperature != 72 || *snap.SpecificGravity != 1.04 {
		t.Errorf("after invalid major: temp=%v sg=%v, want 72/1.04", *snap.Temperature, *snap.SpecificGravity)
	}
	if !log.hasArg("error", "field", FieldMajor) {
		t.Error("invalid major field was not logged by name")
	}
	if s.Stats().PartialPayload != 2 {
		t.Errorf("PartialPayload = %d, want 2", s.Stats().PartialPayload)
	}
}

func TestSubscriber_InvalidJSON(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, log := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	client.SimulateMessage("ibeacon/"+tilt.Black.UUID(), []byte(`{not json`))

	if snap, _ := reg.Get("tilt-black"); snap.Seen() {
		t.Error("invalid JSON mutated state")
	}
	if log.count("error") != 1 {
		t.Errorf("error logs = %d, want 1", log.count("error"))
	}
	if s.Stats().InvalidPayload != 1 {
		t.Errorf("InvalidPayload = %d, want 1", s.Stats().InvalidPayload)
	}
}

func TestSubscriber_IgnoresMessagesWhenStopped(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, _ := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	topic := "ibeacon/" + tilt.Black.UUID()
	client.mu.Lock()
	handler := client.handlers[topic]
	client.mu.Unlock()

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// A message already in flight when Stop ran.
	if err := handler(topic, []byte(`{"major":70,"minor":1050}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if snap, _ := reg.Get("tilt-black"); snap.Seen() {
		t.Error("message after Stop mutated state")
	}
}

func TestSubscriber_ConcurrentStartStop(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, _ := newTestSubscriber(t, client, reg)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Start()
		}()
		go func() {
			defer wg.Done()
			_ = s.Stop()
		}()
	}
	wg.Wait()
	_ = s.Stop()

	subs := len(client.GetSubscriptions())
	unsubs := len(client.GetUnsubscribed())
	if subs != unsubs {
		t.Errorf("subscriptions = %d, unsubscriptions = %d, want equal", subs, unsubs)
	}
	if client.ActiveHandlers() != 0 {
		t.Errorf("%d handlers leaked", client.ActiveHandlers())
	}
}

func TestRoundTrip_BlackTilt(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())

	pub, _ := newTestPublisher(t, client, reg, false)
	sub, _ := newTestSubscriber(t, client, reg)
	if err := sub.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	pub.HandleAdvertisement(advFor(tilt.Black, 68, 1046))
	msg := client.GetPublished()[0]
	if !client.SimulateMessage(msg.Topic, msg.Payload) {
		t.Fatalf("no subscriber on %s", msg.Topic)
	}

	st, err := reg.Resolve(tilt.Black.UUID())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v, ok := st.Value(device.MetricTemperature); !ok || v != 68 {
		t.Errorf("temperature = (%v, %v), want (68, true)", v, ok)
	}
	if v, ok := st.Value(device.MetricSpecificGravity); !ok || v != 1.046 {
		t.Errorf("specific gravity = (%v, %v), want (1.046, true)", v, ok)
	}
}

func TestSubscriber_UnmonitoredTopic(t *testing.T) {
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, tilt.Black.Identity())
	s, _ := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Direct delivery, as a broker wildcard subscription elsewhere might do.
	if err := s.handleMessage("ibeacon/"+tilt.Green.UUID(), []byte(`{"major":1,"minor":2}`)); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if reg.Len() != 1 || reg.Rejected() != 1 {
		t.Errorf("Len=%d Rejected=%d, want 1/1", reg.Len(), reg.Rejected())
	}
	if s.Stats().Applied != 0 {
		t.Errorf("Applied = %d, want 0", s.Stats().Applied)
	}
}

func TestSubscriber_FieldUnusedByDecoderLeavesState(t *testing.T) {
	fridge, err := device.NewIdentity("fridge", "Fridge", "e2c56db5-dffb-48d2-b060-d0f5a71096e0", nil)
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	client := NewMockMQTTClient()
	reg := newTestRegistry(t, fridge)
	notified := 0
	reg.OnUpdate(func(device.Snapshot) { notified++ })

	s, _ := newTestSubscriber(t, client, reg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.handleMessage("ibeacon/"+fridge.UUID, []byte(`{"minor":7}`)); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}

	snap, _ := reg.Get("fridge")
	if snap.Seen() || snap.Temperature != nil || !snap.UpdatedAt.IsZero() {
		t.Errorf("snapshot changed by minor-only message: %+v", snap)
	}
	if notified != 0 {
		t.Errorf("listeners notified %d times, want 0", notified)
	}
	if s.Stats().Applied != 0 {
		t.Errorf("Applied = %d, want 0", s.Stats().Applied)
	}
}
