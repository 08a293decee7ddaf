package sensor

import (
	"testing"

	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/tilt"
)

func newRegistry(t *testing.T, idents ...device.Identity) *device.Registry {
	t.Helper()
	reg, err := device.NewRegistry(idents...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func u16(v uint16) *uint16 { return &v }

func TestForRegistry_TiltSensors(t *testing.T) {
	reg := newRegistry(t, tilt.Black.Identity(), tilt.Red.Identity())

	sensors := ForRegistry(reg)
	if len(sensors) != 4 {
		t.Fatalf("len(sensors) = %d, want 4", len(sensors))
	}

	want := []struct {
		id, name, unit string
	}{
		{"tilt-black-temperature", "Tilt Black Temperature", UnitFahrenheit},
		{"tilt-black-specific-gravity", "Tilt Black Specific Gravity", UnitSpecificGravity},
		{"tilt-red-temperature", "Tilt Red Temperature", UnitFahrenheit},
		{"tilt-red-specific-gravity", "Tilt Red Specific Gravity", UnitSpecificGravity},
	}
	for i, w := range want {
		s := sensors[i]
		if s.ID() != w.id {
			t.Errorf("sensors[%d].ID() = %q, want %q", i, s.ID(), w.id)
		}
		if s.Name() != w.name {
			t.Errorf("sensors[%d].Name() = %q, want %q", i, s.Name(), w.name)
		}
		if s.Unit() != w.unit {
			t.Errorf("sensors[%d].Unit() = %q, want %q", i, s.Unit(), w.unit)
		}
	}
}

func TestSensor_ReadsLiveState(t *testing.T) {
	black := tilt.Black.Identity()
	reg := newRegistry(t, black)
	sensors := ForRegistry(reg)
	temp, gravity := sensors[0], sensors[1]

	if temp.Available() || gravity.Available() {
		t.Fatal("sensors available before any reading")
	}
	if _, ok := temp.Value(); ok {
		t.Error("temperature Value() ok before any reading")
	}

	if _, err := reg.Apply(black.UUID, device.Fields{Major: u16(70)}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if v, ok := temp.Value(); !ok || v != 70 {
		t.Errorf("temperature = (%v, %v), want (70, true)", v, ok)
	}
	if gravity.Available() {
		t.Error("gravity available after temperature-only update")
	}

	if _, err := reg.Apply(black.UUID, device.Fields{Minor: u16(1050)}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if v, ok := gravity.Value(); !ok || v != 1.05 {
		t.Errorf("gravity = (%v, %v), want (1.05, true)", v, ok)
	}
	if v, _ := temp.Value(); v != 70 {
		t.Errorf("temperature changed to %v by gravity-only update", v)
	}
}

func TestForRegistry_MajorDecoder(t *testing.T) {
	fridge, err := device.NewIdentity("", "Fridge Beacon", "E2C56DB5-DFFB-48D2-B060-D0F5A71096E0", nil)
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	sensors := ForRegistry(newRegistry(t, fridge))

	if len(sensors) != 1 {
		t.Fatalf("len(sensors) = %d, want 1", len(sensors))
	}
	if sensors[0].ID() != "fridge-beacon-temperature" {
		t.Errorf("ID() = %q", sensors[0].ID())
	}
	if sensors[0].Metric() != device.MetricTemperature {
		t.Errorf("Metric() = %q", sensors[0].Metric())
	}
	if sensors[0].Identity().UUID != "e2c56db5-dffb-48d2-b060-d0f5a71096e0" {
		t.Errorf("Identity().UUID = %q", sensors[0].Identity().UUID)
	}
}

func TestForRegistry_WildcardOnly(t *testing.T) {
	if got := ForRegistry(newRegistry(t, device.AnyIBeacon)); len(got) != 0 {
		t.Errorf("ForRegistry(wildcard) = %d sensors, want 0", len(got))
	}
}

func TestUnitFor(t *testing.T) {
	tests := []struct {
		metric device.Metric
		want   string
	}{
		{device.MetricTemperature, UnitFahrenheit},
		{device.MetricSpecificGravity, UnitSpecificGravity},
		{device.MetricRSSI, UnitDecibelMilliwatt},
		{device.Metric("humidity"), ""},
	}
	for _, tt := range tests {
		if got := UnitFor(tt.metric); got != tt.want {
			t.Errorf("UnitFor(%q) = %q, want %q", tt.metric, got, tt.want)
		}
	}
}
