// Package sensor exposes device readings as read-only sensors, one per
// identity and metric.
//
// Sensors hold no data of their own. Every call reads the live device.State,
// so a sensor is available as soon as its metric has been seen once.
package sensor

import (
	"strings"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// Units reported by sensors.
const (
	UnitFahrenheit       = "°F"
	UnitSpecificGravity  = "SG"
	UnitDecibelMilliwatt = "dBm"
)

// Sensor is a read-only view of one metric of one device.
type Sensor interface {
	// ID is unique across the bridge ("tilt-black-temperature").
	ID() string

	// Name is human-readable ("Tilt Black Temperature").
	Name() string

	// Value returns the latest value and whether it has been seen.
	Value() (float64, bool)

	// Available reports whether the metric has a value.
	Available() bool

	Unit() string
	Metric() device.Metric
	Identity() device.Identity
}

// StateSource is satisfied by *device.Registry.
type StateSource interface {
	States() []*device.State
}

type metricSensor struct {
	state  *device.State
	metric device.Metric
}

// New returns the sensor for one metric of state.
func New(state *device.State, metric device.Metric) Sensor {
	return metricSensor{state: state, metric: metric}
}

func (s metricSensor) ID() string {
	return s.state.Identity().ID + "-" + strings.ReplaceAll(string(s.metric), "_", "-")
}

func (s metricSensor) Name() string {
	return s.state.Identity().Name + " " + s.metric.Label()
}

func (s metricSensor) Value() (float64, bool) {
	return s.state.Value(s.metric)
}

func (s metricSensor) Available() bool {
	return s.state.Available(s.metric)
}

func (s metricSensor) Unit() string {
	return UnitFor(s.metric)
}

func (s metricSensor) Metric() device.Metric {
	return s.metric
}

func (s metricSensor) Identity() device.Identity {
	return s.state.Identity()
}

// UnitFor returns the display unit of a metric.
func UnitFor(m device.Metric) string {
	switch m {
	case device.MetricTemperature:
		return UnitFahrenheit
	case device.MetricSpecificGravity:
		return UnitSpecificGravity
	case device.MetricRSSI:
		return UnitDecibelMilliwatt
	default:
		return ""
	}
}

// ForRegistry builds the sensors for every state in configuration order,
// one per metric its decoder produces. IDs are unique in the result.
func ForRegistry(src StateSource) []Sensor {
	var out []Sensor
	seen := make(map[string]bool)
	for _, st := range src.States() {
		ident := st.Identity()
		if ident.Decoder == nil {
			continue
		}
		for _, m := range ident.Decoder.Metrics() {
			s := New(st, m)
			if seen[s.ID()] {
				continue
			}
			seen[s.ID()] = true
			out = append(out, s)
		}
	}
	return out
}
