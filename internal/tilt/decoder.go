package tilt

import (
	"errors"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// ErrUnknownColor is returned by ParseColor for names that are not Tilt colours.
var ErrUnknownColor = errors.New("tilt: unknown color")

// gravityScale converts the minor field to specific gravity (1046 → 1.046).
const gravityScale = 1000.0

// Decoder reads major as temperature (°F, unmodified) and minor/1000 as
// specific gravity.
var Decoder device.Decoder = hydrometer{}

type hydrometer struct{}

func (hydrometer) Name() string { return "tilt" }

func (hydrometer) Decode(f device.Fields) device.Reading {
	var r device.Reading
	if f.Major != nil {
		t := float64(*f.Major)
		r.Temperature = &t
	}
	if f.Minor != nil {
		sg := float64(*f.Minor) / gravityScale
		r.SpecificGravity = &sg
	}
	r.RSSI = f.RSSI
	return r
}

func (hydrometer) Metrics() []device.Metric {
	return []device.Metric{device.MetricTemperature, device.MetricSpecificGravity}
}
