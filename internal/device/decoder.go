package device

// Metric names a reading a device can expose.
type Metric string

// Metrics understood by the registry and sensor adapters.
const (
	MetricTemperature     Metric = "temperature"
	MetricSpecificGravity Metric = "specific_gravity"
	MetricRSSI            Metric = "rssi"
)

// Label returns the human-readable metric name used in sensor names.
func (m Metric) Label() string {
	switch m {
	case MetricTemperature:
		return "Temperature"
	case MetricSpecificGravity:
		return "Specific Gravity"
	case MetricRSSI:
		return "Signal Strength"
	default:
		return string(m)
	}
}

// Fields is the raw beacon data applied to a device. A nil pointer means the
// field was absent from the source (a bus payload missing "minor", or an
// advertisement relayed without signal strength).
type Fields struct {
	Major *uint16
	Minor *uint16
	RSSI  *int
}

// FieldsFrom builds Fields with every value present.
func FieldsFrom(major, minor uint16, rssi int) Fields {
	return Fields{Major: &major, Minor: &minor, RSSI: &rssi}
}

// Reading is the decoded form of Fields. Nil fields leave the matching
// state field unchanged.
type Reading struct {
	Temperature     *float64
	SpecificGravity *float64
	RSSI            *int
}

// Empty reports whether the reading carries no value at all.
func (r Reading) Empty() bool {
	return r.Temperature == nil && r.SpecificGravity == nil && r.RSSI == nil
}

// Decoder turns raw major/minor values into readings for one kind of beacon.
type Decoder interface {
	// Name is the configuration name of the decoder ("major", "tilt").
	Name() string

	// Decode maps present fields to readings. It never fails: absent
	// inputs produce absent outputs.
	Decode(f Fields) Reading

	// Metrics lists the readings this decoder can produce, in display order.
	Metrics() []Metric
}

// MajorDecoder reports the major field as a temperature and ignores minor.
// It is the default for generic iBeacons.
var MajorDecoder Decoder = majorDecoder{}

type majorDecoder struct{}

func (majorDecoder) Name() string { return "major" }

func (majorDecoder) Decode(f Fields) Reading {
	var r Reading
	if f.Major != nil {
		t := float64(*f.Major)
		r.Temperature = &t
	}
	r.RSSI = f.RSSI
	return r
}

func (majorDecoder) Metrics() []Metric {
	return []Metric{MetricTemperature}
}
