package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/beacon-bridge/internal/beacon"
	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
)

// Payload field names.
const (
	FieldMajor = "major"
	FieldMinor = "minor"
)

// Message is the wire form of a beacon reading on ibeacon/<uuid>. It is
// used for encoding; inbound payloads go through DecodeMessage.
type Message struct {
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

// NewMessage builds the message for an advertisement.
func NewMessage(adv beacon.Advertisement) Message {
	return Message{Major: adv.Major, Minor: adv.Minor}
}

// Decoded is the result of decoding a bus payload field by field.
type Decoded struct {
	// Fields holds every field that decoded; the rest are nil.
	Fields device.Fields

	// Missing lists fields absent from the payload.
	Missing []string

	// Invalid maps present fields that could not be decoded to the reason.
	Invalid map[string]error
}

// Empty reports whether no field decoded.
func (d Decoded) Empty() bool {
	return d.Fields.Major == nil && d.Fields.Minor == nil
}

// DecodeMessage decodes major and minor independently, so one bad or
// missing field never discards the other.
//
// Keys match exactly, as the publisher writes them: "Major" or "MINOR" count
// as missing. This is stricter than json.Unmarshal into Message, which folds
// case. Unknown keys are ignored.
//
// Returns ErrInvalidPayload only when the payload is not a JSON object.
func DecodeMessage(payload []byte) (Decoded, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if raw == nil {
		return Decoded{}, fmt.Errorf("%w: null", ErrInvalidPayload)
	}

	var d Decoded
	d.Fields.Major = decodeField(raw, FieldMajor, &d)
	d.Fields.Minor = decodeField(raw, FieldMinor, &d)
	return d, nil
}

func decodeField(raw map[string]json.RawMessage, name string, d *Decoded) *uint16 {
	v, ok := raw[name]
	if !ok || string(v) == "null" {
		d.Missing = append(d.Missing, name)
		return nil
	}

	var n uint16
	if err := json.Unmarshal(v, &n); err != nil {
		if d.Invalid == nil {
			d.Invalid = make(map[string]error)
		}
		d.Invalid[name] = fmt.Errorf("%w: %s=%s", ErrInvalidField, name, v)
		return nil
	}
	return &n
}

// UUIDFromTopic extracts the uuid from an ibeacon/<uuid> topic.
func UUIDFromTopic(topic string) (string, error) {
	prefix := mqtt.TopicPrefixBeacon + "/"
	uuid, ok := strings.CutPrefix(topic, prefix)
	if !ok || uuid == "" || strings.Contains(uuid, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return uuid, nil
}
