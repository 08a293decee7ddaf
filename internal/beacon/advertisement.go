package beacon

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// iBeacon frame constants.
const (
	// frameLength is the size of a complete iBeacon manufacturer data block.
	frameLength = 25

	// prefixLength covers company id, type and length bytes.
	prefixLength = 4

	uuidOffset  = 4
	majorOffset = 20
	minorOffset = 22
	powerOffset = 24
)

// ibeaconPrefix is 0x004C (Apple, little endian), type 0x02, length 0x15.
var ibeaconPrefix = [prefixLength]byte{0x4C, 0x00, 0x02, 0x15}

// Packet is a raw advertisement as delivered by a Scanner.
type Packet struct {
	// Address is the advertiser's Bluetooth address (e.g. "c4:7c:8d:6a:11:02").
	Address string

	// RSSI is the received signal strength in dBm.
	RSSI int

	// ManufacturerData is the manufacturer-specific AD payload, company id included.
	ManufacturerData []byte
}

// Advertisement is a decoded iBeacon broadcast.
// It is ephemeral: produced by Source, consumed by the handler, not retained.
type Advertisement struct {
	SourceAddress  string
	SignalStrength int
	UUID           string // lowercase canonical 8-4-4-4-12 form
	Major          uint16
	Minor          uint16
	TxPower        int8
}

// String implements fmt.Stringer for debug logging.
func (a Advertisement) String() string {
	return fmt.Sprintf("%s major=%d minor=%d rssi=%d addr=%s",
		a.UUID, a.Major, a.Minor, a.SignalStrength, a.SourceAddress)
}

// Decode interprets a raw packet as an iBeacon advertisement.
//
// Returns:
//   - Advertisement: the typed record on success
//   - error: ErrNotIBeacon when the prefix does not match,
//     ErrMalformedFrame when the prefix matches but the frame is unusable
func Decode(p Packet) (Advertisement, error) {
	data := p.ManufacturerData
	if len(data) < prefixLength || [prefixLength]byte(data[:prefixLength]) != ibeaconPrefix {
		return Advertisement{}, ErrNotIBeacon
	}
	if len(data) < frameLength {
		return Advertisement{}, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedFrame, len(data), frameLength)
	}

	id, err := uuid.FromBytes(data[uuidOffset:majorOffset])
	if err != nil {
		return Advertisement{}, fmt.Errorf("%w: uuid: %w", ErrMalformedFrame, err)
	}

	return Advertisement{
		SourceAddress:  p.Address,
		SignalStrength: p.RSSI,
		UUID:           id.String(),
		Major:          binary.BigEndian.Uint16(data[majorOffset:minorOffset]),
		Minor:          binary.BigEndian.Uint16(data[minorOffset:powerOffset]),
		TxPower:        int8(data[powerOffset]),
	}, nil
}

// Encode builds the manufacturer data block for an advertisement.
// It is the inverse of Decode and is used by tests and simulators.
func Encode(a Advertisement) ([]byte, error) {
	id, err := uuid.Parse(a.UUID)
	if err != nil {
		return nil, fmt.Errorf("parsing uuid %q: %w", a.UUID, err)
	}

	data := make([]byte, frameLength)
	copy(data, ibeaconPrefix[:])
	copy(data[uuidOffset:majorOffset], id[:])
	binary.BigEndian.PutUint16(data[majorOffset:], a.Major)
	binary.BigEndian.PutUint16(data[minorOffset:], a.Minor)
	data[powerOffset] = byte(a.TxPower)
	return data, nil
}

// CanonicalUUID parses s in any accepted form and case and returns the
// lowercase 8-4-4-4-12 representation used for topics and lookups.
func CanonicalUUID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	return id.String(), nil
}
