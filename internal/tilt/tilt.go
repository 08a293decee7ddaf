// Package tilt maps Tilt hydrometer colours to their iBeacon identities.
//
// A Tilt broadcasts as an iBeacon whose proximity UUID encodes its colour:
// a495bbN0-c5b1-4b44-b512-1370f02d74de with N from 1 (Red) to 8 (Pink).
// Major carries the wort temperature in °F and minor carries specific
// gravity multiplied by 1000.
package tilt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// Color is a Tilt colour. The zero value is not a valid colour.
type Color int

// Tilt colours, numbered by the UUID digit that identifies them.
const (
	Red Color = iota + 1
	Green
	Black
	Purple
	Orange
	Blue
	Yellow
	Pink
)

var colorNames = [...]string{
	Red:    "Red",
	Green:  "Green",
	Black:  "Black",
	Purple: "Purple",
	Orange: "Orange",
	Blue:   "Blue",
	Yellow: "Yellow",
	Pink:   "Pink",
}

// AllColors returns every colour in UUID order.
func AllColors() []Color {
	return []Color{Red, Green, Black, Purple, Orange, Blue, Yellow, Pink}
}

// Valid reports whether c is a known colour.
func (c Color) Valid() bool {
	return c >= Red && c <= Pink
}

// String returns the upper-case configuration name ("BLACK").
func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Color(%d)", int(c))
	}
	return strings.ToUpper(colorNames[c])
}

// FriendlyName returns the capitalised colour ("Black").
func (c Color) FriendlyName() string {
	if !c.Valid() {
		return c.String()
	}
	return colorNames[c]
}

// UUID returns the lowercase proximity UUID broadcast by this colour.
func (c Color) UUID() string {
	return fmt.Sprintf("a495bb%d0-c5b1-4b44-b512-1370f02d74de", int(c))
}

// Identity returns the device identity for this colour, decoded with Decoder.
func (c Color) Identity() device.Identity {
	return device.Identity{
		ID:      "tilt-" + strings.ToLower(c.FriendlyName()),
		Name:    "Tilt " + c.FriendlyName(),
		UUID:    c.UUID(),
		Decoder: Decoder,
	}
}

// ParseColor parses a colour name case-insensitively.
func ParseColor(s string) (Color, error) {
	name := strings.TrimSpace(s)
	for _, c := range AllColors() {
		if strings.EqualFold(name, colorNames[c]) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// ColorForUUID returns the colour broadcasting uuid, in any case.
func ColorForUUID(uuid string) (Color, bool) {
	canonical, err := device.CanonicalUUID(uuid)
	if err != nil {
		return 0, false
	}
	for _, c := range AllColors() {
		if c.UUID() == canonical {
			return c, true
		}
	}
	return 0, false
}

// Identities returns the identities for colours, dropping repeats.
func Identities(colors ...Color) []device.Identity {
	seen := make(map[Color]bool, len(colors))
	out := make([]device.Identity, 0, len(colors))
	for _, c := range colors {
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c.Identity())
	}
	return out
}
