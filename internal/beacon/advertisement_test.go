package beacon

import (
	"errors"
	"testing"
)

const tiltBlackUUID = "a495bb30-c5b1-4b44-b512-1370f02d74de"

// tiltFrame is a captured Tilt Black broadcast: 68°F, SG 1.046, -59 dBm @1m.
var tiltFrame = []byte{
	0x4C, 0x00, 0x02, 0x15,
	0xA4, 0x95, 0xBB, 0x30, 0xC5, 0xB1, 0x4B, 0x44,
	0xB5, 0x12, 0x13, 0x70, 0xF0, 0x2D, 0x74, 0xDE,
	0x00, 0x44, // major 68
	0x04, 0x16, // minor 1046
	0xC5, // -59
}

func TestDecode_TiltFrame(t *testing.T) {
	adv, err := Decode(Packet{Address: "c4:7c:8d:6a:11:02", RSSI: -71, ManufacturerData: tiltFrame})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if adv.UUID != tiltBlackUUID {
		t.Errorf("UUID = %q, want %q", adv.UUID, tiltBlackUUID)
	}
	if adv.Major != 68 {
		t.Errorf("Major = %d, want 68", adv.Major)
	}
	if adv.Minor != 1046 {
		t.Errorf("Minor = %d, want 1046", adv.Minor)
	}
	if adv.TxPower != -59 {
		t.Errorf("TxPower = %d, want -59", adv.TxPower)
	}
	if adv.SignalStrength != -71 {
		t.Errorf("SignalStrength = %d, want -71", adv.SignalStrength)
	}
	if adv.SourceAddress != "c4:7c:8d:6a:11:02" {
		t.Errorf("SourceAddress = %q", adv.SourceAddress)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrNotIBeacon},
		{"too short for prefix", []byte{0x4C, 0x00}, ErrNotIBeacon},
		{"other company", append([]byte{0x59, 0x00, 0x02, 0x15}, tiltFrame[4:]...), ErrNotIBeacon},
		{"eddystone-like type", append([]byte{0x4C, 0x00, 0x10, 0x05}, tiltFrame[4:]...), ErrNotIBeacon},
		{"truncated after prefix", tiltFrame[:10], ErrMalformedFrame},
		{"missing power byte", tiltFrame[:24], ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(Packet{ManufacturerData: tt.data})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_MajorMinorFullRange(t *testing.T) {
	frame, err := Encode(Advertisement{UUID: tiltBlackUUID, Major: 65535, Minor: 0})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	adv, err := Decode(Packet{ManufacturerData: frame})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if adv.Major != 65535 || adv.Minor != 0 {
		t.Errorf("Major/Minor = %d/%d, want 65535/0", adv.Major, adv.Minor)
	}
}

func TestEncode_MatchesCapturedFrame(t *testing.T) {
	frame, err := Encode(Advertisement{UUID: "A495BB30-C5B1-4B44-B512-1370F02D74DE", Major: 68, Minor: 1046, TxPower: -59})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(frame) != string(tiltFrame) {
		t.Errorf("Encode() = % X\nwant        % X", frame, tiltFrame)
	}
}

func TestEncode_InvalidUUID(t *testing.T) {
	if _, err := Encode(Advertisement{UUID: "not-a-uuid"}); err == nil {
		t.Error("Encode() expected error for invalid uuid")
	}
}

func TestCanonicalUUID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"A495BB30-C5B1-4B44-B512-1370F02D74DE", tiltBlackUUID, false},
		{"  a495bb30-c5b1-4b44-b512-1370f02d74de ", tiltBlackUUID, false},
		{"a495bb30c5b14b44b5121370f02d74de", tiltBlackUUID, false},
		{"deadbeef", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := CanonicalUUID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("CanonicalUUID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalUUID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
