package beacon

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// hciDevice is the subset of the go-ble device used for scanning.
// *linux.Device satisfies it.
type hciDevice interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Stop() error
}

// BLEScanner implements Scanner on a local HCI adapter using go-ble.
type BLEScanner struct {
	dev      hciDevice
	allowDup bool
}

// NewBLEScanner opens the HCI adapter hci<deviceID>.
//
// Parameters:
//   - deviceID: HCI device index (0 for hci0)
//   - allowDuplicates: deliver every broadcast instead of only the first
//     per advertiser; beacons repeat the same frame, so this should be true
//     for readings to keep updating
//
// Returns:
//   - *BLEScanner: ready to Scan
//   - error: if the adapter cannot be opened (missing device, permissions)
func NewBLEScanner(deviceID int, allowDuplicates bool) (*BLEScanner, error) {
	dev, err := linux.NewDevice(ble.OptDeviceID(deviceID))
	if err != nil {
		return nil, fmt.Errorf("opening hci%d: %w", deviceID, err)
	}
	return &BLEScanner{dev: dev, allowDup: allowDuplicates}, nil
}

// Scan delivers every advertisement carrying manufacturer data as a Packet
// until ctx is cancelled. Cancellation is not reported as an error.
func (s *BLEScanner) Scan(ctx context.Context, onPacket func(Packet)) error {
	err := s.dev.Scan(ctx, s.allowDup, func(a ble.Advertisement) {
		md := a.ManufacturerData()
		if len(md) == 0 {
			return
		}
		var addr string
		if a.Addr() != nil {
			addr = a.Addr().String()
		}
		onPacket(Packet{
			Address:          addr,
			RSSI:             a.RSSI(),
			ManufacturerData: md,
		})
	})
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}

// Close releases the HCI adapter.
func (s *BLEScanner) Close() error {
	if err := s.dev.Stop(); err != nil {
		return fmt.Errorf("closing hci device: %w", err)
	}
	return nil
}
