// Package beacon turns raw Bluetooth LE advertisements into typed iBeacon
// records and controls the scan that produces them.
//
// # Pipeline
//
//	Scanner (go-ble HCI) ──Packet──▶ Source ──Decode──▶ Advertisement ──▶ handler
//
// The Scanner is the only part that touches the radio. Source owns the
// start/stop lifecycle and dispatches every decoded advertisement to a
// single handler, once per received broadcast. Duplicate broadcasts from
// the same beacon are delivered as duplicate calls; the handler decides
// whether that matters.
//
// # Frame layout
//
// iBeacon data is carried in the manufacturer-specific AD structure:
//
//	offset  size  field
//	0       2     company id 0x004C (little endian: 4C 00)
//	2       1     type 0x02
//	3       1     length 0x15
//	4       16    proximity UUID
//	20      2     major (big endian)
//	22      2     minor (big endian)
//	24      1     measured power (int8, dBm at 1 m)
package beacon
