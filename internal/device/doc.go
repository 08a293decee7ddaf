// Package device provides the device registry for the beacon bridge.
//
// The registry is the fixed catalogue of beacons the bridge monitors. Each
// configured Identity (a Tilt colour, or a named generic iBeacon) owns
// exactly one State holding the latest readings. The set never grows at
// runtime: updates for unknown UUIDs are rejected with ErrNotMonitored and
// logged.
//
// # Architecture
//
//	   advertisement / bus message
//	              │
//	              ▼  Fields{Major, Minor, RSSI}
//	┌──────────────────────────────────────────────┐
//	│                  Registry                     │
//	│  Resolve(uuid) ──▶ State ──▶ Decoder.Decode   │
//	│                      │                        │
//	│                      ▼  overwrite present     │
//	│                   Snapshot                    │
//	└──────────────────────│───────────────────────┘
//	                       ▼
//	         listeners (history, influx, websocket)
//
// # Key Types
//
//   - Identity: ID slug, name, canonical UUID and Decoder
//   - Decoder: maps raw major/minor to readings (MajorDecoder, tilt.Decoder)
//   - State: mutable latest readings, nil meaning "not yet seen"
//   - Snapshot: immutable copy handed to listeners and the API
//
// # Partial updates
//
// Fields carries pointers. A field that was absent from the source stays
// nil, the decoder produces no reading for it, and the corresponding State
// field keeps its previous value. Later values always replace earlier ones.
//
// # Usage
//
//	reg, err := device.NewRegistry(tilt.Black.Identity(), fridge)
//	if err != nil {
//	    return err
//	}
//	reg.SetLogger(log)
//	reg.OnUpdate(func(s device.Snapshot) { hub.Broadcast("readings", s) })
//
//	snap, err := reg.Apply(adv.UUID, device.FieldsFrom(adv.Major, adv.Minor, adv.SignalStrength))
//
// # Thread Safety
//
// The Registry and State are safe for concurrent use. Listeners are called
// synchronously after the state lock has been released.
package device
