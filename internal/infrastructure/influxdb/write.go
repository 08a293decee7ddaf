package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// MeasurementReadings is the measurement holding beacon readings.
const MeasurementReadings = "beacon_readings"

// ReadingPoint converts a snapshot to a point tagged by device_id, uuid and
// decoder. Only readings that have been seen become fields. It returns nil
// when the snapshot has no readings.
func ReadingPoint(snap device.Snapshot) *write.Point {
	fields := make(map[string]interface{}, 3)
	if snap.Temperature != nil {
		fields["temperature"] = *snap.Temperature
	}
	if snap.SpecificGravity != nil {
		fields["specific_gravity"] = *snap.SpecificGravity
	}
	if snap.RSSI != nil {
		fields["rssi"] = int64(*snap.RSSI)
	}
	if len(fields) == 0 {
		return nil
	}

	at := snap.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementReadings,
		map[string]string{
			"device_id": snap.DeviceID,
			"uuid":      snap.UUID,
			"decoder":   snap.Decoder,
		},
		fields,
		at,
	)
}

// WriteReading queues a snapshot for export. It is a device.Listener and
// never blocks on the network.
func (c *Client) WriteReading(snap device.Snapshot) {
	if !c.IsConnected() {
		return
	}
	if p := ReadingPoint(snap); p != nil {
		c.writer.WritePoint(p)
	}
}

// WritePoint queues a custom point stamped now.
//
// Example:
//
//	client.WritePoint("bridge_stats",
//	    map[string]string{"bridge": "shed"},
//	    map[string]interface{}{"packets": 1200})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
