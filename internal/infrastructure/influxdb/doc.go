// Package influxdb exports beacon readings to InfluxDB v2.
//
// Each registry update becomes one point in the beacon_readings
// measurement, tagged by device_id, uuid and decoder, with temperature,
// specific_gravity and rssi fields for the readings seen so far.
//
// Export is optional and fire-and-forget. Points are batched by the
// client library; a slow or unreachable server never blocks the scan loop.
//
// Usage:
//
//	influx, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer influx.Close()
//	registry.OnUpdate(influx.WriteReading)
package influxdb
