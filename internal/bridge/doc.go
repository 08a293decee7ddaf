// Package bridge moves iBeacon readings between the radio, the MQTT bus and
// the device registry.
//
// Publisher relays scanned advertisements to ibeacon/<uuid> as
// {"major":N,"minor":N}. Subscriber consumes the same topics and applies
// each field that decodes to the registry. A bridge running both stays
// consistent because only the subscriber writes local state in that mode.
//
// HealthReporter publishes a retained status message alongside the MQTT
// Last Will, and Announcer registers sensors with Home Assistant through
// MQTT discovery.
//
// Bad input never stops the pipeline: malformed payloads, unknown UUIDs and
// failed publishes are logged and dropped.
package bridge
