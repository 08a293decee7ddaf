package mqtt

import "fmt"

// Topic prefixes.
//
// Beacon readings use the flat scheme ibeacon/{uuid}. Bridge status lives
// under ibeacon/bridge/{id} so a single-level wildcard on ibeacon/+ never
// matches it.
const (
	// TopicPrefixBeacon is the base for all beacon topics.
	TopicPrefixBeacon = "ibeacon"

	// TopicPrefixBridge is the base for bridge status topics.
	TopicPrefixBridge = "ibeacon/bridge"

	// DefaultDiscoveryPrefix is Home Assistant's default discovery prefix.
	DefaultDiscoveryPrefix = "homeassistant"
)

// Topics provides builders for beacon bridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Beacon("a495bb30-c5b1-4b44-b512-1370f02d74de")
//	// Returns: "ibeacon/a495bb30-c5b1-4b44-b512-1370f02d74de"
type Topics struct{}

// Beacon returns the reading topic for one beacon UUID.
// The UUID must already be in lowercase canonical form.
//
// Example: ibeacon/a495bb30-c5b1-4b44-b512-1370f02d74de
func (Topics) Beacon(uuid string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixBeacon, uuid)
}

// AllBeacons returns a pattern matching every beacon reading topic.
//
// Pattern: ibeacon/+
func (Topics) AllBeacons() string {
	return fmt.Sprintf("%s/+", TopicPrefixBeacon)
}

// BridgeStatus returns the retained status topic of one bridge instance.
// Health reports, the online/offline status and the Last Will share it.
//
// Example: ibeacon/bridge/brewshed/status
func (Topics) BridgeStatus(bridgeID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixBridge, bridgeID)
}

// AllBridgeStatus returns a pattern matching every bridge status topic.
//
// Pattern: ibeacon/bridge/+/status
func (Topics) AllBridgeStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixBridge)
}

// Discovery returns a Home Assistant MQTT discovery config topic.
//
// Example: homeassistant/sensor/brewshed/tilt-black-temperature/config
func (Topics) Discovery(prefix, component, nodeID, objectID string) string {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, component, nodeID, objectID)
}

// HomeAssistantStatus returns the topic Home Assistant announces its
// birth ("online") and will ("offline") messages on.
//
// Example: homeassistant/status
func (Topics) HomeAssistantStatus(prefix string) string {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	return fmt.Sprintf("%s/status", prefix)
}
