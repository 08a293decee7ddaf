// Package mqtt is the broker connection shared by every bridge role.
//
// A publisher bridge relays beacon readings to ibeacon/{uuid}; subscriber
// bridges and Home Assistant consume them. Each bridge keeps a retained
// status on ibeacon/bridge/{id}/status, backed by a Last Will so a crashed
// host shows up as offline.
//
//	BLE scanner → publisher bridge → broker → subscriber bridge / Home Assistant
//
// Enable TLS (mqtt.broker.tls) when the broker is not on the local host.
// Payloads are not encrypted beyond the transport.
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Topics{}.BridgeStatus(cfg.Bridge.ID))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package mqtt
