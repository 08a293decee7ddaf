// Package api implements the read-only HTTP API and WebSocket push for the
// beacon bridge.
//
// This package provides:
//   - REST endpoints for bridge health, sensors, devices and reading history
//   - WebSocket hub broadcasting every registry update as "reading.updated"
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server never writes to the bus. It reads the device registry, which is
// fed by the scanner or the MQTT subscriber, and registers itself as a
// registry listener so WebSocket clients see updates as they are applied.
//
//	registry.Apply ──▶ OnUpdate ──▶ Hub.Broadcast("reading.updated")
//	                                     │
//	                                     ▼
//	                          subscribed WebSocket clients
//
// # Graceful Degradation
//
// History and health are optional. Without a history repository the history
// endpoint answers 503; without a health source /health reports only the
// version.
package api
