// Package logging provides structured logging for the beacon bridge.
//
// It wraps log/slog with JSON or text output, a level filter and the
// default fields service=beaconbridge and version.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	source.SetLogger(logger.Component("scanner"))
//	logger.Error("failed to connect", "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
