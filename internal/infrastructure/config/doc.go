// Package config handles loading and validating beacon bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with BEACONBRIDGE_* environment variables
//   - Validation of required fields (all problems reported at once)
//   - Default value handling
//
// Security Considerations:
//   - MQTT credentials and the InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(config.PathFromEnv())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if cfg.Bridge.Scans() {
//	    // start the BLE scanner
//	}
package config
