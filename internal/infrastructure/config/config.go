package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Bridge deployment modes.
const (
	// ModePublisher scans for beacons, updates local state and publishes readings.
	ModePublisher = "publisher"

	// ModeSubscriber consumes readings from MQTT into local state.
	ModeSubscriber = "subscriber"

	// ModeBoth scans and publishes, and takes local state from the subscription.
	ModeBoth = "both"
)

// Decoder names accepted in monitor.beacons.
const (
	DecoderMajor = "major"
	DecoderTilt  = "tilt"
)

// DefaultPath is used when BEACONBRIDGE_CONFIG is unset.
const DefaultPath = "configs/config.yaml"

// Config is the root configuration structure for the beacon bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge        BridgeConfig        `yaml:"bridge"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Bluetooth     BluetoothConfig     `yaml:"bluetooth"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Database      DatabaseConfig      `yaml:"database"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BridgeConfig identifies this bridge instance and selects its role.
type BridgeConfig struct {
	ID             string `yaml:"id"`
	Mode           string `yaml:"mode"`
	HealthInterval int    `yaml:"health_interval"` // seconds
}

// Scans reports whether this mode runs the BLE scanner and publisher.
func (b BridgeConfig) Scans() bool {
	return b.Mode == ModePublisher || b.Mode == ModeBoth
}

// Subscribes reports whether this mode runs the MQTT subscriber.
func (b BridgeConfig) Subscribes() bool {
	return b.Mode == ModeSubscriber || b.Mode == ModeBoth
}

// MonitorConfig is the fixed set of identities to watch.
type MonitorConfig struct {
	// TiltColors lists Tilt hydrometer colours ("black", "RED").
	TiltColors []string `yaml:"tilt_colors"`

	// Beacons lists generic iBeacons by UUID.
	Beacons []BeaconConfig `yaml:"beacons"`

	// AnyIBeacon relays every iBeacon seen, not only configured ones.
	AnyIBeacon bool `yaml:"any_ibeacon"`
}

// BeaconConfig describes one generic iBeacon.
type BeaconConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	UUID    string `yaml:"uuid"`
	Decoder string `yaml:"decoder"` // "major" (default) or "tilt"
}

// BluetoothConfig selects the HCI adapter.
type BluetoothConfig struct {
	DeviceID        int               `yaml:"device_id"`
	AllowDuplicates bool              `yaml:"allow_duplicates"`
	Restart         ScanRestartConfig `yaml:"restart"`
}

// ScanRestartConfig controls how a failed scan is retried. Delays are in
// seconds and double after each consecutive failure up to MaxDelay.
type ScanRestartConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Retain    bool                `yaml:"retain"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// HomeAssistantConfig controls MQTT discovery announcements.
type HomeAssistantConfig struct {
	Discovery bool   `yaml:"discovery"`
	Prefix    string `yaml:"prefix"`
}

// DatabaseConfig contains SQLite reading history settings.
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"wal_mode"`
	BusyTimeout   int    `yaml:"busy_timeout"`
	RetentionDays int    `yaml:"retention_days"` // 0 keeps everything
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BEACONBRIDGE_SECTION_KEY
// For example: BEACONBRIDGE_MQTT_HOST, BEACONBRIDGE_BRIDGE_MODE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// PathFromEnv returns BEACONBRIDGE_CONFIG, or DefaultPath when unset.
func PathFromEnv() string {
	if v := os.Getenv("BEACONBRIDGE_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "beaconbridge",
			Mode:           ModePublisher,
			HealthInterval: 30,
		},
		Bluetooth: BluetoothConfig{
			DeviceID:        0,
			AllowDuplicates: true,
			Restart: ScanRestartConfig{
				InitialDelay: 1,
				MaxDelay:     30,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "beaconbridge",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		HomeAssistant: HomeAssistantConfig{
			Discovery: false,
			Prefix:    "homeassistant",
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/beaconbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8099,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BEACONBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge
	if v := os.Getenv("BEACONBRIDGE_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("BEACONBRIDGE_BRIDGE_MODE"); v != "" {
		cfg.Bridge.Mode = strings.ToLower(v)
	}

	// Monitor
	if v := os.Getenv("BEACONBRIDGE_MONITOR_TILT_COLORS"); v != "" {
		cfg.Monitor.TiltColors = splitList(v)
	}

	// Bluetooth
	if v := os.Getenv("BEACONBRIDGE_BLUETOOTH_DEVICE_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bluetooth.DeviceID = n
		}
	}

	// MQTT
	if v := os.Getenv("BEACONBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BEACONBRIDGE_MQTT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = n
		}
	}
	if v := os.Getenv("BEACONBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BEACONBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("BEACONBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("BEACONBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("BEACONBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("BEACONBRIDGE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// All problems are collected so a single run reports every mistake.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bridge validation
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	} else if strings.ContainsAny(c.Bridge.ID, "/+# ") {
		errs = append(errs, "bridge.id must not contain '/', '+', '#' or spaces")
	}
	switch c.Bridge.Mode {
	case ModePublisher, ModeSubscriber, ModeBoth:
	default:
		errs = append(errs, fmt.Sprintf("bridge.mode %q must be publisher, subscriber or both", c.Bridge.Mode))
	}
	if c.Bridge.HealthInterval < 1 {
		errs = append(errs, "bridge.health_interval must be at least 1 second")
	}

	// Monitor validation
	concrete := len(c.Monitor.TiltColors) + len(c.Monitor.Beacons)
	if concrete == 0 && !c.Monitor.AnyIBeacon {
		errs = append(errs, "monitor must list tilt_colors, beacons or set any_ibeacon")
	}
	if c.Bridge.Subscribes() && concrete == 0 {
		errs = append(errs, "subscriber mode needs at least one tilt colour or beacon to subscribe to")
	}
	for i, b := range c.Monitor.Beacons {
		if b.UUID == "" {
			errs = append(errs, fmt.Sprintf("monitor.beacons[%d].uuid is required", i))
		}
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("monitor.beacons[%d].name is required", i))
		}
		switch b.Decoder {
		case "", DecoderMajor, DecoderTilt:
		default:
			errs = append(errs, fmt.Sprintf("monitor.beacons[%d].decoder %q must be major or tilt", i, b.Decoder))
		}
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Home Assistant validation
	if c.HomeAssistant.Discovery && c.HomeAssistant.Prefix == "" {
		errs = append(errs, "homeassistant.prefix is required when discovery is enabled")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when enabled")
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetHealthInterval returns the health report interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetRetention returns the history retention, or 0 to keep everything.
func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
