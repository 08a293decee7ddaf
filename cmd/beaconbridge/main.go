// Beacon Bridge - iBeacon and Tilt hydrometer relay for MQTT
//
// This is the main entry point for the beacon bridge. Depending on
// bridge.mode it scans for iBeacon advertisements over BLE and publishes
// them to MQTT, consumes those messages into local sensors, or both.
// Optional extras are Home Assistant discovery, a SQLite reading history,
// InfluxDB telemetry and a read-only HTTP/WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/beacon-bridge/internal/api"
	"github.com/nerrad567/beacon-bridge/internal/beacon"
	"github.com/nerrad567/beacon-bridge/internal/bridge"
	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/history"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/config"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/database"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/beacon-bridge/internal/sensor"
	"github.com/nerrad567/beacon-bridge/internal/tilt"
	"github.com/nerrad567/beacon-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// prunePeriod is how often expired history rows are deleted.
const prunePeriod = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, blocks until ctx is cancelled and then tears
// everything down in reverse start order via the defer chain.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear wiring of optional components
	log := logging.Default()
	log.Info("starting beacon bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"bridge_id", cfg.Bridge.ID,
		"mode", cfg.Bridge.Mode,
	)

	// Device registry
	identities, err := buildIdentities(cfg.Monitor)
	if err != nil {
		return fmt.Errorf("building monitored identities: %w", err)
	}
	registry, err := device.NewRegistry(identities...)
	if err != nil {
		return fmt.Errorf("creating device registry: %w", err)
	}
	registry.SetLogger(log.Component("device"))
	log.Info("device registry initialised",
		"devices", registry.Len(),
		"any_ibeacon", registry.Wildcard(),
	)

	// Reading history (optional)
	var historyRepo history.Repository
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		repo := history.NewSQLiteRepository(db.DB)
		historyRepo = repo

		recorder := history.NewRecorder(repo, historySource(cfg.Bridge), log.Component("history"))
		registry.OnUpdate(recorder.Record)
		go recorder.RunPruner(ctx, cfg.GetRetention(), prunePeriod)
	} else {
		log.Info("reading history disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		registry.OnUpdate(influxClient.WriteReading)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.Topics{}.BridgeStatus(cfg.Bridge.ID))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	qos := byte(cfg.MQTT.QoS)

	// Subscriber: bus readings into local state
	var subscriber *bridge.Subscriber
	if cfg.Bridge.Subscribes() {
		subscriber, err = bridge.NewSubscriber(bridge.SubscriberOptions{
			Client:   mqttClient,
			Registry: registry,
			QoS:      qos,
			Logger:   log.Component("subscriber"),
		})
		if err != nil {
			return fmt.Errorf("creating subscriber: %w", err)
		}
		if startErr := subscriber.Start(); startErr != nil {
			log.Warn("subscribing to iBeacon topics failed, retrying on reconnect", "error", startErr)
		}
		defer func() {
			if stopErr := subscriber.Stop(); stopErr != nil {
				log.Error("error stopping subscriber", "error", stopErr)
			}
		}()
	}

	// Publisher and scanner: radio readings onto the bus
	var publisher *bridge.Publisher
	var source *beacon.Source
	if cfg.Bridge.Scans() {
		publisher, err = bridge.NewPublisher(bridge.PublisherOptions{
			Client:      mqttClient,
			Registry:    registry,
			QoS:         qos,
			Retain:      cfg.MQTT.Retain,
			UpdateState: !cfg.Bridge.Subscribes(),
			Logger:      log.Component("publisher"),
		})
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}

		scanner, scanErr := beacon.NewBLEScanner(cfg.Bluetooth.DeviceID, cfg.Bluetooth.AllowDuplicates)
		if scanErr != nil {
			return fmt.Errorf("opening bluetooth adapter: %w", scanErr)
		}
		defer func() {
			if closeErr := scanner.Close(); closeErr != nil {
				log.Error("error closing bluetooth adapter", "error", closeErr)
			}
		}()

		source, err = beacon.NewSource(beacon.SourceOptions{
			Scanner:         scanner,
			Handler:         publisher.HandleAdvertisement,
			RestartDelay:    time.Duration(cfg.Bluetooth.Restart.InitialDelay) * time.Second,
			MaxRestartDelay: time.Duration(cfg.Bluetooth.Restart.MaxDelay) * time.Second,
			Logger:          log.Component("scanner"),
		})
		if err != nil {
			return fmt.Errorf("creating beacon source: %w", err)
		}
		if startErr := source.Start(); startErr != nil {
			return fmt.Errorf("starting scanner: %w", startErr)
		}
		defer func() {
			log.Info("stopping scanner")
			source.Stop()
		}()
		log.Info("scanner started", "hci_device", cfg.Bluetooth.DeviceID)
	}

	// Home Assistant discovery for the sensors this bridge produces
	if cfg.HomeAssistant.Discovery && cfg.Bridge.Scans() {
		announcer, annErr := bridge.NewAnnouncer(bridge.DiscoveryOptions{
			Client:   mqttClient,
			Sensors:  sensor.ForRegistry(registry),
			BridgeID: cfg.Bridge.ID,
			Version:  version,
			Prefix:   cfg.HomeAssistant.Prefix,
			Logger:   log.Component("discovery"),
		})
		if annErr != nil {
			return fmt.Errorf("creating discovery announcer: %w", annErr)
		}
		if pubErr := announcer.Announce(); pubErr != nil {
			log.Warn("discovery announcement incomplete", "error", pubErr)
		}
		if watchErr := announcer.Watch(); watchErr != nil {
			log.Warn("watching Home Assistant status failed", "error", watchErr)
		}
		defer func() {
			if unwatchErr := announcer.Unwatch(); unwatchErr != nil {
				log.Debug("error unwatching Home Assistant status", "error", unwatchErr)
			}
		}()
	}

	// Health reporting
	healthCfg := bridge.HealthReporterConfig{
		BridgeID:   cfg.Bridge.ID,
		Version:    version,
		Mode:       cfg.Bridge.Mode,
		Interval:   cfg.GetHealthInterval(),
		Client:     mqttClient,
		Publisher:  publisher,
		Subscriber: subscriber,
		Devices:    registry,
	}
	if source != nil {
		healthCfg.Scanner = source
	}
	health := bridge.NewHealthReporter(healthCfg)
	health.SetLogger(log.Component("health"))
	if pubErr := health.PublishStarting(); pubErr != nil {
		log.Warn("failed to publish starting status", "error", pubErr)
	}
	health.Start(ctx)
	defer health.Stop()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		if subscriber != nil {
			if startErr := subscriber.Start(); startErr != nil {
				log.Warn("resubscribing to iBeacon topics failed", "error", startErr)
			}
		}
		//nolint:errcheck // next interval retries
		health.PublishNow()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// HTTP API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log.Component("api"),
			Registry: registry,
			History:  historyRepo,
			Health:   health,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// buildIdentities converts the monitor section into registry identities.
// Tilt colours come first, then generic beacons, then the wildcard.
func buildIdentities(m config.MonitorConfig) ([]device.Identity, error) {
	identities := make([]device.Identity, 0, len(m.TiltColors)+len(m.Beacons)+1)

	for _, name := range m.TiltColors {
		color, err := tilt.ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("monitor.tilt_colors: %w", err)
		}
		identities = append(identities, color.Identity())
	}

	for i, b := range m.Beacons {
		decoder := device.MajorDecoder
		if b.Decoder == config.DecoderTilt {
			decoder = tilt.Decoder
		}
		ident, err := device.NewIdentity(b.ID, b.Name, b.UUID, decoder)
		if err != nil {
			return nil, fmt.Errorf("monitor.beacons[%d]: %w", i, err)
		}
		identities = append(identities, ident)
	}

	if m.AnyIBeacon {
		identities = append(identities, device.AnyIBeacon)
	}
	return identities, nil
}

// historySource tags history rows by where local state comes from.
func historySource(b config.BridgeConfig) string {
	if b.Subscribes() {
		return history.SourceBus
	}
	return history.SourceScan
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database to check (may be nil if disabled)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
