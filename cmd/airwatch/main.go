// AirWatch Core - Air Quality Fleet Controller
//
// This is the main entry point for the AirWatch controller. It tracks a
// fleet of air-quality sensors over MQTT: connection lifecycle with
// automatic reconnect and outbound buffering, per-device subscription
// routing, telemetry parsing with liveness tracking, and roster
// persistence across restarts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mkerrins/airwatch-core/migrations"

	"github.com/mkerrins/airwatch-core/internal/device"
	"github.com/mkerrins/airwatch-core/internal/infrastructure/config"
	"github.com/mkerrins/airwatch-core/internal/infrastructure/database"
	"github.com/mkerrins/airwatch-core/internal/infrastructure/influxdb"
	"github.com/mkerrins/airwatch-core/internal/infrastructure/logging"
	"github.com/mkerrins/airwatch-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting AirWatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to InfluxDB (optional telemetry history)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the bus connection; it stays disconnected until Connect()
	conn := mqtt.New(cfg.MQTT)
	conn.SetLogger(log)

	// Initialise the device registry over the bus and roster store
	store := device.NewSQLiteStore(db.DB)
	registry := device.NewRegistry(conn, store)
	registry.SetLogger(log)
	registry.SetQoS(byte(cfg.MQTT.QoS)) // #nosec G115 -- validated 0-2 by config
	if influxClient != nil {
		registry.SetHistory(influxClient)
	}

	// The registry's event loop loads the persisted roster when the
	// first connection completes and routes telemetry from then on
	runDone := make(chan struct{})
	go func() {
		registry.Run(ctx)
		close(runDone)
	}()

	conn.Connect()
	log.Info("connecting to MQTT broker",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Persist the roster and release the bus, then wait for the event
	// loop to drain. Deferred Close() calls then run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. Database
	shutdownCtx := context.Background()
	registry.Shutdown(shutdownCtx)
	<-runDone

	log.Info("AirWatch Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AIRWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AIRWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
