// Media Bridge - SmartThings media player synchronisation service.
//
// The bridge attaches to SmartThings media players, keeps a local
// reconciled state per device, accepts intents over HTTP, and fans
// state changes out to MQTT, SQLite history, InfluxDB telemetry and a
// WebSocket feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stbridge/media-bridge-core/internal/api"
	"github.com/stbridge/media-bridge-core/internal/bridge"
	"github.com/stbridge/media-bridge-core/internal/history"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/config"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/database"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/logging"
	"github.com/stbridge/media-bridge-core/internal/infrastructure/mqtt"
	"github.com/stbridge/media-bridge-core/internal/smartthings"
	"github.com/stbridge/media-bridge-core/internal/telemetry"
)

// Version information - set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// historyRetention is how long state snapshots are kept locally.
const historyRetention = 30 * 24 * time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting media bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Open database and history store
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

	historyRepo, err := history.NewSQLiteRepository(db.DB)
	if err != nil {
		return fmt.Errorf("initialising history store: %w", err)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
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
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the bridge manager over the SmartThings transport
	stClient := smartthings.New(cfg.SmartThings)

	mgrOpts := bridge.Options{
		Client:  stClient,
		Sync:    cfg.Sync,
		Logger:  log,
		History: historyRepo,
	}
	if mqttClient != nil {
		mgrOpts.Publisher = mqttClient
	}
	if influxClient != nil {
		mgrOpts.Telemetry = influxClient
	}

	manager, err := bridge.NewManager(mgrOpts)
	if err != nil {
		return fmt.Errorf("creating bridge manager: %w", err)
	}
	defer func() {
		log.Info("stopping device controllers")
		manager.Stop()
	}()

	// Attach configured devices; a device that fails discovery is
	// skipped, not fatal, so one unreachable soundbar doesn't take the
	// bridge down.
	attached := 0
	for _, deviceID := range cfg.SmartThings.Devices {
		if _, attachErr := manager.Attach(ctx, deviceID); attachErr != nil {
			log.Error("device attach failed", "device_id", deviceID, "error", attachErr)
			continue
		}
		attached++
	}
	log.Info("devices attached", "attached", attached, "configured", len(cfg.SmartThings.Devices))

	// Prune old history daily
	go pruneLoop(ctx, historyRepo, log)

	// Start the API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Bridge:  manager,
		History: historyRepo,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// pruneLoop removes history snapshots past retention once a day.
func pruneLoop(ctx context.Context, repo history.Repository, log *logging.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Prune(ctx, historyRetention)
			if err != nil {
				log.Error("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("history pruned", "rows", n)
			}
		}
	}
}

// getConfigPath returns the configuration file path. Uses the
// MEDIABRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MEDIABRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
