// ClickFlow Core - Desktop Macro Playback Daemon
//
// This is the main entry point for the ClickFlow Core daemon. ClickFlow
// plays back recorded mouse/keyboard sequences against the local desktop:
//   - Profile storage with run history (SQLite)
//   - Local REST/WebSocket control API
//   - Optional MQTT remote control and InfluxDB run telemetry
//   - Hardware failsafe (abort hotkey + screen-corner detection)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/clickflow/clickflow-core/migrations"

	"github.com/clickflow/clickflow-core/internal/api"
	"github.com/clickflow/clickflow-core/internal/failsafe"
	"github.com/clickflow/clickflow-core/internal/infrastructure/config"
	"github.com/clickflow/clickflow-core/internal/infrastructure/database"
	"github.com/clickflow/clickflow-core/internal/infrastructure/influxdb"
	"github.com/clickflow/clickflow-core/internal/infrastructure/logging"
	"github.com/clickflow/clickflow-core/internal/infrastructure/mqtt"
	"github.com/clickflow/clickflow-core/internal/input"
	"github.com/clickflow/clickflow-core/internal/macro"
	"github.com/clickflow/clickflow-core/internal/remote"
	"github.com/clickflow/clickflow-core/internal/telemetry"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit // Composition root: linear bootstrap with per-component teardown
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ClickFlow Core",
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

	// Initialise profile registry
	repo := macro.NewSQLiteRepository(db.DB)
	registry := macro.NewRegistry(repo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading profile registry: %w", refreshErr)
	}
	log.Info("profile registry initialised", "profiles", registry.GetProfileCount())

	// Playback engine drives the real desktop through robotgo
	driver := input.NewRobotgo()
	engine := macro.NewEngine(driver, repo, log)

	// WebSocket hub is created here so the run observer can broadcast
	// through it; the API server adopts it via ExternalHub.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Observer chain for every run, regardless of trigger
	observers := macro.MultiObserver{
		macro.LogObserver{Logger: log},
		api.NewHubObserver(hub),
	}

	// Failsafe: abort hotkey + pointer-corner detection. The engine
	// arms the monitor per run with that run's failsafe settings and
	// disarms it on termination.
	monitor := failsafe.NewMonitor(engine, failsafe.RobotgoPointer{}, failsafe.NewHookSource(), log)
	monitor.SetAbortHandler(func(reason string) {
		log.Warn("failsafe abort", "reason", reason)
	})
	engine.SetGuard(failsafe.NewGuard(monitor, time.Duration(cfg.Failsafe.PollIntervalMS)*time.Millisecond))
	defer func() {
		log.Info("disarming failsafe")
		monitor.Disarm()
	}()
	log.Info("failsafe guard registered",
		"default_hotkey", cfg.Failsafe.Hotkey,
		"default_corner_abort", cfg.Failsafe.Enabled,
	)

	// Connect to MQTT broker (optional remote control)
	var (
		mqttClient *mqtt.Client
		bridge     *remote.Bridge
	)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		bridge = remote.NewBridge(mqttClient, engine, registry, log)
		if bridgeErr := bridge.Start(); bridgeErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", bridgeErr)
		}
		observers = append(observers, bridge.Events())
		log.Info("MQTT remote bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional run telemetry)
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

		observers = append(observers, telemetry.NewSink(influxClient, engine))
	} else {
		log.Info("InfluxDB disabled")
	}

	// The bridge drives remote runs with the complete chain, so an
	// MQTT-triggered run reaches the hub and telemetry like any other.
	if bridge != nil {
		bridge.SetObserver(observers)
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		Engine:   engine,
		Repo:     repo,
		Observer: observers,
		Defaults: macro.RunConfig{
			Cycles:                 cfg.Engine.Cycles,
			InterStepDelayMS:       cfg.Engine.InterStepDelayMS,
			MoveDurationMS:         cfg.Engine.MoveDurationMS,
			MoveSpeed:              cfg.Engine.MoveSpeed,
			InitialDelayMS:         cfg.Engine.InitialDelayMS,
			StopOnError:            cfg.Engine.StopOnError,
			FailsafeEnabled:        cfg.Failsafe.Enabled,
			FailsafeHotkey:         cfg.Failsafe.Hotkey,
			FailsafeCornerMarginPx: cfg.Failsafe.CornerMarginPx,
		},
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Failsafe monitor
	// 5. Database

	log.Info("ClickFlow Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CLICKFLOW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CLICKFLOW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
