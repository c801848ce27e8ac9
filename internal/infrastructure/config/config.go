package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for ClickFlow Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
	Failsafe  FailsafeConfig  `yaml:"failsafe"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AppConfig contains instance-level information.
type AppConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// EngineConfig contains default run parameters.
//
// These values seed a run when the caller (API, MQTT bridge, profile)
// does not specify its own; a profile's stored run configuration always
// takes precedence.
type EngineConfig struct {
	// Cycles is the default cycle count. 0 means run until stopped.
	Cycles int `yaml:"cycles"`

	// InterStepDelayMS is the pause between consecutive actions (milliseconds).
	InterStepDelayMS int `yaml:"inter_step_delay_ms"`

	// MoveDurationMS is the base pointer travel time for positional actions.
	MoveDurationMS int `yaml:"move_duration_ms"`

	// MoveSpeed scales pointer travel time. 2.0 halves travel duration.
	MoveSpeed float64 `yaml:"move_speed"`

	// InitialDelayMS is the countdown before the first cycle, giving the
	// operator time to focus the target application.
	InitialDelayMS int `yaml:"initial_delay_ms"`

	// StopOnError aborts the run on the first failed action when true.
	// Default false: a single bad step must not halt long unattended runs.
	StopOnError bool `yaml:"stop_on_error"`
}

// FailsafeConfig contains emergency-stop settings.
type FailsafeConfig struct {
	// Enabled controls pointer-corner detection. The abort hotkey stays
	// armed regardless; set Hotkey to "" to disarm it entirely.
	Enabled bool `yaml:"enabled"`

	// Hotkey is the global abort key (default "f9").
	Hotkey string `yaml:"hotkey"`

	// CornerMarginPx is the size of the guarded square at each corner of
	// the primary display.
	CornerMarginPx int `yaml:"corner_margin_px"`

	// PollIntervalMS is how often the pointer position is sampled.
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the remote bridge.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for run telemetry.
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
// Environment variables follow the pattern: CLICKFLOW_SECTION_KEY
// For example: CLICKFLOW_DATABASE_PATH, CLICKFLOW_API_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			ID:   "clickflow-001",
			Name: "ClickFlow Core",
		},
		Database: DatabaseConfig{
			Path:        "./data/clickflow.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Engine: EngineConfig{
			Cycles:           1,
			InterStepDelayMS: 250,
			MoveDurationMS:   300,
			MoveSpeed:        1.0,
			InitialDelayMS:   3000,
			StopOnError:      false,
		},
		Failsafe: FailsafeConfig{
			Enabled:        true,
			Hotkey:         "f9",
			CornerMarginPx: 10,
			PollIntervalMS: 50,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "clickflow-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CLICKFLOW_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CLICKFLOW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("CLICKFLOW_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// MQTT
	if v := os.Getenv("CLICKFLOW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CLICKFLOW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CLICKFLOW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CLICKFLOW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.App.ID == "" {
		errs = append(errs, "app.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Engine.Cycles < 0 {
		errs = append(errs, "engine.cycles must be 0 (until stopped) or positive")
	}
	if c.Engine.InterStepDelayMS < 0 {
		errs = append(errs, "engine.inter_step_delay_ms must be >= 0")
	}
	if c.Engine.MoveSpeed <= 0 {
		errs = append(errs, "engine.move_speed must be > 0")
	}

	if c.Failsafe.CornerMarginPx < 0 {
		errs = append(errs, "failsafe.corner_margin_px must be >= 0")
	}
	if c.Failsafe.PollIntervalMS <= 0 {
		errs = append(errs, "failsafe.poll_interval_ms must be > 0")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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
