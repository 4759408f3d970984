package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the media bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	SmartThings SmartThingsConfig `yaml:"smartthings"`
	Sync        SyncConfig        `yaml:"sync"`
	API         APIConfig         `yaml:"api"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Database    DatabaseConfig    `yaml:"database"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SmartThingsConfig contains cloud API connection settings.
//
// The token is a personal access token with device read/execute scopes.
// It should be supplied via MEDIABRIDGE_SMARTTHINGS_TOKEN rather than
// committed to the config file.
type SmartThingsConfig struct {
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token"`
	Devices []string `yaml:"devices"`

	// RequestTimeout is the per-request timeout in seconds.
	RequestTimeout int `yaml:"request_timeout"`
}

// SyncConfig contains per-device synchronisation settings.
type SyncConfig struct {
	// PollInterval is the cadence of full-status polls in seconds.
	PollInterval int `yaml:"poll_interval"`

	// ConfirmWindow is how long a dispatched command waits for a
	// confirming attribute report before expiring, in seconds.
	ConfirmWindow int `yaml:"confirm_window"`

	// CommandRetries is the number of transport attempts per command.
	CommandRetries int `yaml:"command_retries"`

	// RetryBackoff is the initial retry delay in milliseconds.
	// Subsequent retries double the delay.
	RetryBackoff int `yaml:"retry_backoff"`

	// CommandQueueSize bounds the per-device queue of outbound commands.
	// When full, dispatch blocks until the transport drains; commands are
	// never silently dropped.
	CommandQueueSize int `yaml:"command_queue_size"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// AuthSecret is the HS256 secret for bearer token validation.
	// Empty disables authentication (local development only).
	AuthSecret string `yaml:"auth_secret"`

	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MQTTConfig contains optional MQTT broker settings for state publishing.
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains optional attribute-report telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
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
// Environment variables follow the pattern: MEDIABRIDGE_SECTION_KEY
// For example: MEDIABRIDGE_SMARTTHINGS_TOKEN, MEDIABRIDGE_API_PORT
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		SmartThings: SmartThingsConfig{
			BaseURL:        "https://api.smartthings.com/v1",
			RequestTimeout: 10,
		},
		Sync: SyncConfig{
			PollInterval:     30,
			ConfirmWindow:    10,
			CommandRetries:   3,
			RetryBackoff:     500,
			CommandQueueSize: 8,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mediabridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Database: DatabaseConfig{
			Path:        "data/mediabridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "mediabridge",
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies MEDIABRIDGE_* environment variables to the config.
// Only the values operators commonly need to override are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEDIABRIDGE_SMARTTHINGS_TOKEN"); v != "" {
		cfg.SmartThings.Token = v
	}
	if v := os.Getenv("MEDIABRIDGE_SMARTTHINGS_BASE_URL"); v != "" {
		cfg.SmartThings.BaseURL = v
	}
	if v := os.Getenv("MEDIABRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MEDIABRIDGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("MEDIABRIDGE_API_AUTH_SECRET"); v != "" {
		cfg.API.AuthSecret = v
	}
	if v := os.Getenv("MEDIABRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MEDIABRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MEDIABRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("MEDIABRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("MEDIABRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SmartThings.BaseURL == "" {
		return fmt.Errorf("smartthings.base_url is required")
	}
	if c.SmartThings.Token == "" {
		return fmt.Errorf("smartthings.token is required (set MEDIABRIDGE_SMARTTHINGS_TOKEN)")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", c.API.Port)
	}
	if c.Sync.PollInterval < 1 {
		return fmt.Errorf("sync.poll_interval must be at least 1 second, got %d", c.Sync.PollInterval)
	}
	if c.Sync.ConfirmWindow < 1 {
		return fmt.Errorf("sync.confirm_window must be at least 1 second, got %d", c.Sync.ConfirmWindow)
	}
	if c.Sync.CommandRetries < 1 {
		return fmt.Errorf("sync.command_retries must be at least 1, got %d", c.Sync.CommandRetries)
	}
	if c.Sync.CommandQueueSize < 1 {
		return fmt.Errorf("sync.command_queue_size must be at least 1, got %d", c.Sync.CommandQueueSize)
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		return fmt.Errorf("mqtt.broker.host is required when mqtt is enabled")
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			return fmt.Errorf("influxdb.token is required when influxdb is enabled")
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// GetPollInterval returns the poll interval as a duration.
func (c *SyncConfig) GetPollInterval() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// GetConfirmWindow returns the confirmation window as a duration.
func (c *SyncConfig) GetConfirmWindow() time.Duration {
	return time.Duration(c.ConfirmWindow) * time.Second
}

// GetRetryBackoff returns the initial retry delay as a duration.
func (c *SyncConfig) GetRetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}

// GetRequestTimeout returns the per-request timeout as a duration.
func (c *SmartThingsConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
