package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
smartthings:
  token: "test-token"
  devices:
    - "device-1"
sync:
  poll_interval: 15
  confirm_window: 5
api:
  host: "127.0.0.1"
  port: 9090
database:
  path: "/tmp/mediabridge.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SmartThings.Token != "test-token" {
		t.Errorf("SmartThings.Token = %q, want %q", cfg.SmartThings.Token, "test-token")
	}
	if cfg.Sync.GetPollInterval() != 15*time.Second {
		t.Errorf("Sync.GetPollInterval() = %v, want 15s", cfg.Sync.GetPollInterval())
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	// Defaults survive partial files
	if cfg.Sync.CommandRetries != 3 {
		t.Errorf("Sync.CommandRetries = %d, want default 3", cfg.Sync.CommandRetries)
	}
	if cfg.SmartThings.BaseURL == "" {
		t.Error("SmartThings.BaseURL default not applied")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	_, err := Load(writeConfig(t, "api:\n  port: 8090\n"))
	if err == nil {
		t.Error("Load() expected validation error for missing token, got nil")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MEDIABRIDGE_SMARTTHINGS_TOKEN", "env-token")
	t.Setenv("MEDIABRIDGE_API_PORT", "9999")

	cfg, err := Load(writeConfig(t, "api:\n  port: 8090\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SmartThings.Token != "env-token" {
		t.Errorf("SmartThings.Token = %q, want env override", cfg.SmartThings.Token)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want env override 9999", cfg.API.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.SmartThings.Token = "token"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "missing token", mutate: func(c *Config) { c.SmartThings.Token = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.Sync.PollInterval = 0 }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.Sync.CommandRetries = 0 }, wantErr: true},
		{name: "zero queue", mutate: func(c *Config) { c.Sync.CommandQueueSize = 0 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{
			name: "influx enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Token = ""
			},
			wantErr: true,
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
