package config

import (
	"os"
	"path/filepath"
	"strings"
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
	configPath := writeConfig(t, `
site:
  id: "test-site"
  location:
    latitude: 51.5
    longitude: -0.12
schedule:
  path: "/etc/irrigation/schedule.json"
event_log:
  path: "/var/log/irrigation/log.txt"
weather:
  api_key: "abc123"
  failure_policy: "deny"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Site.Location.Latitude != 51.5 {
		t.Errorf("Site.Location.Latitude = %v, want 51.5", cfg.Site.Location.Latitude)
	}
	if cfg.Schedule.Path != "/etc/irrigation/schedule.json" {
		t.Errorf("Schedule.Path = %q", cfg.Schedule.Path)
	}
	if cfg.Weather.FailurePolicy != FailurePolicyDeny {
		t.Errorf("Weather.FailurePolicy = %q, want %q", cfg.Weather.FailurePolicy, FailurePolicyDeny)
	}
	// Defaults survive a partial file.
	if cfg.Station.PollInterval != 45 {
		t.Errorf("Station.PollInterval = %d, want 45", cfg.Station.PollInterval)
	}
	if cfg.Actuator.Driver != ActuatorDriverSimulated {
		t.Errorf("Actuator.Driver = %q, want %q", cfg.Actuator.Driver, ActuatorDriverSimulated)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
weather:
  failure_policy: "maybe"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "site.id") || !strings.Contains(err.Error(), "failure_policy") {
		t.Errorf("Load() error = %v, want both problems reported", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Site.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "explicit timezone",
			mutate:  func(c *Config) { c.Site.Timezone = "UTC" },
			wantErr: false,
		},
		{
			name:    "latitude out of range",
			mutate:  func(c *Config) { c.Site.Location.Latitude = 91 },
			wantErr: true,
		},
		{
			name:    "missing schedule path",
			mutate:  func(c *Config) { c.Schedule.Path = "" },
			wantErr: true,
		},
		{
			name:    "missing event log path",
			mutate:  func(c *Config) { c.EventLog.Path = "" },
			wantErr: true,
		},
		{
			name:    "poll interval of a minute misses slots",
			mutate:  func(c *Config) { c.Station.PollInterval = 60 },
			wantErr: true,
		},
		{
			name:    "unknown failure policy",
			mutate:  func(c *Config) { c.Weather.FailurePolicy = "sometimes" },
			wantErr: true,
		},
		{
			name: "notify enabled without sender",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
			},
			wantErr: true,
		},
		{
			name: "notify enabled with username",
			mutate: func(c *Config) {
				c.Notify.Enabled = true
				c.Notify.SMTP.Username = "garden@example.com"
			},
			wantErr: false,
		},
		{
			name:    "mqtt actuator without mqtt",
			mutate:  func(c *Config) { c.Actuator.Driver = ActuatorDriverMQTT },
			wantErr: true,
		},
		{
			name: "mqtt actuator with mqtt",
			mutate: func(c *Config) {
				c.Actuator.Driver = ActuatorDriverMQTT
				c.MQTT.Enabled = true
			},
			wantErr: false,
		},
		{
			name:    "unknown actuator driver",
			mutate:  func(c *Config) { c.Actuator.Driver = "gpio" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid MQTT QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "invalid API port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("IRRIGATION_SCHEDULE_PATH", "/env/schedule.json")
	t.Setenv("IRRIGATION_WEATHER_API_KEY", "env-key")
	t.Setenv("IRRIGATION_SMTP_PASSWORD", "env-pass")
	t.Setenv("IRRIGATION_SITE_LATITUDE", "40.25")
	t.Setenv("IRRIGATION_SITE_LONGITUDE", "not-a-number")
	t.Setenv("IRRIGATION_MQTT_HOST", "broker.local")
	t.Setenv("IRRIGATION_INFLUXDB_TOKEN", "influx-token")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Schedule.Path != "/env/schedule.json" {
		t.Errorf("Schedule.Path = %q", cfg.Schedule.Path)
	}
	if cfg.Weather.APIKey != "env-key" {
		t.Errorf("Weather.APIKey = %q", cfg.Weather.APIKey)
	}
	if cfg.Notify.SMTP.Password != "env-pass" {
		t.Errorf("Notify.SMTP.Password = %q", cfg.Notify.SMTP.Password)
	}
	if cfg.Site.Location.Latitude != 40.25 {
		t.Errorf("Site.Location.Latitude = %v, want 40.25", cfg.Site.Location.Latitude)
	}
	if cfg.Site.Location.Longitude != 0 {
		t.Errorf("Site.Location.Longitude = %v, want unparsable value ignored", cfg.Site.Location.Longitude)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.InfluxDB.Token != "influx-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Location() != time.Local {
		t.Error("Location() with default timezone should be time.Local")
	}

	cfg.Site.Timezone = "UTC"
	if got := cfg.Location().String(); got != "UTC" {
		t.Errorf("Location() = %q, want UTC", got)
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetPollInterval(); got != 45*time.Second {
		t.Errorf("GetPollInterval() = %v, want 45s", got)
	}
	if got := cfg.GetRestartDelay(); got != time.Minute {
		t.Errorf("GetRestartDelay() = %v, want 1m", got)
	}
	if got := cfg.GetNotifyTimeout(); got != 30*time.Second {
		t.Errorf("GetNotifyTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWeatherTimeout(); got != 30*time.Second {
		t.Errorf("GetWeatherTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetBreakerOpenTimeout(); got != 5*time.Minute {
		t.Errorf("GetBreakerOpenTimeout() = %v, want 5m", got)
	}
	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}
