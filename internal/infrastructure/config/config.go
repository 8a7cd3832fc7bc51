package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rain gate fail-safe policies applied when the rainfall provider fails.
const (
	FailurePolicyAllow = "allow"
	FailurePolicyDeny  = "deny"
)

// Actuator drivers.
const (
	ActuatorDriverSimulated = "simulated"
	ActuatorDriverMQTT      = "mqtt"
)

// Config is the root configuration structure for the irrigation controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	EventLog  EventLogConfig  `yaml:"event_log"`
	Station   StationConfig   `yaml:"station"`
	Weather   WeatherConfig   `yaml:"weather"`
	Notify    NotifyConfig    `yaml:"notify"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Timezone is an IANA zone name. "Local" (the default) uses the host locale.
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates used for rainfall lookups.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// ScheduleConfig points at the station schedule file.
type ScheduleConfig struct {
	Path string `yaml:"path"`
}

// EventLogConfig contains the append-only watering log settings.
type EventLogConfig struct {
	Path string `yaml:"path"`
}

// StationConfig contains station driver timing.
type StationConfig struct {
	// PollInterval is the Idle poll period in seconds.
	PollInterval int `yaml:"poll_interval"`

	// RestartDelay is how long to wait before restarting a crashed driver (seconds).
	RestartDelay int `yaml:"restart_delay"`

	// NotifyTimeout bounds a single notification delivery (seconds).
	NotifyTimeout int `yaml:"notify_timeout"`
}

// WeatherConfig contains rainfall provider settings.
type WeatherConfig struct {
	Provider      string               `yaml:"provider"`
	APIKey        string               `yaml:"api_key"`
	BaseURL       string               `yaml:"base_url"`
	Timeout       int                  `yaml:"timeout"`
	FailurePolicy string               `yaml:"failure_policy"`
	Breaker       CircuitBreakerConfig `yaml:"breaker"`
}

// CircuitBreakerConfig configures the breaker around the rainfall provider.
type CircuitBreakerConfig struct {
	MaxFailures int `yaml:"max_failures"`
	OpenSeconds int `yaml:"open_seconds"`
}

// NotifyConfig contains notification settings.
type NotifyConfig struct {
	Enabled bool       `yaml:"enabled"`
	SMTP    SMTPConfig `yaml:"smtp"`
}

// SMTPConfig contains mail transport settings.
type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	ImplicitTLS bool   `yaml:"implicit_tls"`
	Timeout     int    `yaml:"timeout"`
}

// ActuatorConfig selects the valve driver.
type ActuatorConfig struct {
	Driver string `yaml:"driver"`
	QoS    int    `yaml:"qos"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
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

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path         string `yaml:"path"`
	PingInterval int    `yaml:"ping_interval"`
	PongTimeout  int    `yaml:"pong_timeout"`
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
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
// For example: IRRIGATION_WEATHER_API_KEY, IRRIGATION_SMTP_PASSWORD
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "garden-001",
			Name:     "Garden",
			Timezone: "Local",
		},
		Schedule: ScheduleConfig{
			Path: "configs/schedule.json",
		},
		EventLog: EventLogConfig{
			Path: "logs/log.txt",
		},
		Station: StationConfig{
			PollInterval:  45,
			RestartDelay:  60,
			NotifyTimeout: 30,
		},
		Weather: WeatherConfig{
			Provider:      "openweathermap",
			BaseURL:       "https://api.openweathermap.org/data/2.5/onecall/timemachine",
			Timeout:       30,
			FailurePolicy: FailurePolicyAllow,
			Breaker: CircuitBreakerConfig{
				MaxFailures: 3,
				OpenSeconds: 300,
			},
		},
		Notify: NotifyConfig{
			SMTP: SMTPConfig{
				Host:        "smtp.gmail.com",
				Port:        465,
				ImplicitTLS: true,
				Timeout:     30,
			},
		},
		Actuator: ActuatorConfig{
			Driver: ActuatorDriverSimulated,
			QoS:    1,
		},
		Database: DatabaseConfig{
			Path:        "./data/irrigation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "irrigation-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  5,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:         "/api/v1/ws",
			PingInterval: 30,
			PongTimeout:  10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IRRIGATION_SCHEDULE_PATH"); v != "" {
		cfg.Schedule.Path = v
	}
	if v := os.Getenv("IRRIGATION_EVENT_LOG_PATH"); v != "" {
		cfg.EventLog.Path = v
	}
	if v := os.Getenv("IRRIGATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Site coordinates
	if v := os.Getenv("IRRIGATION_SITE_LATITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Site.Location.Latitude = f
		}
	}
	if v := os.Getenv("IRRIGATION_SITE_LONGITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Site.Location.Longitude = f
		}
	}

	// Weather
	if v := os.Getenv("IRRIGATION_WEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}

	// Notifications
	if v := os.Getenv("IRRIGATION_SMTP_USERNAME"); v != "" {
		cfg.Notify.SMTP.Username = v
	}
	if v := os.Getenv("IRRIGATION_SMTP_PASSWORD"); v != "" {
		cfg.Notify.SMTP.Password = v
	}

	// MQTT
	if v := os.Getenv("IRRIGATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("IRRIGATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent field checks
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Site.Timezone != "" && c.Site.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
		}
	}
	if c.Site.Location.Latitude < -90 || c.Site.Location.Latitude > 90 {
		errs = append(errs, "site.location.latitude must be between -90 and 90")
	}
	if c.Site.Location.Longitude < -180 || c.Site.Location.Longitude > 180 {
		errs = append(errs, "site.location.longitude must be between -180 and 180")
	}

	if c.Schedule.Path == "" {
		errs = append(errs, "schedule.path is required")
	}
	if c.EventLog.Path == "" {
		errs = append(errs, "event_log.path is required")
	}

	if c.Station.PollInterval < 1 || c.Station.PollInterval > 59 {
		errs = append(errs, "station.poll_interval must be between 1 and 59 seconds")
	}

	switch c.Weather.FailurePolicy {
	case FailurePolicyAllow, FailurePolicyDeny:
	default:
		errs = append(errs, "weather.failure_policy must be \"allow\" or \"deny\"")
	}
	if c.Weather.Timeout <= 0 {
		errs = append(errs, "weather.timeout must be positive")
	}

	if c.Notify.Enabled {
		if c.Notify.SMTP.Host == "" {
			errs = append(errs, "notify.smtp.host is required when notifications are enabled")
		}
		if c.Notify.SMTP.Port < 1 || c.Notify.SMTP.Port > 65535 {
			errs = append(errs, "notify.smtp.port must be between 1 and 65535")
		}
		if c.Notify.SMTP.Username == "" && c.Notify.SMTP.From == "" {
			errs = append(errs, "notify.smtp.username or notify.smtp.from is required")
		}
	}

	switch c.Actuator.Driver {
	case ActuatorDriverSimulated:
	case ActuatorDriverMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "actuator.driver \"mqtt\" requires mqtt.enabled")
		}
	default:
		errs = append(errs, "actuator.driver must be \"simulated\" or \"mqtt\"")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Actuator.QoS < 0 || c.Actuator.QoS > 2 {
		errs = append(errs, "actuator.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the time zone used for schedule matching.
// An empty or "Local" timezone yields the host locale.
func (c *Config) Location() *time.Location {
	if c.Site.Timezone == "" || c.Site.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetPollInterval returns the station poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Station.PollInterval) * time.Second
}

// GetRestartDelay returns the driver restart delay as a Duration.
func (c *Config) GetRestartDelay() time.Duration {
	return time.Duration(c.Station.RestartDelay) * time.Second
}

// GetNotifyTimeout returns the per-notification timeout as a Duration.
func (c *Config) GetNotifyTimeout() time.Duration {
	return time.Duration(c.Station.NotifyTimeout) * time.Second
}

// GetWeatherTimeout returns the rainfall provider timeout as a Duration.
func (c *Config) GetWeatherTimeout() time.Duration {
	return time.Duration(c.Weather.Timeout) * time.Second
}

// GetBreakerOpenTimeout returns how long the provider circuit stays open.
func (c *Config) GetBreakerOpenTimeout() time.Duration {
	return time.Duration(c.Weather.Breaker.OpenSeconds) * time.Second
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
