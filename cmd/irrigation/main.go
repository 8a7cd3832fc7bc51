// Gray Logic Irrigation - multi-station garden watering controller
//
// This is the main entry point. It loads the site configuration and the
// station schedule, wires the rain gate, valves, notifications and
// telemetry, and runs one control loop per station until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/nerrad567/gray-logic-irrigation/migrations"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuator"
	"github.com/nerrad567/gray-logic-irrigation/internal/api"
	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-irrigation/internal/metrics"
	"github.com/nerrad567/gray-logic-irrigation/internal/notify"
	"github.com/nerrad567/gray-logic-irrigation/internal/raingate"
	"github.com/nerrad567/gray-logic-irrigation/internal/schedule"
	"github.com/nerrad567/gray-logic-irrigation/internal/station"
	"github.com/nerrad567/gray-logic-irrigation/internal/telemetry"
	"github.com/nerrad567/gray-logic-irrigation/internal/weather"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// weatherProviderOpenWeather is the only supported rainfall provider.
const weatherProviderOpenWeather = "openweathermap"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, prometheus.DefaultRegisterer); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - reg: Registry for Prometheus metrics
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, reg prometheus.Registerer) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting irrigation controller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	table, err := schedule.Load(cfg.Schedule.Path)
	if err != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}
	if err := validateStartup(cfg, table); err != nil {
		return err
	}

	log = logging.New(cfg.Logging, version)
	clock := schedule.SystemClock{Location: cfg.Location()}
	log.Info("irrigation controller started",
		"time", clock.Now().Format(eventlog.TimeLayout),
		"config", configPath,
		"schedule", cfg.Schedule.Path,
		"stations", len(table.Stations),
	)

	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("initialising metrics: %w", err)
	}

	// Watering log
	logWriter, err := eventlog.OpenFile(cfg.EventLog.Path)
	if err != nil {
		return fmt.Errorf("opening watering log: %w", err)
	}
	defer func() {
		if closeErr := logWriter.Close(); closeErr != nil {
			log.Error("error closing watering log", "error", closeErr)
		}
	}()
	logWriter.SetOnError(func(err error, ev eventlog.Event) {
		log.Error("watering log append failed", "station_id", ev.StationID, "event_id", ev.ID, "error", err)
		collector.LogAppendFailed(err, ev)
	})

	// Occurrence history
	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	hist := history.NewSQLiteRepository(db.DB)
	log.Info("database ready", "path", cfg.Database.Path)

	observers := []station.Observer{collector}
	health := map[string]api.HealthChecker{"database": db}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(collector.MQTTConnectionLost)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		observers = append(observers, telemetry.NewMQTTPublisher(mqttClient, clock.Now, log.With("component", "telemetry")))
		health["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		observers = append(observers, telemetry.NewInfluxRecorder(influxClient, cfg.Site.ID))
		health["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
		observers = append(observers, hub)
	}

	gate, breaker, err := buildGate(cfg, table, clock, log)
	if err != nil {
		return err
	}
	if breaker != nil {
		health["weather"] = breaker
	}
	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	notifier = collector.CountFailures(notifier)

	site := schedule.Coordinates{
		Latitude:  cfg.Site.Location.Latitude,
		Longitude: cfg.Site.Location.Longitude,
	}
	drivers := make([]*station.Driver, 0, len(table.Stations))
	for _, st := range table.Stations {
		act, actErr := buildActuator(cfg, st.ID, clock, mqttClient)
		if actErr != nil {
			return actErr
		}
		d, drvErr := station.NewDriver(station.Config{
			Station:       st,
			Site:          site,
			Clock:         clock,
			Gate:          gate,
			Actuator:      act,
			Log:           logWriter,
			Notifier:      notifier,
			History:       hist,
			Observers:     observers,
			PollInterval:  cfg.GetPollInterval(),
			NotifyTimeout: cfg.GetNotifyTimeout(),
			Logger:        log.With("station_id", st.ID),
		})
		if drvErr != nil {
			return fmt.Errorf("station %s: %w", st.ID, drvErr)
		}
		drivers = append(drivers, d)
	}

	ctrl, err := station.NewController(drivers, station.ControllerConfig{
		RestartDelay: cfg.GetRestartDelay(),
		OnRestart:    collector.DriverRestarted,
		Logger:       log.With("component", "controller"),
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	// Status API (optional)
	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log.With("component", "api"),
			Stations: ctrl,
			History:  hist,
			Health:   health,
			Metrics:  metricsHandler(reg),
			Hub:      hub,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, stations running")
	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("running stations: %w", err)
	}

	log.Info("irrigation controller stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IRRIGATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRRIGATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// validateStartup checks the configuration against the loaded schedule.
func validateStartup(cfg *config.Config, table *schedule.Table) error {
	if len(table.Stations) == 0 {
		return fmt.Errorf("schedule %s defines no stations", cfg.Schedule.Path)
	}
	if !table.RainSensing() {
		return nil
	}
	if cfg.Weather.Provider != weatherProviderOpenWeather {
		return fmt.Errorf("unsupported weather.provider %q", cfg.Weather.Provider)
	}
	if cfg.Weather.APIKey == "" {
		return fmt.Errorf("weather.api_key is required when a station uses rain sensing: %w", weather.ErrMissingAPIKey)
	}
	return nil
}

// buildGate creates the rain gate shared by all drivers. No provider is
// created when no station uses rain sensing, and the returned breaker is
// then nil.
func buildGate(cfg *config.Config, table *schedule.Table, clock schedule.Clock, log *logging.Logger) (*raingate.Gate, *weather.Breaker, error) {
	policy, err := raingate.ParsePolicy(cfg.Weather.FailurePolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("weather.failure_policy: %w", err)
	}

	var (
		provider weather.Provider
		breaker  *weather.Breaker
	)
	if table.RainSensing() {
		ow, owErr := weather.NewOpenWeather(weather.OpenWeatherConfig{
			APIKey:  cfg.Weather.APIKey,
			BaseURL: cfg.Weather.BaseURL,
			Timeout: cfg.GetWeatherTimeout(),
		})
		if owErr != nil {
			return nil, nil, fmt.Errorf("creating rainfall provider: %w", owErr)
		}
		breaker = weather.NewBreaker(ow, weather.BreakerConfig{
			MaxFailures: cfg.Weather.Breaker.MaxFailures,
			OpenTimeout: cfg.GetBreakerOpenTimeout(),
			Logger:      log.With("component", "weather"),
		})
		provider = breaker
		log.Info("rainfall provider ready", "provider", cfg.Weather.Provider, "failure_policy", policy.String())
	}

	return raingate.New(raingate.Config{
		Provider: provider,
		Clock:    clock,
		Policy:   policy,
		Timeout:  cfg.GetWeatherTimeout(),
	}), breaker, nil
}

// buildNotifier returns the SMTP notifier, or a log-only notifier when
// notifications are disabled.
func buildNotifier(cfg *config.Config, log *logging.Logger) (notify.Notifier, error) {
	if !cfg.Notify.Enabled {
		log.Info("notifications disabled, messages will be logged only")
		return notify.NewLogNotifier(log.With("component", "notify")), nil
	}
	n, err := notify.NewSMTP(notify.SMTPConfigFrom(cfg.Notify.SMTP))
	if err != nil {
		return nil, fmt.Errorf("creating SMTP notifier: %w", err)
	}
	log.Info("SMTP notifications enabled", "host", cfg.Notify.SMTP.Host, "recipient", n.Recipient())
	return n, nil
}

// buildActuator creates the valve driver for one station.
func buildActuator(cfg *config.Config, stationID string, clock schedule.Clock, mqttClient *mqtt.Client) (actuator.Actuator, error) {
	switch cfg.Actuator.Driver {
	case config.ActuatorDriverMQTT:
		if mqttClient == nil {
			return nil, errors.New("actuator.driver \"mqtt\" requires an MQTT connection")
		}
		return actuator.NewMQTTRelay(mqttClient, stationID, byte(cfg.Actuator.QoS)), nil //nolint:gosec // QoS validated to 0-2
	default:
		return actuator.NewSimulated(clock.Now), nil
	}
}

// metricsHandler serves the metrics registered on reg.
func metricsHandler(reg prometheus.Registerer) http.Handler {
	if reg == prometheus.DefaultRegisterer {
		return promhttp.Handler()
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
