// Package metrics exposes Prometheus metrics for the irrigation stations.
//
// A Collector is a station.Observer: register it with every driver and it
// keeps per-station counters of occurrences, watering time, measured
// rainfall and the current cycle state.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/notify"
	"github.com/nerrad567/gray-logic-irrigation/internal/station"
)

const metricPrefix = "irrigation_"

// Collector records station activity as Prometheus metrics.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Collector struct {
	occurrences   *prometheus.CounterVec
	wateringSecs  *prometheus.CounterVec
	rainfall      *prometheus.GaugeVec
	failSafe      *prometheus.CounterVec
	state         *prometheus.GaugeVec
	logErrors     prometheus.Counter
	notifyErrors  prometheus.Counter
	driverRestart *prometheus.CounterVec
	mqttDrops     prometheus.Counter
}

// New creates a Collector and registers its metrics with reg.
//
// Parameters:
//   - reg: Registry to register with; prometheus.DefaultRegisterer in production
//
// Returns:
//   - *Collector: Ready collector
//   - error: If a metric with the same name is already registered
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		occurrences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "occurrences_total",
				Help: "Scheduled watering occurrences by station and outcome",
			},
			[]string{"station", "outcome"},
		),
		wateringSecs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "watering_seconds_total",
				Help: "Seconds of completed watering by station",
			},
			[]string{"station"},
		),
		rainfall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "rainfall_mm",
				Help: "Trailing 24 hour rainfall measured at the last check",
			},
			[]string{"station"},
		),
		failSafe: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rain_gate_failsafe_total",
				Help: "Rain checks decided by the fail-safe policy",
			},
			[]string{"station"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "station_state",
				Help: "1 for the current cycle state of each station, 0 otherwise",
			},
			[]string{"station", "state"},
		),
		logErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "eventlog_append_errors_total",
			Help: "Watering log appends that failed after retry",
		}),
		notifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "notification_errors_total",
			Help: "Notifications that could not be sent",
		}),
		driverRestart: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "driver_restarts_total",
				Help: "Station drivers restarted after a failure",
			},
			[]string{"station"},
		),
		mqttDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "mqtt_connection_lost_total",
			Help: "MQTT broker connections lost",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.occurrences,
		c.wateringSecs,
		c.rainfall,
		c.failSafe,
		c.state,
		c.logErrors,
		c.notifyErrors,
		c.driverRestart,
		c.mqttDrops,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return c, nil
}

// StateChanged implements station.Observer.
func (c *Collector) StateChanged(stationID string, state station.State) {
	for _, s := range station.States {
		v := 0.0
		if s == state {
			v = 1
		}
		c.state.WithLabelValues(stationID, string(s)).Set(v)
	}
}

// OccurrenceFinished implements station.Observer.
func (c *Collector) OccurrenceFinished(ev eventlog.Event) {
	c.occurrences.WithLabelValues(ev.StationID, string(ev.Outcome)).Inc()
	if ev.Outcome == eventlog.OutcomeCompleted {
		c.wateringSecs.WithLabelValues(ev.StationID).Add(ev.Duration.Seconds())
	}
	if ev.RainChecked {
		c.rainfall.WithLabelValues(ev.StationID).Set(ev.RainfallMM)
	}
	if ev.FailSafe {
		c.failSafe.WithLabelValues(ev.StationID).Inc()
	}
}

// LogAppendFailed counts a failed log append. Its signature matches
// eventlog.Writer.SetOnError.
func (c *Collector) LogAppendFailed(error, eventlog.Event) {
	c.logErrors.Inc()
}

// CountFailures wraps n so that every failed Send is counted.
func (c *Collector) CountFailures(n notify.Notifier) notify.Notifier {
	return notify.NotifierFunc(func(ctx context.Context, msg notify.Message) error {
		err := n.Send(ctx, msg)
		if err != nil {
			c.notifyErrors.Inc()
		}
		return err
	})
}

// DriverRestarted counts a supervised restart of stationID.
func (c *Collector) DriverRestarted(stationID string) {
	c.driverRestart.WithLabelValues(stationID).Inc()
}

// MQTTConnectionLost counts a lost broker connection. Its signature
// matches mqtt.Client.SetOnDisconnect.
func (c *Collector) MQTTConnectionLost(error) {
	c.mqttDrops.Inc()
}
