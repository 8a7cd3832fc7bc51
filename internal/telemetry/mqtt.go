package telemetry

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-irrigation/internal/station"
)

// Publisher is the subset of *mqtt.Client used by MQTTPublisher.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by this package.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// eventMessage is the JSON body published for a finished occurrence.
type eventMessage struct {
	ID          string    `json:"id"`
	StationID   string    `json:"station_id"`
	SlotIndex   int       `json:"slot_index"`
	Start       time.Time `json:"start"`
	DurationS   int64     `json:"duration_s"`
	Outcome     string    `json:"outcome"`
	RainChecked bool      `json:"rain_checked"`
	RainfallMM  float64   `json:"rainfall_mm"`
	FailSafe    bool      `json:"fail_safe,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// stateMessage is the retained JSON body published on every state change.
type stateMessage struct {
	StationID string    `json:"station_id"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTPublisher publishes station activity to MQTT.
//
// Topics:
//   - irrigation/event/{station}: one message per finished occurrence, QoS 1
//   - irrigation/state/{station}: current state, QoS 1, retained
type MQTTPublisher struct {
	pub    Publisher
	now    func() time.Time
	logger Logger
	topics mqtt.Topics
}

// NewMQTTPublisher creates an observer publishing through pub. now stamps
// state messages; nil means time.Now.
func NewMQTTPublisher(pub Publisher, now func() time.Time, logger Logger) *MQTTPublisher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTPublisher{pub: pub, now: now, logger: logger}
}

// StateChanged implements station.Observer.
func (p *MQTTPublisher) StateChanged(stationID string, state station.State) {
	p.publish(p.topics.StationState(stationID), stateMessage{
		StationID: stationID,
		State:     string(state),
		Timestamp: p.now().UTC(),
	}, true)
}

// OccurrenceFinished implements station.Observer.
func (p *MQTTPublisher) OccurrenceFinished(ev eventlog.Event) {
	p.publish(p.topics.StationEvent(ev.StationID), eventMessage{
		ID:          ev.ID,
		StationID:   ev.StationID,
		SlotIndex:   ev.SlotIndex,
		Start:       ev.Start.UTC(),
		DurationS:   int64(ev.Duration / time.Second),
		Outcome:     string(ev.Outcome),
		RainChecked: ev.RainChecked,
		RainfallMM:  ev.RainfallMM,
		FailSafe:    ev.FailSafe,
		Reason:      ev.Reason,
	}, false)
}

func (p *MQTTPublisher) publish(topic string, msg any, retained bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Warn("encoding telemetry failed", "topic", topic, "error", err)
		return
	}
	if err := p.pub.Publish(topic, payload, 1, retained); err != nil {
		p.logger.Warn("publishing telemetry failed", "topic", topic, "error", err)
	}
}
