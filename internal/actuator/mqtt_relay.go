package actuator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client used by MQTTRelay.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

type relayCommand struct {
	On bool `json:"on"`
}

// MQTTRelay publishes valve commands to irrigation/command/valve/{station}.
// The relay board is expected to hold the last commanded position.
type MQTTRelay struct {
	pub   Publisher
	topic string
	qos   byte
}

// NewMQTTRelay creates a relay actuator for stationID.
func NewMQTTRelay(pub Publisher, stationID string, qos byte) *MQTTRelay {
	return &MQTTRelay{
		pub:   pub,
		topic: mqtt.Topics{}.ValveCommand(stationID),
		qos:   qos,
	}
}

// On implements Actuator.
func (r *MQTTRelay) On(ctx context.Context) error {
	return r.send(ctx, true)
}

// Off implements Actuator.
func (r *MQTTRelay) Off(ctx context.Context) error {
	return r.send(ctx, false)
}

func (r *MQTTRelay) send(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrActuation, err)
	}
	payload, err := json.Marshal(relayCommand{On: on})
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrActuation, err)
	}
	if err := r.pub.Publish(r.topic, payload, r.qos, false); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrActuation, r.topic, err)
	}
	return nil
}

// Topic returns the command topic this relay publishes to.
func (r *MQTTRelay) Topic() string {
	return r.topic
}
