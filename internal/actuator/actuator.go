// Package actuator controls station valves.
//
// Actuator is deliberately small: open, close. Both calls are idempotent
// and a valve's resting state is closed. Simulated backs tests and
// hardware-free installs; MQTTRelay drives a relay board listening on the
// broker.
package actuator

import (
	"context"
	"errors"
)

// ErrActuation is returned when a valve could not be switched.
var ErrActuation = errors.New("actuator: actuation failed")

// Actuator switches one station's valve.
type Actuator interface {
	// On opens the valve.
	On(ctx context.Context) error

	// Off closes the valve.
	Off(ctx context.Context) error
}
