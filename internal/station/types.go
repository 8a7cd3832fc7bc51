package station

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/raingate"
	"github.com/nerrad567/gray-logic-irrigation/internal/schedule"
)

// ErrInvalidConfig is returned by NewDriver when a required collaborator
// is missing.
var ErrInvalidConfig = errors.New("station: invalid driver config")

// State is a driver's position in the watering cycle.
type State string

const (
	StateIdle      State = "idle"
	StateChecking  State = "checking"
	StateWatering  State = "watering"
	StateCancelled State = "cancelled"
)

// States lists every state in cycle order.
var States = []State{StateIdle, StateChecking, StateWatering, StateCancelled}

// Gate decides whether an occurrence may water. *raingate.Gate satisfies it.
type Gate interface {
	Evaluate(ctx context.Context, rainSensing bool, thresholdMM float64, at schedule.Coordinates) raingate.Result
}

// Appender writes completed events to the shared log. *eventlog.Writer
// satisfies it.
type Appender interface {
	Append(ctx context.Context, ev eventlog.Event) error
}

// Recorder persists every occurrence. *history.SQLiteRepository
// satisfies it.
type Recorder interface {
	Record(ctx context.Context, ev eventlog.Event) error
}

// Observer is told about state transitions and finished occurrences.
// Calls are made synchronously from the driver goroutine and should
// return quickly.
type Observer interface {
	StateChanged(stationID string, state State)
	OccurrenceFinished(ev eventlog.Event)
}

// EventFunc adapts a function to an Observer that ignores state changes.
type EventFunc func(ev eventlog.Event)

// StateChanged implements Observer.
func (EventFunc) StateChanged(string, State) {}

// OccurrenceFinished calls f(ev).
func (f EventFunc) OccurrenceFinished(ev eventlog.Event) { f(ev) }

// Snapshot is a point-in-time view of one driver.
type Snapshot struct {
	StationID       string                  `json:"station_id"`
	State           State                   `json:"state"`
	RainSensing     bool                    `json:"rain_sensing"`
	RainThresholdMM float64                 `json:"rain_threshold_mm"`
	Slots           []schedule.WateringSlot `json:"slots"`
	LastEvent       *eventlog.Event         `json:"last_event,omitempty"`
	LastPoll        time.Time               `json:"last_poll"`
	Restarts        int                     `json:"restarts"`
}

// Logger defines the logging interface for drivers and the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
