package eventlog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a scheduled occurrence ended.
type Outcome string

const (
	// OutcomeCompleted means the valve opened for the full duration.
	OutcomeCompleted Outcome = "completed"

	// OutcomeCancelled means the rain gate denied the occurrence.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeFailed means the actuator reported an error.
	OutcomeFailed Outcome = "failed"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeCancelled, OutcomeFailed:
		return true
	}
	return false
}

// Event is one scheduled occurrence of a station slot. It is immutable
// once created.
type Event struct {
	ID        string        `json:"id"`
	StationID string        `json:"station_id"`
	SlotIndex int           `json:"slot_index"`
	Start     time.Time     `json:"start"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`

	// Rain gate details. RainfallMM is meaningful only when RainChecked.
	RainfallMM  float64 `json:"rainfall_mm"`
	RainChecked bool    `json:"rain_checked"`
	FailSafe    bool    `json:"fail_safe"`

	// Reason carries the error text for failed or fail-safe occurrences.
	Reason string `json:"reason,omitempty"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(stationID string, slotIndex int, start time.Time, duration time.Duration, outcome Outcome) Event {
	return Event{
		ID:        uuid.NewString(),
		StationID: stationID,
		SlotIndex: slotIndex,
		Start:     start,
		Duration:  duration,
		Outcome:   outcome,
	}
}

// TimeLayout renders "Monday 10/19/26 06:00:00" in log lines and notifications.
const TimeLayout = "Monday 01/02/06 15:04:05"

// Line formats a completed event as a log line, including the newline.
func (e Event) Line() string {
	return fmt.Sprintf("Valve %s watered for %d seconds on %s.\n",
		e.StationID,
		int64(e.Duration/time.Second),
		e.Start.Format(TimeLayout),
	)
}
