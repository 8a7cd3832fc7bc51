package history

import "errors"

var (
	// ErrInvalidEvent is returned when recording an event missing required fields.
	ErrInvalidEvent = errors.New("history: invalid event")

	// ErrDuplicateEvent is returned when an event ID was already recorded.
	ErrDuplicateEvent = errors.New("history: duplicate event")
)
