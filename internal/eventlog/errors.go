package eventlog

import "errors"

var (
	// ErrAppendFailed is returned when a line could not be written after retrying.
	ErrAppendFailed = errors.New("eventlog: append failed")

	// ErrNotCompleted is returned when appending an event that did not water.
	ErrNotCompleted = errors.New("eventlog: only completed events are logged")
)
