package schedule

import "errors"

// Domain errors for the schedule package.
var (
	// ErrInvalidSchedule is returned when the schedule file is malformed.
	// It is a startup error: no driver may start on an invalid schedule.
	ErrInvalidSchedule = errors.New("schedule: invalid")

	// ErrInvalidWeekday is returned when a day name cannot be parsed.
	ErrInvalidWeekday = errors.New("schedule: invalid weekday")

	// ErrInvalidStart is returned when a slot start is not "HH:MM".
	ErrInvalidStart = errors.New("schedule: invalid start time")
)
