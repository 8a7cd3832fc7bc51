// Package station runs one watering control loop per station.
//
// A Driver polls its clock every 45 seconds, matches the current minute
// against the station's slots and takes each scheduled occurrence through
//
//	Idle → Checking → {Watering | Cancelled} → Idle
//
// Checking consults the rain gate. Watering opens the valve, blocks for the
// slot duration, closes it, appends the log line and sends a completion
// notification. Cancelled sends a cancellation notification and leaves the
// valve alone.
//
// Each occurrence is processed at most once: the driver remembers the last
// occurrence fired per slot instead of sleeping past the matching minute.
//
// The Controller runs every driver in its own goroutine. A driver that
// panics or exits is restarted after a delay; the others keep running.
// The event log writer is the only resource shared between drivers.
package station
