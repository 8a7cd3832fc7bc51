// Package eventlog records watering occurrences.
//
// Event is the record every station driver produces for each scheduled
// occurrence, whatever its outcome. Writer appends completed events to the
// shared watering log as one human-readable line each:
//
//	Valve 5 watered for 600 seconds on Monday 10/19/26 06:00:00.
//
// All drivers share one Writer. Its lock covers a single write call, so
// lines from different stations never interleave. A failed append is
// retried once; a second failure goes to the diagnostic callback and is
// returned, but callers must not let it abort a watering cycle.
package eventlog
