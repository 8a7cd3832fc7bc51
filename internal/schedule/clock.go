package schedule

import (
	"context"
	"time"
)

// Clock is the time source polled by station drivers.
type Clock interface {
	// Now returns the current wall-clock time in the site's zone.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	// It returns ctx.Err() when interrupted.
	Sleep(ctx context.Context, d time.Duration) error
}

// Moment is a point in the week at minute granularity.
type Moment struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// MomentOf reduces t to its weekday, hour and minute in t's own location.
func MomentOf(t time.Time) Moment {
	return Moment{
		Weekday: t.Weekday(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
	}
}

// SystemClock reads the host clock.
type SystemClock struct {
	// Location is the zone used for schedule matching. Nil means time.Local.
	Location *time.Location
}

// Now implements Clock.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Sleep implements Clock.
func (c SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
