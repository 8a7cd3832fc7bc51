package raingate

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/schedule"
	"github.com/nerrad567/gray-logic-irrigation/internal/weather"
)

// Window is the trailing period summed by TrailingRainfall.
const Window = 24 * time.Hour

// TrailingRainfall returns the rainfall in mm over [now-24h, now].
//
// The provider answers per UTC day, so two lookups are made: one for the
// remainder of the day containing now-24h, and one for today up to now.
// Samples are keyed by timestamp with the second lookup winning, so an
// hour reported by both is counted once.
func TrailingRainfall(ctx context.Context, p weather.Provider, at schedule.Coordinates, now time.Time) (float64, error) {
	now = now.UTC()
	windowStart := now.Add(-Window)
	today := startOfDay(now)

	earlier, err := p.HourlyRainfall(ctx, at.Latitude, at.Longitude, windowStart, startOfDay(windowStart).Add(Window))
	if err != nil {
		return 0, fmt.Errorf("fetching rainfall from %s: %w", windowStart.Format(time.RFC3339), err)
	}
	later, err := p.HourlyRainfall(ctx, at.Latitude, at.Longitude, today, now)
	if err != nil {
		return 0, fmt.Errorf("fetching rainfall from %s: %w", today.Format(time.RFC3339), err)
	}

	return sumWindow(windowStart, now, earlier, later), nil
}

// sumWindow merges sample sets by timestamp, later sets overwriting earlier
// ones, and sums those within [start, end].
func sumWindow(start, end time.Time, sets ...[]weather.Sample) float64 {
	merged := make(map[int64]float64)
	for _, set := range sets {
		for _, s := range set {
			if s.Time.Before(start) || s.Time.After(end) {
				continue
			}
			merged[s.Time.Unix()] = s.MM
		}
	}

	total := 0.0
	for _, mm := range merged {
		total += mm
	}
	return total
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
