package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates is a geographic position used for rainfall lookups.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the position as "lat,lon".
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// WateringSlot is one recurring watering rule for a station.
type WateringSlot struct {
	Weekday  time.Weekday  `json:"weekday"`
	Hour     int           `json:"hour"`
	Minute   int           `json:"minute"`
	Duration time.Duration `json:"duration"`
}

// Start returns the slot start as "HH:MM".
func (s WateringSlot) Start() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// String formats the slot as "Monday 06:00 for 10m0s".
func (s WateringSlot) String() string {
	return fmt.Sprintf("%s %s for %s", s.Weekday, s.Start(), s.Duration)
}

// Occurrence returns the concrete firing of this slot in the minute
// containing t. The caller is expected to have matched t against the slot.
func (s WateringSlot) Occurrence(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), s.Hour, s.Minute, 0, 0, t.Location())
}

// StationConfig is the immutable configuration of one station.
type StationConfig struct {
	ID              string         `json:"id"`
	RainSensing     bool           `json:"rain_sensing"`
	RainThresholdMM float64        `json:"rain_threshold_mm"`
	Slots           []WateringSlot `json:"slots"`

	// Coordinates overrides the site location when set.
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Match returns the first slot, in configured order, whose weekday, hour
// and minute equal m.
func (s StationConfig) Match(m Moment) (int, WateringSlot, bool) {
	for i, slot := range s.Slots {
		if slot.Weekday == m.Weekday && slot.Hour == m.Hour && slot.Minute == m.Minute {
			return i, slot, true
		}
	}
	return -1, WateringSlot{}, false
}

// Location returns the station's coordinates, falling back to site.
func (s StationConfig) Location(site Coordinates) Coordinates {
	if s.Coordinates != nil {
		return *s.Coordinates
	}
	return site
}

// Table is the full set of stations, ordered by ID.
type Table struct {
	Stations []StationConfig
}

// RainSensing reports whether any station consults the rain gate.
func (t *Table) RainSensing() bool {
	for _, st := range t.Stations {
		if st.RainSensing {
			return true
		}
	}
	return false
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts a full English day name or its three-letter
// abbreviation, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayNames[name]; ok {
		return d, nil
	}
	if len(name) == 3 {
		for full, d := range weekdayNames {
			if strings.HasPrefix(full, name) {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// ParseStart parses an "HH:MM" slot start on the 24-hour clock.
func ParseStart(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidStart, s)
	}
	return t.Hour(), t.Minute(), nil
}
