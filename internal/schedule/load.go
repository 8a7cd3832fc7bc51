package schedule

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// file mirrors the on-disk schedule document.
type file struct {
	Stations map[string]stationFile `yaml:"stations"`
}

type stationFile struct {
	RainSensing   bool       `yaml:"rain_sensing"`
	RainThreshold float64    `yaml:"rain_threshold"`
	Latitude      *float64   `yaml:"latitude"`
	Longitude     *float64   `yaml:"longitude"`
	Schedule      []slotFile `yaml:"schedule"`
}

type slotFile struct {
	Day      string  `yaml:"day"`
	Start    string  `yaml:"start"`
	Duration float64 `yaml:"duration"`
}

// Load reads and validates a schedule file.
//
// Every problem found is reported in a single error wrapping
// ErrInvalidSchedule.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrInvalidSchedule, path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a schedule document.
func Parse(data []byte) (*Table, error) {
	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing: %w", ErrInvalidSchedule, err)
	}
	if len(doc.Stations) == 0 {
		return nil, fmt.Errorf("%w: no stations defined", ErrInvalidSchedule)
	}

	var errs []string
	table := &Table{Stations: make([]StationConfig, 0, len(doc.Stations))}

	seen := make(map[string]bool, len(doc.Stations))
	for id, sf := range doc.Stations {
		st, stErrs := sf.toStation(id)
		errs = append(errs, stErrs...)
		if st.ID != "" && seen[st.ID] {
			errs = append(errs, fmt.Sprintf("station %s: duplicate id", st.ID))
		}
		seen[st.ID] = true
		table.Stations = append(table.Stations, st)
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, strings.Join(errs, "; "))
	}

	sort.Slice(table.Stations, func(i, j int) bool {
		return lessID(table.Stations[i].ID, table.Stations[j].ID)
	})
	return table, nil
}

// lessID orders numeric IDs (valve pins) numerically and ahead of any
// non-numeric ID, which sort lexically.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func (sf stationFile) toStation(id string) (StationConfig, []string) {
	var errs []string

	id = strings.TrimSpace(id)
	if id == "" {
		errs = append(errs, "station with empty id")
	}

	if sf.RainThreshold < 0 || math.IsNaN(sf.RainThreshold) {
		errs = append(errs, fmt.Sprintf("station %s: rain_threshold must not be negative", id))
	}

	st := StationConfig{
		ID:              id,
		RainSensing:     sf.RainSensing,
		RainThresholdMM: sf.RainThreshold,
		Slots:           make([]WateringSlot, 0, len(sf.Schedule)),
	}

	switch {
	case sf.Latitude != nil && sf.Longitude != nil:
		st.Coordinates = &Coordinates{Latitude: *sf.Latitude, Longitude: *sf.Longitude}
		if *sf.Latitude < -90 || *sf.Latitude > 90 || *sf.Longitude < -180 || *sf.Longitude > 180 {
			errs = append(errs, fmt.Sprintf("station %s: coordinates out of range", id))
		}
	case sf.Latitude != nil || sf.Longitude != nil:
		errs = append(errs, fmt.Sprintf("station %s: latitude and longitude must be set together", id))
	}

	for i, raw := range sf.Schedule {
		slot, err := raw.toSlot()
		if err != nil {
			errs = append(errs, fmt.Sprintf("station %s slot %d: %v", id, i, err))
			continue
		}
		st.Slots = append(st.Slots, slot)
	}

	return st, errs
}

func (sf slotFile) toSlot() (WateringSlot, error) {
	day, err := ParseWeekday(sf.Day)
	if err != nil {
		return WateringSlot{}, err
	}
	hour, minute, err := ParseStart(sf.Start)
	if err != nil {
		return WateringSlot{}, err
	}
	if sf.Duration <= 0 || math.IsNaN(sf.Duration) || math.IsInf(sf.Duration, 0) {
		return WateringSlot{}, errors.New("duration must be a positive number of minutes")
	}

	d := time.Duration(sf.Duration * float64(time.Minute)).Round(time.Second)
	if d < time.Second {
		return WateringSlot{}, errors.New("duration must be at least one second")
	}

	return WateringSlot{
		Weekday:  day,
		Hour:     hour,
		Minute:   minute,
		Duration: d,
	}, nil
}
