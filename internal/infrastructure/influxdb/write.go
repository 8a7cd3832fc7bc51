package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementWatering = "watering"
	MeasurementRainfall = "rainfall_24h"
)

// WateringPoint describes one watering occurrence.
type WateringPoint struct {
	SiteID    string
	StationID string
	Outcome   string // completed, cancelled or failed
	SlotIndex int
	Duration  time.Duration
	Start     time.Time
}

// WriteWatering records a watering occurrence at its scheduled start.
//
// Tags: site, station, outcome. Fields: duration_s, slot.
// Cancelled occurrences are written with the scheduled duration so that
// "water saved" can be summed in dashboards.
func (c *Client) WriteWatering(p WateringPoint) {
	c.WritePointWithTime(MeasurementWatering,
		map[string]string{
			"site":    p.SiteID,
			"station": p.StationID,
			"outcome": p.Outcome,
		},
		map[string]interface{}{
			"duration_s": int64(p.Duration / time.Second),
			"slot":       p.SlotIndex,
		},
		p.Start,
	)
}

// WriteRainfall records the trailing 24h rainfall a station's gate saw.
//
// Tags: site, station. Fields: mm, fail_safe.
func (c *Client) WriteRainfall(siteID, stationID string, mm float64, failSafe bool, at time.Time) {
	c.WritePointWithTime(MeasurementRainfall,
		map[string]string{
			"site":    siteID,
			"station": stationID,
		},
		map[string]interface{}{
			"mm":        mm,
			"fail_safe": failSafe,
		},
		at,
	)
}

// WritePointWithTime writes a point with an explicit timestamp.
// Points written while disconnected are dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
