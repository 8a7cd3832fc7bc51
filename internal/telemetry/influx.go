package telemetry

import (
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irrigation/internal/station"
)

// PointWriter is the subset of *influxdb.Client used by InfluxRecorder.
type PointWriter interface {
	WriteWatering(p influxdb.WateringPoint)
	WriteRainfall(siteID, stationID string, mm float64, failSafe bool, at time.Time)
}

// InfluxRecorder writes every finished occurrence to InfluxDB. Rainfall is
// written only when the gate actually consulted the provider or fell back
// to its fail-safe policy.
type InfluxRecorder struct {
	w      PointWriter
	siteID string
}

// NewInfluxRecorder creates an observer writing through w and tagging
// points with siteID.
func NewInfluxRecorder(w PointWriter, siteID string) *InfluxRecorder {
	return &InfluxRecorder{w: w, siteID: siteID}
}

// StateChanged implements station.Observer. States are not recorded.
func (r *InfluxRecorder) StateChanged(string, station.State) {}

// OccurrenceFinished implements station.Observer.
func (r *InfluxRecorder) OccurrenceFinished(ev eventlog.Event) {
	r.w.WriteWatering(influxdb.WateringPoint{
		SiteID:    r.siteID,
		StationID: ev.StationID,
		Outcome:   string(ev.Outcome),
		SlotIndex: ev.SlotIndex,
		Duration:  ev.Duration,
		Start:     ev.Start,
	})
	if ev.RainChecked || ev.FailSafe {
		r.w.WriteRainfall(r.siteID, ev.StationID, ev.RainfallMM, ev.FailSafe, ev.Start)
	}
}
