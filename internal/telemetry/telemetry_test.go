package telemetry

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-irrigation/internal/station"
)

var start = time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, published{topic, payload, qos, retained})
	return m.err
}

type warnCounter struct{ n int }

func (w *warnCounter) Warn(string, ...any) { w.n++ }

func TestMQTTPublisher_OccurrenceFinished(t *testing.T) {
	pub := &mockPublisher{}
	p := NewMQTTPublisher(pub, nil, nil)

	ev := eventlog.NewEvent("5", 1, start, 10*time.Minute, eventlog.OutcomeCancelled)
	ev.RainChecked = true
	ev.RainfallMM = 3.2
	p.OccurrenceFinished(ev)

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	got := pub.msgs[0]
	if got.topic != "irrigation/event/5" {
		t.Errorf("topic = %q, want irrigation/event/5", got.topic)
	}
	if got.qos != 1 || got.retained {
		t.Errorf("qos/retained = %d/%v, want 1/false", got.qos, got.retained)
	}

	var body map[string]any
	if err := json.Unmarshal(got.payload, &body); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	want := map[string]any{
		"id":           ev.ID,
		"station_id":   "5",
		"slot_index":   float64(1),
		"start":        "2026-10-19T06:00:00Z",
		"duration_s":   float64(600),
		"outcome":      "cancelled",
		"rain_checked": true,
		"rainfall_mm":  3.2,
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("payload[%q] = %v, want %v", k, body[k], v)
		}
	}
	if _, ok := body["fail_safe"]; ok {
		t.Error("fail_safe present for a measured check")
	}
}

func TestMQTTPublisher_StateChanged(t *testing.T) {
	pub := &mockPublisher{}
	p := NewMQTTPublisher(pub, func() time.Time { return start }, nil)

	p.StateChanged("2", station.StateWatering)

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	got := pub.msgs[0]
	if got.topic != "irrigation/state/2" || !got.retained {
		t.Errorf("topic/retained = %q/%v, want irrigation/state/2/true", got.topic, got.retained)
	}
	want := `{"station_id":"2","state":"watering","timestamp":"2026-10-19T06:00:00Z"}`
	if string(got.payload) != want {
		t.Errorf("payload = %s, want %s", got.payload, want)
	}
}

func TestMQTTPublisher_PublishErrorLogged(t *testing.T) {
	pub := &mockPublisher{err: errors.New("not connected")}
	warns := &warnCounter{}
	p := NewMQTTPublisher(pub, nil, warns)

	p.StateChanged("2", station.StateIdle)
	p.OccurrenceFinished(eventlog.NewEvent("2", 0, start, time.Minute, eventlog.OutcomeCompleted))

	if warns.n != 2 {
		t.Errorf("warnings = %d, want 2", warns.n)
	}
}

type rainfallPoint struct {
	site, station string
	mm            float64
	failSafe      bool
	at            time.Time
}

type mockWriter struct {
	watering []influxdb.WateringPoint
	rainfall []rainfallPoint
}

func (m *mockWriter) WriteWatering(p influxdb.WateringPoint) {
	m.watering = append(m.watering, p)
}

func (m *mockWriter) WriteRainfall(siteID, stationID string, mm float64, failSafe bool, at time.Time) {
	m.rainfall = append(m.rainfall, rainfallPoint{siteID, stationID, mm, failSafe, at})
}

func TestInfluxRecorder(t *testing.T) {
	tests := []struct {
		name         string
		event        func() eventlog.Event
		wantRainfall bool
	}{
		{
			name: "completed without rain sensing",
			event: func() eventlog.Event {
				return eventlog.NewEvent("5", 0, start, 10*time.Minute, eventlog.OutcomeCompleted)
			},
			wantRainfall: false,
		},
		{
			name: "cancelled after rain check",
			event: func() eventlog.Event {
				ev := eventlog.NewEvent("5", 0, start, 10*time.Minute, eventlog.OutcomeCancelled)
				ev.RainChecked = true
				ev.RainfallMM = 4
				return ev
			},
			wantRainfall: true,
		},
		{
			name: "fail-safe",
			event: func() eventlog.Event {
				ev := eventlog.NewEvent("5", 0, start, 10*time.Minute, eventlog.OutcomeCompleted)
				ev.FailSafe = true
				return ev
			},
			wantRainfall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWriter{}
			r := NewInfluxRecorder(w, "garden-001")
			ev := tt.event()

			r.StateChanged("5", station.StateWatering)
			r.OccurrenceFinished(ev)

			if len(w.watering) != 1 {
				t.Fatalf("watering points = %d, want 1", len(w.watering))
			}
			wp := w.watering[0]
			if wp.SiteID != "garden-001" || wp.StationID != "5" || wp.Outcome != string(ev.Outcome) {
				t.Errorf("watering point = %+v", wp)
			}
			if wp.Duration != 10*time.Minute || !wp.Start.Equal(start) {
				t.Errorf("watering point timing = %v at %v", wp.Duration, wp.Start)
			}

			if got := len(w.rainfall) == 1; got != tt.wantRainfall {
				t.Fatalf("rainfall points = %d, want written=%v", len(w.rainfall), tt.wantRainfall)
			}
			if tt.wantRainfall {
				rp := w.rainfall[0]
				if rp.mm != ev.RainfallMM || rp.failSafe != ev.FailSafe || rp.site != "garden-001" {
					t.Errorf("rainfall point = %+v", rp)
				}
			}
		})
	}
}

func TestObserversSatisfyInterface(t *testing.T) {
	var _ station.Observer = (*MQTTPublisher)(nil)
	var _ station.Observer = (*InfluxRecorder)(nil)
}
