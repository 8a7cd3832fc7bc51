package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-irrigation/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

var base = time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

func event(station string, offset time.Duration, outcome eventlog.Outcome) eventlog.Event {
	return eventlog.NewEvent(station, 0, base.Add(offset), 10*time.Minute, outcome)
}

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cancelled := event("5", time.Hour, eventlog.OutcomeCancelled)
	cancelled.RainChecked = true
	cancelled.RainfallMM = 4.2
	cancelled.SlotIndex = 1

	for _, ev := range []eventlog.Event{
		event("5", 0, eventlog.OutcomeCompleted),
		cancelled,
		event("7", 2*time.Hour, eventlog.OutcomeFailed),
	} {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 3 || len(res.Events) != 3 {
		t.Fatalf("List() total=%d len=%d, want 3", res.Total, len(res.Events))
	}
	if res.Events[0].StationID != "7" {
		t.Errorf("first event station = %q, want most recent (7)", res.Events[0].StationID)
	}
	if res.Limit != defaultLimit {
		t.Errorf("Limit = %d, want %d", res.Limit, defaultLimit)
	}

	got := res.Events[1]
	if got.ID != cancelled.ID || !got.Start.Equal(cancelled.Start) || got.Duration != cancelled.Duration {
		t.Errorf("round trip = %+v, want %+v", got, cancelled)
	}
	if !got.RainChecked || got.RainfallMM != 4.2 || got.SlotIndex != 1 {
		t.Errorf("rain fields = %+v", got)
	}
}

func TestList_Filters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, ev := range []eventlog.Event{
		event("5", 0, eventlog.OutcomeCompleted),
		event("5", 24*time.Hour, eventlog.OutcomeCancelled),
		event("5", 48*time.Hour, eventlog.OutcomeCompleted),
		event("9", 48*time.Hour, eventlog.OutcomeCompleted),
	} {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantLen   int
	}{
		{"by station", Filter{StationID: "5"}, 3, 3},
		{"by outcome", Filter{Outcome: eventlog.OutcomeCompleted}, 3, 3},
		{"station and outcome", Filter{StationID: "5", Outcome: eventlog.OutcomeCancelled}, 1, 1},
		{"since", Filter{Since: base.Add(24 * time.Hour)}, 3, 3},
		{"paged", Filter{Limit: 2, Offset: 3}, 4, 1},
		{"limit clamped", Filter{Limit: 1000}, 4, 4},
		{"negative offset", Filter{Offset: -5}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Events) != tt.wantLen {
				t.Errorf("total=%d len=%d, want %d and %d", res.Total, len(res.Events), tt.wantTotal, tt.wantLen)
			}
			if res.Limit > maxLimit {
				t.Errorf("Limit = %d exceeds max", res.Limit)
			}
		})
	}
}

func TestRecord_Invalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   eventlog.Event
	}{
		{"missing id", eventlog.Event{StationID: "5", Outcome: eventlog.OutcomeCompleted}},
		{"missing station", eventlog.Event{ID: "x", Outcome: eventlog.OutcomeCompleted}},
		{"unknown outcome", eventlog.Event{ID: "x", StationID: "5", Outcome: "skipped"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Record(ctx, tt.ev); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Record() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestRecord_Duplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ev := event("5", 0, eventlog.OutcomeCompleted)
	if err := repo.Record(ctx, ev); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, ev); !errors.Is(err, ErrDuplicateEvent) {
		t.Errorf("second Record() error = %v, want ErrDuplicateEvent", err)
	}
}
