// Package history keeps every watering occurrence in SQLite so the status
// API can answer "what happened to station 5 this week".
//
// Unlike the text log, which only carries completed waterings, history
// records all outcomes. Rows are inserted once and never updated.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Filter controls which events List returns.
type Filter struct {
	StationID string           // optional
	Outcome   eventlog.Outcome // optional
	Since     time.Time        // optional: events starting at or after
	Limit     int              // default 50, max 200
	Offset    int
}

// ListResult is one page of events, most recent first.
type ListResult struct {
	Events []eventlog.Event `json:"events"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// Repository defines the history operations.
type Repository interface {
	Record(ctx context.Context, ev eventlog.Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores events in the watering_events table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts ev.
func (r *SQLiteRepository) Record(ctx context.Context, ev eventlog.Event) error {
	if ev.ID == "" || ev.StationID == "" || !ev.Outcome.Valid() {
		return fmt.Errorf("%w: id=%q station=%q outcome=%q", ErrInvalidEvent, ev.ID, ev.StationID, ev.Outcome)
	}

	var rainfall any
	if ev.RainChecked {
		rainfall = ev.RainfallMM
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watering_events
		   (id, station_id, slot_index, started_at, duration_s, outcome, rainfall_mm, rain_checked, fail_safe, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.StationID, ev.SlotIndex,
		ev.Start.UTC().Format(time.RFC3339),
		int64(ev.Duration/time.Second),
		string(ev.Outcome),
		rainfall,
		boolToInt(ev.RainChecked),
		boolToInt(ev.FailSafe),
		ev.Reason,
		r.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, ev.ID)
		}
		return fmt.Errorf("inserting watering event: %w", err)
	}
	return nil
}

// List returns events matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.StationID != "" {
		conditions = append(conditions, "station_id = ?")
		args = append(args, filter.StationID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM watering_events " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting watering events: %w", err)
	}

	query := `SELECT id, station_id, slot_index, started_at, duration_s, outcome, rainfall_mm, rain_checked, fail_safe, reason
		FROM watering_events ` + where + ` ORDER BY started_at DESC, recorded_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying watering events: %w", err)
	}
	defer rows.Close()

	events := make([]eventlog.Event, 0, filter.Limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watering events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanEvent(rows *sql.Rows) (eventlog.Event, error) {
	var (
		ev          eventlog.Event
		startedAt   string
		durationS   int64
		outcome     string
		rainfall    sql.NullFloat64
		rainChecked int
		failSafe    int
	)
	if err := rows.Scan(&ev.ID, &ev.StationID, &ev.SlotIndex, &startedAt, &durationS, &outcome,
		&rainfall, &rainChecked, &failSafe, &ev.Reason); err != nil {
		return ev, fmt.Errorf("scanning watering event: %w", err)
	}

	start, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return ev, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	ev.Start = start
	ev.Duration = time.Duration(durationS) * time.Second
	ev.Outcome = eventlog.Outcome(outcome)
	ev.RainfallMM = rainfall.Float64
	ev.RainChecked = rainChecked != 0
	ev.FailSafe = failSafe != 0
	return ev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
