package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
)

// handleListStations returns a snapshot of every station.
func (s *Server) handleListStations(w http.ResponseWriter, _ *http.Request) {
	snaps := s.stations.Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{
		"stations": snaps,
		"count":    len(snaps),
	})
}

// handleGetStation returns a snapshot of one station.
func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := s.stations.Snapshot(id)
	if !ok {
		writeNotFound(w, "station not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleListEvents returns recorded occurrences, most recent first.
//
// Query parameters:
//   - station: station ID
//   - outcome: completed, cancelled or failed
//   - since: RFC 3339 timestamp
//   - limit, offset: paging
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event history is not configured")
		return
	}

	filter, msg := parseEventFilter(r)
	if msg != "" {
		writeBadRequest(w, msg)
		return
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing watering events failed", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseEventFilter reads the /events query. It returns a non-empty message
// when a parameter is invalid.
func parseEventFilter(r *http.Request) (history.Filter, string) {
	q := r.URL.Query()
	filter := history.Filter{StationID: q.Get("station")}

	if v := q.Get("outcome"); v != "" {
		o := eventlog.Outcome(v)
		if !o.Valid() {
			return filter, "outcome must be completed, cancelled or failed"
		}
		filter.Outcome = o
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, "since must be an RFC 3339 timestamp"
		}
		filter.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, "limit must be a positive integer"
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, "offset must be a non-negative integer"
		}
		filter.Offset = n
	}
	return filter, ""
}
