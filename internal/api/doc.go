// Package api implements the read-only status API for the irrigation
// controller.
//
// This package provides:
//   - REST endpoints for station snapshots and recorded watering history
//   - A component health report
//   - WebSocket hub broadcasting station state changes and occurrences
//   - Prometheus metrics at /metrics when a handler is supplied
//   - Middleware stack (request ID, logging, recovery)
//
// # Routes
//
//	GET /api/v1/health
//	GET /api/v1/stations
//	GET /api/v1/stations/{id}
//	GET /api/v1/events?station=&outcome=&since=&limit=&offset=
//	GET /api/v1/ws
//	GET /metrics
//
// The API never controls valves. Station drivers run independently and
// keep watering when the API is disabled.
package api
