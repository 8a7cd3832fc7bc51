// Package logging provides structured logging for the irrigation controller.
//
// This package wraps Go's standard log/slog package so every component
// (station drivers, the rain gate, the status API) logs with the same
// default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting controller", "stations", 4)
//
// Never log the weather API key or SMTP password.
//
// The watering event log (log.txt) is not written through this package;
// see package eventlog.
package logging
