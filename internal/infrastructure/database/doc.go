// Package database provides SQLite connectivity for the watering history.
//
// This package manages:
//   - Database connection with WAL mode so API reads do not block inserts
//   - Embedded schema migrations (up/down pairs, one transaction each)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600
//
// Usage:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry a
// DEFAULT, and every .up.sql file ships with a matching .down.sql.
package database
