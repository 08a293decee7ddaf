// Package database provides the bridge's SQLite connection and schema
// migrations.
//
// The database is optional. When enabled it backs the reading history
// served by the API.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to 0600
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Migrations are embedded from the top-level migrations package and
// applied in version order. Each has an .up.sql and a .down.sql file;
// schema changes are additive so an older binary keeps working against a
// newer file.
package database
