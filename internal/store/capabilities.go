package store

import (
	"context"
	"database/sql"
)

// Capabilities records what the connected schema supports. It is resolved
// once at startup and passed to the components that need conditional
// behavior, instead of probing column existence on every query.
type Capabilities struct {
	// NotifiedFlags is true when attendance_records carries the
	// entry_notified/exit_notified columns. Databases created before
	// email confirmations were added lack them; the ledger then runs
	// timestamps-only and every scan re-triggers a notification attempt.
	NotifiedFlags bool
}

// DetectCapabilities probes information_schema for optional columns.
func DetectCapabilities(ctx context.Context, db *sql.DB) (Capabilities, error) {
	var caps Capabilities
	row := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_name = 'attendance_records'
		  AND column_name IN ('entry_notified', 'exit_notified')
	`)
	var n int
	if err := row.Scan(&n); err != nil {
		return Capabilities{}, err
	}
	caps.NotifiedFlags = n == 2
	return caps, nil
}
