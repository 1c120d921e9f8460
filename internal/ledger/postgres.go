package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

// PostgresStore persists attendance records in Postgres. All writes go
// through single-statement upserts; the unique index on
// (student_id, event_id) is the serialization point under concurrent
// scans, never an application-level read-then-write.
type PostgresStore struct {
	db   *sql.DB
	caps store.Capabilities
}

// NewPostgresStore creates a store. caps comes from a one-shot schema
// probe at startup; against older schemas without the notified columns
// the store runs timestamps-only.
func NewPostgresStore(db *sql.DB, caps store.Capabilities) *PostgresStore {
	return &PostgresStore{db: db, caps: caps}
}

// Upsert inserts or updates the row for the pair in one statement.
func (s *PostgresStore) Upsert(ctx context.Context, studentID, eventID string, kind Kind, at time.Time) (Record, error) {
	var query string
	if s.caps.NotifiedFlags {
		if kind == Entry {
			query = `
				INSERT INTO attendance_records (id, student_id, event_id, entered_at, entry_notified)
				VALUES ($1, $2, $3, $4, FALSE)
				ON CONFLICT (student_id, event_id) DO UPDATE
				SET entered_at = EXCLUDED.entered_at, entry_notified = FALSE
				RETURNING id, student_id, event_id, entered_at, exited_at, entry_notified, exit_notified, created_at`
		} else {
			query = `
				INSERT INTO attendance_records (id, student_id, event_id, exited_at, exit_notified)
				VALUES ($1, $2, $3, $4, FALSE)
				ON CONFLICT (student_id, event_id) DO UPDATE
				SET exited_at = EXCLUDED.exited_at, exit_notified = FALSE
				RETURNING id, student_id, event_id, entered_at, exited_at, entry_notified, exit_notified, created_at`
		}
	} else {
		if kind == Entry {
			query = `
				INSERT INTO attendance_records (id, student_id, event_id, entered_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (student_id, event_id) DO UPDATE
				SET entered_at = EXCLUDED.entered_at
				RETURNING id, student_id, event_id, entered_at, exited_at, FALSE, FALSE, created_at`
		} else {
			query = `
				INSERT INTO attendance_records (id, student_id, event_id, exited_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (student_id, event_id) DO UPDATE
				SET exited_at = EXCLUDED.exited_at
				RETURNING id, student_id, event_id, entered_at, exited_at, FALSE, FALSE, created_at`
		}
	}

	row := s.db.QueryRowContext(ctx, query, uuid.NewString(), studentID, eventID, at)
	return scanRecord(row)
}

// Get returns the record for a pair, nil when absent.
func (s *PostgresStore) Get(ctx context.Context, studentID, eventID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, event_id, entered_at, exited_at,
		       `+s.flagColumns()+`, created_at
		FROM attendance_records
		WHERE student_id = $1 AND event_id = $2
	`, studentID, eventID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkNotified flips the flag for one transition after a confirmed send.
func (s *PostgresStore) MarkNotified(ctx context.Context, recordID string, kind Kind) error {
	if !s.caps.NotifiedFlags {
		return nil
	}
	column := "entry_notified"
	if kind == Exit {
		column = "exit_notified"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE attendance_records SET `+column+` = TRUE WHERE id = $1
	`, recordID)
	return err
}

// ListByEvent returns all records for one event, most recent entry first.
func (s *PostgresStore) ListByEvent(ctx context.Context, eventID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, event_id, entered_at, exited_at,
		       `+s.flagColumns()+`, created_at
		FROM attendance_records
		WHERE event_id = $1
		ORDER BY entered_at DESC NULLS LAST
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.EventID, &rec.EnteredAt, &rec.ExitedAt,
			&rec.EntryNotified, &rec.ExitNotified, &rec.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *PostgresStore) flagColumns() string {
	if s.caps.NotifiedFlags {
		return "entry_notified, exit_notified"
	}
	return "FALSE, FALSE"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.EventID, &rec.EnteredAt, &rec.ExitedAt,
		&rec.EntryNotified, &rec.ExitNotified, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
