package events

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is one session attendance is tracked against.
type Event struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Venue     *string    `json:"venue,omitempty"`
	OccursOn  time.Time  `json:"occurs_on"`
	OpensAt   string     `json:"opens_at"`
	ClosesAt  string     `json:"closes_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// AttendanceRow is one ledger record joined to its student for display.
type AttendanceRow struct {
	StudentID     string     `json:"student_id"`
	StudentName   string     `json:"student_name"`
	StudentEmail  string     `json:"student_email"`
	EnteredAt     *time.Time `json:"entered_at,omitempty"`
	ExitedAt      *time.Time `json:"exited_at,omitempty"`
	EntryNotified bool       `json:"entry_notified"`
	ExitNotified  bool       `json:"exit_notified"`
}

// Repository persists events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, evt Event) (Event, error) {
	if evt.Label == "" {
		return Event{}, errors.New("events: label required")
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO events (id, label, venue, occurs_on, opens_at, closes_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, evt.ID, evt.Label, evt.Venue, evt.OccursOn, evt.OpensAt, evt.ClosesAt)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// Get returns a single event by id, nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, label, venue, occurs_on, opens_at, closes_at, created_at, updated_at
		FROM events WHERE id = $1
	`, id)
	var evt Event
	if err := row.Scan(&evt.ID, &evt.Label, &evt.Venue, &evt.OccursOn, &evt.OpensAt, &evt.ClosesAt, &evt.CreatedAt, &evt.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// List returns events, newest occurrence first.
func (r *Repository) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, venue, occurs_on, opens_at, closes_at, created_at, updated_at
		FROM events
		ORDER BY occurs_on DESC, label
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.Label, &evt.Venue, &evt.OccursOn, &evt.OpensAt, &evt.ClosesAt, &evt.CreatedAt, &evt.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// Update overwrites the mutable fields of an event.
func (r *Repository) Update(ctx context.Context, evt Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET label = $2, venue = $3, occurs_on = $4, opens_at = $5, closes_at = $6, updated_at = NOW()
		WHERE id = $1
	`, evt.ID, evt.Label, evt.Venue, evt.OccursOn, evt.OpensAt, evt.ClosesAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Delete removes an event and, via the schema's cascade, its records.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// ListAttendance returns the event's ledger records joined to student
// names for the per-event attendance view.
func (r *Repository) ListAttendance(ctx context.Context, eventID string) ([]AttendanceRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.student_id, s.name, s.email, a.entered_at, a.exited_at, a.entry_notified, a.exit_notified
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE a.event_id = $1
		ORDER BY s.name
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []AttendanceRow
	for rows.Next() {
		var ar AttendanceRow
		if err := rows.Scan(&ar.StudentID, &ar.StudentName, &ar.StudentEmail, &ar.EnteredAt, &ar.ExitedAt, &ar.EntryNotified, &ar.ExitNotified); err != nil {
			return nil, err
		}
		res = append(res, ar)
	}
	return res, rows.Err()
}
