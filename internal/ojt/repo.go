package ojt

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists OJT logs and journals in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveLog upserts the day's log for a student. Hours are recomputed
// server-side from the in/out pair on every write.
func (r *Repository) SaveLog(ctx context.Context, l DailyLog) (DailyLog, error) {
	if l.StudentID == "" {
		return DailyLog{}, errors.New("ojt: student required")
	}
	if l.LogDate.IsZero() {
		l.LogDate = time.Now().UTC()
	}
	l.LogDate = l.LogDate.Truncate(24 * time.Hour)
	l.Hours = HoursBetween(l.TimeIn, l.TimeOut)
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO ojt_daily_logs (id, student_id, log_date, time_in, time_out, hours, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, log_date) DO UPDATE
		SET time_in = EXCLUDED.time_in, time_out = EXCLUDED.time_out,
		    hours = EXCLUDED.hours, remarks = EXCLUDED.remarks
		RETURNING id, created_at
	`, l.ID, l.StudentID, l.LogDate, l.TimeIn, l.TimeOut, l.Hours, l.Remarks)
	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		return DailyLog{}, err
	}
	return l, nil
}

// ListLogs returns a student's logs, newest first.
func (r *Repository) ListLogs(ctx context.Context, studentID string) ([]DailyLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, log_date, time_in, time_out, hours, remarks, created_at
		FROM ojt_daily_logs
		WHERE student_id = $1
		ORDER BY log_date DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []DailyLog
	for rows.Next() {
		var l DailyLog
		if err := rows.Scan(&l.ID, &l.StudentID, &l.LogDate, &l.TimeIn, &l.TimeOut, &l.Hours, &l.Remarks, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// TotalHours sums a student's rendered hours across all logs.
func (r *Repository) TotalHours(ctx context.Context, studentID string) (float64, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(hours), 0) FROM ojt_daily_logs WHERE student_id = $1
	`, studentID)
	var total float64
	err := row.Scan(&total)
	return total, err
}

// SaveJournal upserts the journal for the ISO week containing anchor.
func (r *Repository) SaveJournal(ctx context.Context, studentID string, anchor time.Time, body string) (WeeklyJournal, error) {
	if studentID == "" || body == "" {
		return WeeklyJournal{}, errors.New("ojt: student and body required")
	}
	j := WeeklyJournal{
		ID:        uuid.NewString(),
		StudentID: studentID,
		WeekStart: WeekStart(anchor),
		Body:      body,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO ojt_weekly_journals (id, student_id, week_start, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, week_start) DO UPDATE
		SET body = EXCLUDED.body, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, j.ID, j.StudentID, j.WeekStart, j.Body)
	if err := row.Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return WeeklyJournal{}, err
	}
	return j, nil
}

// ListJournals returns a student's journals, newest week first.
func (r *Repository) ListJournals(ctx context.Context, studentID string) ([]WeeklyJournal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, week_start, body, created_at, updated_at
		FROM ojt_weekly_journals
		WHERE student_id = $1
		ORDER BY week_start DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []WeeklyJournal
	for rows.Next() {
		var j WeeklyJournal
		if err := rows.Scan(&j.ID, &j.StudentID, &j.WeekStart, &j.Body, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}
