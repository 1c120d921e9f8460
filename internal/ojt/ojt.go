// Package ojt tracks on-the-job-training hours and weekly journals.
// One daily log per (student, date) and one journal per (student, ISO
// week), both enforced by upsert like the attendance ledger.
package ojt

import (
	"time"
)

// DailyLog is one day of rendered OJT hours.
type DailyLog struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	LogDate   time.Time  `json:"log_date"`
	TimeIn    *time.Time `json:"time_in,omitempty"`
	TimeOut   *time.Time `json:"time_out,omitempty"`
	Hours     float64    `json:"hours"`
	Remarks   *string    `json:"remarks,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// WeeklyJournal is one student's narrative for one ISO week, keyed on
// the week's Monday.
type WeeklyJournal struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	WeekStart time.Time  `json:"week_start"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// WeekStart returns the Monday (00:00 UTC) of t's ISO week.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday closes the ISO week
		weekday = 7
	}
	monday := t.AddDate(0, 0, 1-weekday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// HoursBetween converts a time-in/time-out pair into decimal hours.
// Missing or inverted pairs count as zero rather than negative hours.
func HoursBetween(in, out *time.Time) float64 {
	if in == nil || out == nil {
		return 0
	}
	d := out.Sub(*in)
	if d < 0 {
		return 0
	}
	return d.Hours()
}
