// Package ledger records time-in/time-out transitions for students at
// events. It is the only stateful protocol in the system: at most one
// record exists per (student, event) pair, entry and exit timestamps
// are written independently, and a re-recorded transition overwrites its
// timestamp without touching the other side.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind identifies which transition a scan records.
type Kind string

const (
	Entry Kind = "entry"
	Exit  Kind = "exit"
)

// Valid reports whether k is a known transition kind.
func (k Kind) Valid() bool { return k == Entry || k == Exit }

// Record is one attendance row, keyed uniquely on (StudentID, EventID).
// A nil EnteredAt with a set ExitedAt is a valid but incomplete record:
// the secretary may scan an exit first and correct the entry later.
type Record struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"student_id"`
	EventID       string     `json:"event_id"`
	EnteredAt     *time.Time `json:"entered_at,omitempty"`
	ExitedAt      *time.Time `json:"exited_at,omitempty"`
	EntryNotified bool       `json:"entry_notified"`
	ExitNotified  bool       `json:"exit_notified"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Notified returns the notification flag for the given transition.
func (r Record) Notified(kind Kind) bool {
	if kind == Entry {
		return r.EntryNotified
	}
	return r.ExitNotified
}

// ErrPersistence wraps storage failures. The upsert is atomic, so a
// failed call has not written anything.
var ErrPersistence = errors.New("ledger: persistence failure")

// Store is the persistence contract. Upsert must be a single atomic
// conditional write keyed on (studentID, eventID): two near-simultaneous
// scans of the same code must never create duplicate rows.
type Store interface {
	Upsert(ctx context.Context, studentID, eventID string, kind Kind, at time.Time) (Record, error)
	Get(ctx context.Context, studentID, eventID string) (*Record, error)
	MarkNotified(ctx context.Context, recordID string, kind Kind) error
	ListByEvent(ctx context.Context, eventID string) ([]Record, error)
}

// Ledger validates transitions and maps storage failures to the error
// taxonomy the scan flow surfaces to the operator.
type Ledger struct {
	store Store
}

// New creates a ledger backed by a store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// RecordEntry writes the entry timestamp for the pair, creating the row
// on first contact. Re-recording overwrites the timestamp and resets
// entry_notified so the changed entry triggers a fresh confirmation.
// Never modifies the exit side.
func (l *Ledger) RecordEntry(ctx context.Context, studentID, eventID string, at time.Time) (Record, error) {
	return l.record(ctx, studentID, eventID, Entry, at)
}

// RecordExit is symmetric to RecordEntry for the exit side. It does not
// require an entry to exist first and does not validate that the exit
// timestamp follows the entry timestamp.
func (l *Ledger) RecordExit(ctx context.Context, studentID, eventID string, at time.Time) (Record, error) {
	return l.record(ctx, studentID, eventID, Exit, at)
}

func (l *Ledger) record(ctx context.Context, studentID, eventID string, kind Kind, at time.Time) (Record, error) {
	if studentID == "" || eventID == "" {
		return Record{}, errors.New("ledger: student and event required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	rec, err := l.store.Upsert(ctx, studentID, eventID, kind, at)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rec, nil
}

// MarkNotified persists that a confirmation for the given transition
// was sent. The flag only moves false to true here; the matching Record
// call is the only thing that resets it.
func (l *Ledger) MarkNotified(ctx context.Context, recordID string, kind Kind) error {
	if recordID == "" || !kind.Valid() {
		return errors.New("ledger: record id and kind required")
	}
	if err := l.store.MarkNotified(ctx, recordID, kind); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Get returns the record for a pair, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, studentID, eventID string) (*Record, error) {
	rec, err := l.store.Get(ctx, studentID, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rec, nil
}

// ListByEvent returns all records for one event.
func (l *Ledger) ListByEvent(ctx context.Context, eventID string) ([]Record, error) {
	recs, err := l.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return recs, nil
}
