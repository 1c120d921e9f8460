package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for dev and tests. The mutex plays
// the role the unique index plays in Postgres: one writer per pair at a
// time, no torn records.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record // key: studentID + "\x00" + eventID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func pairKey(studentID, eventID string) string {
	return studentID + "\x00" + eventID
}

// Upsert applies one transition atomically.
func (s *MemoryStore) Upsert(_ context.Context, studentID, eventID string, kind Kind, at time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(studentID, eventID)
	rec, ok := s.records[key]
	if !ok {
		rec = &Record{
			ID:        uuid.NewString(),
			StudentID: studentID,
			EventID:   eventID,
			CreatedAt: time.Now().UTC(),
		}
		s.records[key] = rec
	}
	ts := at
	if kind == Entry {
		rec.EnteredAt = &ts
		rec.EntryNotified = false
	} else {
		rec.ExitedAt = &ts
		rec.ExitNotified = false
	}
	return *rec, nil
}

// Get returns a copy of the record for a pair, nil when absent.
func (s *MemoryStore) Get(_ context.Context, studentID, eventID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[pairKey(studentID, eventID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// MarkNotified flips the flag for one transition.
func (s *MemoryStore) MarkNotified(_ context.Context, recordID string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID != recordID {
			continue
		}
		if kind == Entry {
			rec.EntryNotified = true
		} else {
			rec.ExitNotified = true
		}
		return nil
	}
	return nil
}

// ListByEvent returns copies of all records for one event.
func (s *MemoryStore) ListByEvent(_ context.Context, eventID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []Record
	for _, rec := range s.records {
		if rec.EventID == eventID {
			res = append(res, *rec)
		}
	}
	return res, nil
}

// Len reports how many records exist; used by tests asserting the
// no-duplicates invariant.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
