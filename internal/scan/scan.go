// Package scan orchestrates one scan request end to end: resolve the
// code, record the transition, enqueue the confirmation. Each step gets
// its own bounded timeout; only the notification leg is allowed to fail
// silently.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"qrattend/internal/events"
	"qrattend/internal/identity"
	"qrattend/internal/ledger"
	"qrattend/internal/metrics"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
)

// Resolver abstracts identity lookup so the service is testable with fakes.
type Resolver interface {
	Resolve(ctx context.Context, code string) (identity.Student, error)
}

// EventGetter fetches event context for confirmations.
type EventGetter interface {
	Get(ctx context.Context, id string) (*events.Event, error)
}

// Result is the success payload the scanner UI renders.
type Result struct {
	StudentName string        `json:"student_name"`
	Email       string        `json:"email"`
	Kind        ledger.Kind   `json:"kind"`
	At          time.Time     `json:"at"`
	Record      ledger.Record `json:"record"`
}

// ErrUnknownEvent means the selected event id matches no event.
var ErrUnknownEvent = errors.New("scan: unknown event")

// Service wires the resolver, ledger and notification queue together.
type Service struct {
	resolver Resolver
	events   EventGetter
	ledger   *ledger.Ledger
	queue    queue.Queue
	timeout  time.Duration
}

// NewService creates the orchestrator. timeout bounds each external call.
func NewService(resolver Resolver, events EventGetter, led *ledger.Ledger, q queue.Queue, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{resolver: resolver, events: events, ledger: led, queue: q, timeout: timeout}
}

// Process handles one scan. Resolver and ledger errors propagate to the
// caller for the operator to act on; a failed queue publish only logs,
// the transition stands either way.
func (s *Service) Process(ctx context.Context, code, eventID string, kind ledger.Kind, at time.Time) (Result, error) {
	if !kind.Valid() {
		return Result{}, errors.New("scan: mode must be entry or exit")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	student, err := s.resolver.Resolve(resolveCtx, code)
	cancel()
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(kind), "resolve_error").Inc()
		return Result{}, err
	}

	eventCtx, cancel := context.WithTimeout(ctx, s.timeout)
	event, err := s.events.Get(eventCtx, eventID)
	cancel()
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(kind), "event_error").Inc()
		return Result{}, err
	}
	if event == nil {
		metrics.ScansTotal.WithLabelValues(string(kind), "event_error").Inc()
		return Result{}, ErrUnknownEvent
	}

	recordCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var rec ledger.Record
	if kind == ledger.Entry {
		rec, err = s.ledger.RecordEntry(recordCtx, student.ID, event.ID, at)
	} else {
		rec, err = s.ledger.RecordExit(recordCtx, student.ID, event.ID, at)
	}
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(kind), "persistence_error").Inc()
		return Result{}, err
	}
	metrics.ScansTotal.WithLabelValues(string(kind), "ok").Inc()

	// Duplicate suppression happens here: a transition whose flag is
	// already set gets no second confirmation.
	if !rec.Notified(kind) {
		s.enqueue(ctx, rec, student, *event, kind, at)
	}

	return Result{
		StudentName: student.Name,
		Email:       student.Email,
		Kind:        kind,
		At:          at,
		Record:      rec,
	}, nil
}

func (s *Service) enqueue(ctx context.Context, rec ledger.Record, student identity.Student, event events.Event, kind ledger.Kind, at time.Time) {
	job := notify.Job{
		RecordID:    rec.ID,
		Kind:        kind,
		StudentName: student.Name,
		Email:       student.Email,
		EventLabel:  event.Label,
		At:          at,
	}
	body, err := json.Marshal(job)
	if err != nil {
		log.Printf("scan: marshal notification job failed: %v", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.queue.Publish(pubCtx, queue.Message{Type: "confirmation", Body: body}); err != nil {
		log.Printf("scan: enqueue confirmation for record %s failed: %v", rec.ID, err)
	}
}
