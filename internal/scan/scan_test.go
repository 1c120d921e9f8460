package scan

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/events"
	"qrattend/internal/identity"
	"qrattend/internal/ledger"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
)

type fakeResolver struct {
	students map[string]identity.Student
}

func (r *fakeResolver) Resolve(_ context.Context, code string) (identity.Student, error) {
	s, ok := r.students[code]
	if !ok {
		return identity.Student{}, identity.ErrNotFound
	}
	return s, nil
}

type fakeEvents struct {
	events map[string]events.Event
}

func (e *fakeEvents) Get(_ context.Context, id string) (*events.Event, error) {
	evt, ok := e.events[id]
	if !ok {
		return nil, nil
	}
	return &evt, nil
}

type captureQueue struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *captureQueue) Publish(_ context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *captureQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("not implemented")
}

func newFixture() (*Service, *ledger.MemoryStore, *captureQueue) {
	resolver := &fakeResolver{students: map[string]identity.Student{
		"abc123": {ID: "s1", Name: "Ana Cruz", Email: "ana@example.com", ScanToken: "abc123"},
	}}
	evts := &fakeEvents{events: map[string]events.Event{
		"e1": {ID: "e1", Label: "Tech Summit"},
	}}
	store := ledger.NewMemoryStore()
	q := &captureQueue{}
	svc := NewService(resolver, evts, ledger.New(store), q, time.Second)
	return svc, store, q
}

func TestProcessEntry(t *testing.T) {
	svc, store, q := newFixture()
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	res, err := svc.Process(context.Background(), "abc123", "e1", ledger.Entry, at)
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", res.StudentName)
	assert.Equal(t, "ana@example.com", res.Email)
	assert.Equal(t, ledger.Entry, res.Kind)
	require.NotNil(t, res.Record.EnteredAt)
	assert.Equal(t, at, *res.Record.EnteredAt)
	assert.Equal(t, 1, store.Len())

	require.Len(t, q.messages, 1)
	assert.Equal(t, "confirmation", q.messages[0].Type)
	var job notify.Job
	require.NoError(t, json.Unmarshal(q.messages[0].Body, &job))
	assert.Equal(t, res.Record.ID, job.RecordID)
	assert.Equal(t, ledger.Entry, job.Kind)
	assert.Equal(t, "Tech Summit", job.EventLabel)
}

func TestProcessUnknownCode(t *testing.T) {
	svc, store, q := newFixture()

	_, err := svc.Process(context.Background(), "unknown-token", "e1", ledger.Entry, time.Now())
	assert.ErrorIs(t, err, identity.ErrNotFound)
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, q.messages)
}

func TestProcessUnknownEvent(t *testing.T) {
	svc, store, _ := newFixture()

	_, err := svc.Process(context.Background(), "abc123", "no-such-event", ledger.Entry, time.Now())
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Equal(t, 0, store.Len())
}

func TestProcessInvalidMode(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.Process(context.Background(), "abc123", "e1", ledger.Kind("sideways"), time.Now())
	assert.Error(t, err)
}

func TestPublishFailureDoesNotFailScan(t *testing.T) {
	svc, store, q := newFixture()
	q.err = errors.New("redis down")

	res, err := svc.Process(context.Background(), "abc123", "e1", ledger.Entry, time.Now().UTC())
	require.NoError(t, err)
	assert.NotNil(t, res.Record.EnteredAt)
	assert.Equal(t, 1, store.Len())
}

func TestNotifiedFlagSuppressesDuplicate(t *testing.T) {
	svc, store, q := newFixture()
	ctx := context.Background()
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	res, err := svc.Process(ctx, "abc123", "e1", ledger.Entry, at)
	require.NoError(t, err)
	require.Len(t, q.messages, 1)

	// A re-scan resets the flag and legitimately re-notifies.
	_, err = svc.Process(ctx, "abc123", "e1", ledger.Entry, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, q.messages, 2)

	// An exit scan after its confirmation was sent stays suppressed on
	// the entry side: only the exit job is enqueued.
	require.NoError(t, store.MarkNotified(ctx, res.Record.ID, ledger.Entry))
	_, err = svc.Process(ctx, "abc123", "e1", ledger.Exit, at.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, q.messages, 3)
	var job notify.Job
	require.NoError(t, json.Unmarshal(q.messages[2].Body, &job))
	assert.Equal(t, ledger.Exit, job.Kind)
}
