package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/ledger"
)

type fakeMailer struct {
	err      error
	toAddr   string
	subject  string
	htmlBody string
	calls    int
}

func (m *fakeMailer) Send(_ context.Context, _, toAddr, subject, htmlBody string) error {
	m.calls++
	m.toAddr = toAddr
	m.subject = subject
	m.htmlBody = htmlBody
	return m.err
}

func job(kind ledger.Kind) Job {
	return Job{
		RecordID:    "r1",
		Kind:        kind,
		StudentName: "Ana Cruz",
		Email:       "ana@example.com",
		EventLabel:  "Tech Summit",
		At:          time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC),
	}
}

func TestDispatchSent(t *testing.T) {
	m := &fakeMailer{}
	d := NewDispatcher(m, time.Second)

	outcome := d.Dispatch(context.Background(), job(ledger.Entry))
	assert.Equal(t, Sent, outcome)
	require.Equal(t, 1, m.calls)
	assert.Equal(t, "ana@example.com", m.toAddr)
	assert.Contains(t, m.subject, "Time-in")
	assert.Contains(t, m.subject, "Tech Summit")
	assert.Contains(t, m.htmlBody, "Ana Cruz")
}

func TestDispatchExitWording(t *testing.T) {
	m := &fakeMailer{}
	d := NewDispatcher(m, time.Second)

	d.Dispatch(context.Background(), job(ledger.Exit))
	assert.True(t, strings.Contains(m.subject, "Time-out"))
	assert.Contains(t, m.htmlBody, "Time-out")
}

func TestDispatchFailed(t *testing.T) {
	m := &fakeMailer{err: errors.New("smtp refused")}
	d := NewDispatcher(m, time.Second)

	outcome := d.Dispatch(context.Background(), job(ledger.Entry))
	assert.Equal(t, Failed, outcome)
	// One attempt per triggering scan, no retries.
	assert.Equal(t, 1, m.calls)
}

func TestDispatchMissingAddress(t *testing.T) {
	m := &fakeMailer{}
	d := NewDispatcher(m, time.Second)

	j := job(ledger.Entry)
	j.Email = ""
	outcome := d.Dispatch(context.Background(), j)
	assert.Equal(t, Failed, outcome)
	assert.Equal(t, 0, m.calls)
}
