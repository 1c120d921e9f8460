// Package notify sends best-effort attendance confirmations. Dispatch
// is decoupled from the ledger: a failed send is logged and reported to
// the operator, never rolled back into the recording flow.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"qrattend/internal/ledger"
)

// Job carries everything one confirmation email needs. It is what the
// scan flow enqueues and the worker consumes.
type Job struct {
	RecordID    string      `json:"record_id"`
	Kind        ledger.Kind `json:"kind"`
	StudentName string      `json:"student_name"`
	Email       string      `json:"email"`
	EventLabel  string      `json:"event_label"`
	At          time.Time   `json:"at"`
}

// Outcome is the result of a single delivery attempt.
type Outcome int

const (
	Failed Outcome = iota
	Sent
)

// Mailer is the mail transport. Send makes exactly one attempt.
type Mailer interface {
	Send(ctx context.Context, toName, toAddr, subject, htmlBody string) error
}

// Dispatcher renders and delivers confirmation messages through a Mailer.
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. timeout bounds each send attempt.
func NewDispatcher(mailer Mailer, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{mailer: mailer, timeout: timeout}
}

// Dispatch makes one delivery attempt for the job. No retries: a stale
// notified flag plus the next identical scan is the only redelivery path.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) Outcome {
	if job.Email == "" {
		log.Printf("notify: record %s has no contact address, skipping", job.RecordID)
		return Failed
	}

	subject, body := render(job)
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.mailer.Send(sendCtx, job.StudentName, job.Email, subject, body); err != nil {
		log.Printf("notify: %s confirmation for record %s failed: %v", job.Kind, job.RecordID, err)
		return Failed
	}
	return Sent
}

func render(job Job) (subject, body string) {
	action := "Time-in"
	if job.Kind == ledger.Exit {
		action = "Time-out"
	}
	when := job.At.Format("Jan 2, 2006 3:04 PM")
	subject = fmt.Sprintf("%s recorded — %s", action, job.EventLabel)
	body = fmt.Sprintf(
		`<p>Hi %s,</p><p>Your <b>%s</b> for <b>%s</b> was recorded at %s.</p><p>If this was not you, please inform the event secretary.</p>`,
		job.StudentName, action, job.EventLabel, when,
	)
	return subject, body
}
