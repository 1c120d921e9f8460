// Package identity maps scanned QR payloads to enrolled students.
package identity

import (
	"errors"
	"time"
)

// Student is a tracked attendee. ScanToken is the opaque string encoded
// in the student's QR code; it is generated at enrollment and never
// changes for the lifetime of the row.
type Student struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Course    *string    `json:"course,omitempty"`
	Section   *string    `json:"section,omitempty"`
	ScanToken string     `json:"scan_token"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

var (
	// ErrNotFound means the scanned code matches no student. The
	// operator retries the scan or falls back to manual entry.
	ErrNotFound = errors.New("identity: no student matches scanned code")

	// ErrAmbiguous means more than one student carries the same scan
	// token. The enrollment flow guarantees uniqueness, so this is a
	// data-integrity bug, not a transient condition; callers must not
	// retry it.
	ErrAmbiguous = errors.New("identity: scan token matches multiple students")
)
