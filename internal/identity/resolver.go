package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Directory is the lookup the resolver classifies over. FindByToken
// returns every student carrying the token (at most two are fetched;
// more than one is already a violation).
type Directory interface {
	FindByToken(ctx context.Context, token string) ([]Student, error)
}

// Resolver translates a scanned code into a known student, or fails
// cleanly. It has no side effects.
type Resolver struct {
	dir Directory
}

// NewResolver creates a resolver over a directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the unique student whose scan token equals code.
// Zero matches is ErrNotFound; two or more is ErrAmbiguous, which
// signals duplicated tokens and must not be retried.
func (r *Resolver) Resolve(ctx context.Context, code string) (Student, error) {
	if code == "" {
		return Student{}, ErrNotFound
	}
	matches, err := r.dir.FindByToken(ctx, code)
	if err != nil {
		return Student{}, fmt.Errorf("identity: lookup failed: %w", err)
	}
	switch len(matches) {
	case 0:
		return Student{}, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return Student{}, ErrAmbiguous
	}
}

// IsFatal reports whether a resolution error signals an administrative
// bug rather than something the operator can retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// PostgresDirectory looks tokens up in the students table.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a directory over the students table.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// FindByToken fetches up to two matching students so a duplicated token
// surfaces as ambiguity instead of silently resolving to one of them.
func (d *PostgresDirectory) FindByToken(ctx context.Context, token string) ([]Student, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, email, course, section, scan_token, created_at, updated_at
		FROM students
		WHERE scan_token = $1
		LIMIT 2
	`, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Course, &s.Section, &s.ScanToken, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, s)
	}
	return matches, rows.Err()
}
