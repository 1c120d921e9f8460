// Package students handles enrollment. Enrolling generates the scan
// token that goes into the student's QR code; the token is immutable
// afterwards and unique across students.
package students

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"qrattend/internal/identity"
)

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enroll creates a student with a fresh scan token.
func (r *Repository) Enroll(ctx context.Context, s identity.Student) (identity.Student, error) {
	if s.Name == "" || s.Email == "" {
		return identity.Student{}, errors.New("students: name and email required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.ScanToken = uuid.NewString()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, email, course, section, scan_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.Name, s.Email, s.Course, s.Section, s.ScanToken)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return identity.Student{}, err
	}
	return s, nil
}

// Get returns a single student by id, nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*identity.Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, course, section, scan_token, created_at, updated_at
		FROM students WHERE id = $1
	`, id)
	var s identity.Student
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Course, &s.Section, &s.ScanToken, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List returns all students ordered by name.
func (r *Repository) List(ctx context.Context) ([]identity.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, course, section, scan_token, created_at, updated_at
		FROM students
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []identity.Student
	for rows.Next() {
		var s identity.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Course, &s.Section, &s.ScanToken, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Update overwrites contact fields. The scan token is not touched.
func (r *Repository) Update(ctx context.Context, s identity.Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = $2, email = $3, course = $4, section = $5, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.Name, s.Email, s.Course, s.Section)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Delete removes a student.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}
