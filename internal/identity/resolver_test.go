package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	students map[string][]Student
	err      error
}

func (d *fakeDirectory) FindByToken(_ context.Context, token string) ([]Student, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.students[token], nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	dir := &fakeDirectory{students: map[string][]Student{
		"abc123": {{ID: "s1", Name: "Ana Cruz", Email: "ana@example.com", ScanToken: "abc123"}},
		"dup":    {{ID: "s2", ScanToken: "dup"}, {ID: "s3", ScanToken: "dup"}},
	}}
	r := NewResolver(dir)

	t.Run("known token", func(t *testing.T) {
		s, err := r.Resolve(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "s1", s.ID)
		assert.Equal(t, "Ana Cruz", s.Name)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := r.Resolve(ctx, "unknown-token")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, IsFatal(err))
	})

	t.Run("empty code", func(t *testing.T) {
		_, err := r.Resolve(ctx, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicated token is fatal", func(t *testing.T) {
		_, err := r.Resolve(ctx, "dup")
		assert.ErrorIs(t, err, ErrAmbiguous)
		assert.True(t, IsFatal(err))
	})
}

func TestResolveLookupFailure(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(&fakeDirectory{err: boom})

	_, err := r.Resolve(context.Background(), "abc123")
	require.Error(t, err)
	// Transient failures keep their cause and are distinct from NotFound.
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
