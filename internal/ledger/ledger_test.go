package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEntryThenExit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	led := New(store)

	t1 := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(4 * time.Hour)
	t3 := t2.Add(time.Hour)

	rec, err := led.RecordEntry(ctx, "s1", "e1", t1)
	require.NoError(t, err)
	require.NotNil(t, rec.EnteredAt)
	assert.Equal(t, t1, *rec.EnteredAt)
	assert.Nil(t, rec.ExitedAt)
	assert.False(t, rec.EntryNotified)

	rec, err = led.RecordExit(ctx, "s1", "e1", t2)
	require.NoError(t, err)
	require.NotNil(t, rec.EnteredAt)
	require.NotNil(t, rec.ExitedAt)
	assert.Equal(t, t1, *rec.EnteredAt)
	assert.Equal(t, t2, *rec.ExitedAt)

	// Re-recording the entry overwrites its timestamp, resets its
	// notified flag, and leaves the exit untouched.
	require.NoError(t, led.MarkNotified(ctx, rec.ID, Entry))
	rec, err = led.RecordEntry(ctx, "s1", "e1", t3)
	require.NoError(t, err)
	assert.Equal(t, t3, *rec.EnteredAt)
	assert.Equal(t, t2, *rec.ExitedAt)
	assert.False(t, rec.EntryNotified)

	assert.Equal(t, 1, store.Len())
}

func TestRecordEntryIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	led := New(store)

	at := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	first, err := led.RecordEntry(ctx, "s1", "e1", at)
	require.NoError(t, err)
	second, err := led.RecordEntry(ctx, "s1", "e1", at)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, *first.EnteredAt, *second.EnteredAt)
	assert.Equal(t, 1, store.Len())
}

func TestExitBeforeEntry(t *testing.T) {
	ctx := context.Background()
	led := New(NewMemoryStore())

	t1 := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	rec, err := led.RecordExit(ctx, "s1", "e1", t1)
	require.NoError(t, err)
	assert.Nil(t, rec.EnteredAt)
	require.NotNil(t, rec.ExitedAt)
	assert.Equal(t, t1, *rec.ExitedAt)

	// A later entry completes the record without erasing the exit.
	t2 := t1.Add(-3 * time.Hour) // earlier timestamp, still accepted
	rec, err = led.RecordEntry(ctx, "s1", "e1", t2)
	require.NoError(t, err)
	require.NotNil(t, rec.EnteredAt)
	require.NotNil(t, rec.ExitedAt)
	assert.Equal(t, t2, *rec.EnteredAt)
	assert.Equal(t, t1, *rec.ExitedAt)
}

func TestConcurrentScansSingleRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	led := New(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := time.Date(2026, 3, 9, 8, 0, i, 0, time.UTC)
			if i%2 == 0 {
				_, err := led.RecordEntry(ctx, "s1", "e1", at)
				assert.NoError(t, err)
			} else {
				_, err := led.RecordExit(ctx, "s1", "e1", at)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	rec, err := led.Get(ctx, "s1", "e1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotNil(t, rec.EnteredAt)
	assert.NotNil(t, rec.ExitedAt)
}

func TestMarkNotifiedPerTransition(t *testing.T) {
	ctx := context.Background()
	led := New(NewMemoryStore())

	at := time.Now().UTC()
	rec, err := led.RecordEntry(ctx, "s1", "e1", at)
	require.NoError(t, err)
	rec, err = led.RecordExit(ctx, "s1", "e1", at.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, led.MarkNotified(ctx, rec.ID, Entry))
	got, err := led.Get(ctx, "s1", "e1")
	require.NoError(t, err)
	assert.True(t, got.EntryNotified)
	assert.False(t, got.ExitNotified)

	require.NoError(t, led.MarkNotified(ctx, rec.ID, Exit))
	got, err = led.Get(ctx, "s1", "e1")
	require.NoError(t, err)
	assert.True(t, got.ExitNotified)
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	led := New(NewMemoryStore())

	_, err := led.RecordEntry(ctx, "", "e1", time.Now())
	assert.Error(t, err)
	_, err = led.RecordExit(ctx, "s1", "", time.Now())
	assert.Error(t, err)
	assert.Error(t, led.MarkNotified(ctx, "", Entry))
	assert.Error(t, led.MarkNotified(ctx, "r1", Kind("bogus")))
}

func TestKindValid(t *testing.T) {
	assert.True(t, Entry.Valid())
	assert.True(t, Exit.Valid())
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("both").Valid())
}

func TestGetMissingPair(t *testing.T) {
	led := New(NewMemoryStore())
	rec, err := led.Get(context.Background(), "nobody", "nothing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
