package httpmiddleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustsAndRefills(t *testing.T) {
	l := NewTokenBucket(3, 60) // one token per second
	now := time.Now()

	assert.True(t, l.allow("1.2.3.4", now))
	assert.True(t, l.allow("1.2.3.4", now))
	assert.True(t, l.allow("1.2.3.4", now))
	assert.False(t, l.allow("1.2.3.4", now))

	// Other clients are unaffected.
	assert.True(t, l.allow("5.6.7.8", now))

	// After ~2.5 seconds two tokens have refilled.
	later := now.Add(2500 * time.Millisecond)
	assert.True(t, l.allow("1.2.3.4", later))
	assert.True(t, l.allow("1.2.3.4", later))
	assert.False(t, l.allow("1.2.3.4", later))
}

func TestTokenBucketDefaultsCapacity(t *testing.T) {
	l := NewTokenBucket(0, 10)
	assert.Equal(t, 10, l.capacity)
}
