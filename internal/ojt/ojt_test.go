package ojt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday maps to itself", monday, monday},
		{"midweek", time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC), monday},
		{"saturday", time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC), monday},
		{"sunday closes the week", time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), monday},
		{"next monday starts a new week", time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), monday.AddDate(0, 0, 7)},
		{"year boundary", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in))
		})
	}
}

func TestHoursBetween(t *testing.T) {
	in := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	out := in.Add(7*time.Hour + 30*time.Minute)

	assert.Equal(t, 7.5, HoursBetween(&in, &out))
	assert.Equal(t, 0.0, HoursBetween(nil, &out))
	assert.Equal(t, 0.0, HoursBetween(&in, nil))
	// Inverted pairs count as zero, never negative.
	assert.Equal(t, 0.0, HoursBetween(&out, &in))
}
