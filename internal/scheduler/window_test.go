package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

func TestWindowContains(t *testing.T) {
	w, err := ParseWindow("06:00", "23:00")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before open", at(5, 59), false},
		{"at open", at(6, 0), true},
		{"midday", at(12, 30), true},
		{"last minute", at(22, 59), true},
		{"at close", at(23, 0), false},
		{"after close", at(23, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.t))
		})
	}
}

func TestWindowWrapsMidnight(t *testing.T) {
	w, err := ParseWindow("22:00", "02:00")
	require.NoError(t, err)

	assert.True(t, w.Contains(at(23, 15)))
	assert.True(t, w.Contains(at(1, 59)))
	assert.False(t, w.Contains(at(2, 0)))
	assert.False(t, w.Contains(at(12, 0)))
}

func TestParseWindowRejectsGarbage(t *testing.T) {
	_, err := ParseWindow("6am", "23:00")
	assert.Error(t, err)

	_, err = ParseWindow("06:00", "25:00")
	assert.Error(t, err)
}
