package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	valid := []string{"*/5 * * * *", "0 9 * * 1-5", "@every 5m", " @hourly "}
	for _, spec := range valid {
		s, err := ParseSchedule(spec)
		require.NoError(t, err, spec)
		assert.Equal(t, strings.TrimSpace(spec), s.String())
	}

	invalid := []string{"", "not a cron", "61 * * * *", "@every", "0 0 0 * * *"}
	for _, spec := range invalid {
		_, err := ParseSchedule(spec)
		assert.ErrorContains(t, err, "invalid cron expression", spec)
	}
}

func TestSchedule_Next(t *testing.T) {
	from := time.Date(2026, 1, 1, 10, 2, 0, 0, time.UTC)

	s, err := ParseSchedule("*/5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), s.Next(from))

	s, err = ParseSchedule("@every 5m")
	require.NoError(t, err)
	assert.Equal(t, from.Add(5*time.Minute), s.Next(from))
}

func TestSchedule_MaxGap(t *testing.T) {
	// Thursday morning.
	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		spec string
		n    int
		want time.Duration
	}{
		{"*/5 * * * *", 10, 5 * time.Minute},
		{"@every 90s", 4, 90 * time.Second},
		{"0 9 * * 1-5", 5, 72 * time.Hour},
		{"@hourly", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			s, err := ParseSchedule(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.MaxGap(from, tt.n))
		})
	}
}
