package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Five-field expressions plus descriptors such as "@every 5m", the same
// dialect the asynq scheduler runs.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule is a validated recurring job schedule.
type Schedule struct {
	spec  string
	inner cron.Schedule
}

func ParseSchedule(spec string) (*Schedule, error) {
	spec = strings.TrimSpace(spec)
	inner, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &Schedule{spec: spec, inner: inner}, nil
}

func (s *Schedule) String() string { return s.spec }

// Next returns the first run strictly after from, in UTC.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.inner.Next(from.UTC())
}

// MaxGap is the longest wait between consecutive runs among the next n runs
// after from. A job whose MaxGap exceeds its lookahead window can miss work.
func (s *Schedule) MaxGap(from time.Time, n int) time.Duration {
	var longest time.Duration
	prev := s.Next(from)
	for i := 1; i < n; i++ {
		next := s.inner.Next(prev)
		if gap := next.Sub(prev); gap > longest {
			longest = gap
		}
		prev = next
	}
	return longest
}
