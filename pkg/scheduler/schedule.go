// Package scheduler pkg/scheduler/schedule.go maps a config's schedule to
// cron entries and next-occurrence times.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// cronSpec renders a schedule as a robfig cron spec string. Config timezones
// ride along as a CRON_TZ prefix so the cron library does the location math.
func cronSpec(s *models.Schedule) string {
	if s.Timezone == "" {
		return s.Expression
	}

	return "CRON_TZ=" + s.Timezone + " " + s.Expression
}

// parseSchedule turns a config schedule into a cron.Schedule. Interval
// schedules become constant-delay entries.
func parseSchedule(s *models.Schedule) (cron.Schedule, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Type {
	case models.ScheduleCron:
		parsed, err := cron.ParseStandard(cronSpec(s))
		if err != nil {
			return nil, fmt.Errorf("failed to parse cron expression %q: %w", s.Expression, err)
		}

		return parsed, nil
	case models.ScheduleInterval:
		return cron.Every(time.Duration(s.Minutes) * time.Minute), nil
	default:
		return nil, errUnknownScheduleType
	}
}

// computeNext returns the first trigger time strictly after the given time.
// Interval schedules fire exactly N minutes after the trigger, not rounded
// the way cron.Every rounds its delay.
func computeNext(s *models.Schedule, after time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}

	if s.Type == models.ScheduleInterval {
		return after.Add(time.Duration(s.Minutes) * time.Minute), nil
	}

	parsed, err := parseSchedule(s)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.Next(after), nil
}
