package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/pkg/models"
)

func TestComputeNextCron(t *testing.T) {
	after := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule models.Schedule
		want     time.Time
	}{
		{
			"hourly",
			models.Schedule{Type: models.ScheduleCron, Expression: "0 * * * *"},
			time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC),
		},
		{
			"daily at midnight",
			models.Schedule{Type: models.ScheduleCron, Expression: "0 0 * * *"},
			time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			"every five minutes",
			models.Schedule{Type: models.ScheduleCron, Expression: "*/5 * * * *"},
			time.Date(2026, 8, 25, 10, 35, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := computeNext(&tt.schedule, after)
			require.NoError(t, err)
			assert.True(t, next.Equal(tt.want), "got %s, want %s", next, tt.want)
		})
	}
}

func TestComputeNextCronTimezone(t *testing.T) {
	// 10:30 UTC on 2026-08-25 is 19:30 in Tokyo; daily-at-midnight Tokyo
	// next fires at 2026-08-26 00:00 JST = 2026-08-25 15:00 UTC.
	schedule := models.Schedule{
		Type:       models.ScheduleCron,
		Expression: "0 0 * * *",
		Timezone:   "Asia/Tokyo",
	}

	after := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	next, err := computeNext(&schedule, after)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)),
		"got %s", next)
}

func TestComputeNextInterval(t *testing.T) {
	schedule := models.Schedule{Type: models.ScheduleInterval, Minutes: 45}
	after := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	next, err := computeNext(&schedule, after)
	require.NoError(t, err)
	assert.True(t, next.Equal(after.Add(45*time.Minute)))
}

func TestComputeNextStrictlyAfter(t *testing.T) {
	// A trigger exactly on the boundary schedules the following occurrence.
	schedule := models.Schedule{Type: models.ScheduleCron, Expression: "0 * * * *"}
	boundary := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	next, err := computeNext(&schedule, boundary)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)))
}

func TestComputeNextRejectsBadSchedules(t *testing.T) {
	tests := []struct {
		name     string
		schedule models.Schedule
	}{
		{"unknown type", models.Schedule{Type: "hourly"}},
		{"cron without expression", models.Schedule{Type: models.ScheduleCron}},
		{"interval without minutes", models.Schedule{Type: models.ScheduleInterval}},
		{"malformed expression", models.Schedule{Type: models.ScheduleCron, Expression: "not cron"}},
		{"bad timezone", models.Schedule{Type: models.ScheduleCron, Expression: "0 * * * *", Timezone: "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := computeNext(&tt.schedule, time.Now())
			require.Error(t, err)
		})
	}
}

func TestParseScheduleInterval(t *testing.T) {
	schedule := models.Schedule{Type: models.ScheduleInterval, Minutes: 30}

	sched, err := parseSchedule(&schedule)
	require.NoError(t, err)

	after := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	assert.True(t, sched.Next(after).Equal(after.Add(30*time.Minute)))
}

func TestMissedWithinGrace(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	recent := now.Add(-2 * time.Minute)
	stale := now.Add(-time.Hour)
	future := now.Add(time.Minute)

	assert.True(t, missedWithinGrace(&recent, now))
	assert.False(t, missedWithinGrace(&stale, now))
	assert.False(t, missedWithinGrace(&future, now))
	assert.False(t, missedWithinGrace(nil, now))
}
