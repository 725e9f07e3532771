package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
	"github.com/driftwatch/driftwatch/pkg/ratelimit"
)

type pipelineMocks struct {
	db  *db.MockService
	bus *bus.MockBus
	kv  *cache.MockKV
}

func newTestPipeline(t *testing.T) (*Pipeline, *pipelineMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mocks := &pipelineMocks{
		db:  db.NewMockService(ctrl),
		bus: bus.NewMockBus(ctrl),
		kv:  cache.NewMockKV(ctrl),
	}

	p := NewPipeline(mocks.db, mocks.bus, mocks.kv, &config.SchedulerConfig{})
	p.now = func() time.Time {
		return time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	}

	return p, mocks
}

func intervalConfig(id string, minutes int) models.MonitoringConfig {
	return models.MonitoringConfig{
		ID:       id,
		Name:     "Example " + id,
		URL:      "https://example.com/" + id,
		Schedule: models.Schedule{Type: models.ScheduleInterval, Minutes: minutes},
		Enabled:  true,
	}
}

func TestTriggerPublishesScan(t *testing.T) {
	p, mocks := newTestPipeline(t)

	cfg := intervalConfig("cfg-1", 45)
	j := &job{config: cfg}

	mocks.kv.EXPECT().Exists(gomock.Any(), "scan_rate:example.com").Return(false, nil)

	var published *models.Event

	mocks.bus.EXPECT().
		Publish(gomock.Any(), models.TopicScanScheduled, gomock.Any(), cfg.URL).
		DoAndReturn(func(_ context.Context, _ string, event *models.Event, _ string) error {
			published = event
			return nil
		})
	mocks.kv.EXPECT().
		Set(gomock.Any(), "scan_rate:example.com", gomock.Any(), ratelimit.DefaultInterval).
		Return(nil)

	var persistedNext *time.Time

	mocks.db.EXPECT().
		UpdateScanTimes("cfg-1", gomock.Nil(), gomock.Any()).
		DoAndReturn(func(_ string, _, next *time.Time) error {
			persistedNext = next
			return nil
		})

	p.trigger(context.Background(), j)

	require.NotNil(t, published)
	assert.Equal(t, models.EventScanScheduled, published.Type)

	var payload models.ScanScheduledPayload
	require.NoError(t, published.DecodeData(&payload))
	assert.Equal(t, "cfg-1", payload.ConfigID)
	assert.Equal(t, cfg.URL, payload.URL)

	require.NotNil(t, persistedNext)
	assert.True(t, persistedNext.Equal(p.now().Add(45*time.Minute)))

	assert.EqualValues(t, 1, p.counters.scheduled.Load())
	assert.False(t, j.inFlight.Load())
}

func TestTriggerRateLimitedSkipsCycle(t *testing.T) {
	p, mocks := newTestPipeline(t)

	j := &job{config: intervalConfig("cfg-1", 45)}

	mocks.kv.EXPECT().Exists(gomock.Any(), "scan_rate:example.com").Return(true, nil)

	p.trigger(context.Background(), j)

	assert.EqualValues(t, 1, p.counters.rateLimited.Load())
	assert.EqualValues(t, 0, p.counters.scheduled.Load())
}

func TestTriggerCoalescesWhileInFlight(t *testing.T) {
	p, _ := newTestPipeline(t)

	j := &job{config: intervalConfig("cfg-1", 45)}
	j.inFlight.Store(true)

	p.trigger(context.Background(), j)

	assert.EqualValues(t, 1, p.counters.coalesced.Load())
	assert.True(t, j.inFlight.Load())
}

func TestTriggerRateCheckFailsOpen(t *testing.T) {
	p, mocks := newTestPipeline(t)

	j := &job{config: intervalConfig("cfg-1", 45)}

	mocks.kv.EXPECT().Exists(gomock.Any(), "scan_rate:example.com").
		Return(false, assert.AnError)
	mocks.bus.EXPECT().Publish(gomock.Any(), models.TopicScanScheduled, gomock.Any(), gomock.Any()).Return(nil)
	mocks.kv.EXPECT().Set(gomock.Any(), "scan_rate:example.com", gomock.Any(), gomock.Any()).Return(nil)
	mocks.db.EXPECT().UpdateScanTimes("cfg-1", gomock.Nil(), gomock.Any()).Return(nil)

	p.trigger(context.Background(), j)

	assert.EqualValues(t, 1, p.counters.scheduled.Load())
}

func TestReloadRebuildsJobTable(t *testing.T) {
	p, mocks := newTestPipeline(t)

	first := intervalConfig("cfg-1", 30)
	second := models.MonitoringConfig{
		ID:       "cfg-2",
		URL:      "https://other.example.com",
		Schedule: models.Schedule{Type: models.ScheduleCron, Expression: "0 * * * *"},
		Enabled:  true,
	}
	broken := models.MonitoringConfig{
		ID:       "cfg-3",
		URL:      "https://broken.example.com",
		Schedule: models.Schedule{Type: models.ScheduleCron, Expression: "not cron"},
		Enabled:  true,
	}

	mocks.db.EXPECT().ListEnabledConfigs().
		Return([]models.MonitoringConfig{first, second, broken}, nil)

	require.NoError(t, p.reload())
	assert.Len(t, p.jobs, 2)
	assert.Contains(t, p.jobs, "cfg-1")
	assert.Contains(t, p.jobs, "cfg-2")

	// A config dropped from the store loses its job on the next reload.
	mocks.db.EXPECT().ListEnabledConfigs().
		Return([]models.MonitoringConfig{first}, nil)

	require.NoError(t, p.reload())
	assert.Len(t, p.jobs, 1)
	assert.Contains(t, p.jobs, "cfg-1")
}

func TestReloadFiresMissedTriggerWithinGrace(t *testing.T) {
	p, mocks := newTestPipeline(t)

	cfg := intervalConfig("cfg-1", 45)
	missed := p.now().Add(-2 * time.Minute)
	cfg.NextScanAt = &missed

	published := make(chan struct{})

	mocks.db.EXPECT().ListEnabledConfigs().Return([]models.MonitoringConfig{cfg}, nil)
	mocks.kv.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil)
	mocks.bus.EXPECT().
		Publish(gomock.Any(), models.TopicScanScheduled, gomock.Any(), cfg.URL).
		DoAndReturn(func(context.Context, string, *models.Event, string) error {
			close(published)
			return nil
		})
	mocks.kv.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	mocks.db.EXPECT().UpdateScanTimes("cfg-1", gomock.Nil(), gomock.Any()).Return(nil)

	require.NoError(t, p.reload())

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("missed trigger was not fired")
	}
}

func scanCompletedEvent(t *testing.T, configID, completedAt string) *models.Event {
	t.Helper()

	data, err := json.Marshal(&models.ScanCompletedPayload{
		ConfigID:    configID,
		ScanID:      "scan-1",
		CompletedAt: completedAt,
	})
	require.NoError(t, err)

	return &models.Event{Type: models.EventScanCompleted, Source: "scanner", Data: data}
}

func TestScanCompletedUpdatesLastScanTime(t *testing.T) {
	p, mocks := newTestPipeline(t)

	completedAt := time.Date(2026, 8, 25, 10, 15, 0, 0, time.UTC)

	mocks.db.EXPECT().
		UpdateScanTimes("cfg-1", gomock.Any(), gomock.Nil()).
		DoAndReturn(func(_ string, last, _ *time.Time) error {
			require.NotNil(t, last)
			assert.True(t, last.Equal(completedAt))

			return nil
		})

	event := scanCompletedEvent(t, "cfg-1", completedAt.Format(time.RFC3339))
	require.NoError(t, p.handleEvent(context.Background(), event))

	assert.EqualValues(t, 1, p.counters.completed.Load())
}

func TestScanCompletedForDeletedConfigIsDropped(t *testing.T) {
	p, mocks := newTestPipeline(t)

	mocks.db.EXPECT().
		UpdateScanTimes("cfg-1", gomock.Any(), gomock.Nil()).
		Return(db.ErrNotFound)

	event := scanCompletedEvent(t, "cfg-1", "")
	require.NoError(t, p.handleEvent(context.Background(), event))
}

func TestHealthEventIsCached(t *testing.T) {
	p, mocks := newTestPipeline(t)

	event, err := models.NewHealthEvent("change-detector", bus.StatusHealthy, nil)
	require.NoError(t, err)

	mocks.kv.EXPECT().
		Set(gomock.Any(), "health:change-detector", gomock.Any(), componentHealthTTL).
		Return(nil)

	require.NoError(t, p.handleEvent(context.Background(), event))
}

func TestUnrelatedEventIsIgnored(t *testing.T) {
	p, _ := newTestPipeline(t)

	event := &models.Event{Type: models.EventChangeDetected}
	require.NoError(t, p.handleEvent(context.Background(), event))
}

func TestRetentionCleanupUsesDefault(t *testing.T) {
	p, mocks := newTestPipeline(t)

	mocks.db.EXPECT().CleanOldData(defaultRetention).Return(nil)

	p.cleanOldData()
}

func TestRetentionCleanupHonorsConfiguredPeriod(t *testing.T) {
	p, mocks := newTestPipeline(t)
	p.cfg.RetentionPeriod = config.Duration(30 * 24 * time.Hour)

	mocks.db.EXPECT().CleanOldData(30 * 24 * time.Hour).Return(nil)

	p.cleanOldData()
}
