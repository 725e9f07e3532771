package alerting

import (
	"context"
	"errors"
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
)

type engineMocks struct {
	db  *db.MockService
	bus *bus.MockBus
	kv  *cache.MockKV
}

func newTestEngine(t *testing.T) (*Engine, *engineMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mocks := &engineMocks{
		db:  db.NewMockService(ctrl),
		bus: bus.NewMockBus(ctrl),
		kv:  cache.NewMockKV(ctrl),
	}

	engine := NewEngine(mocks.db, mocks.bus, mocks.kv, &config.AlerterConfig{})

	return engine, mocks
}

func changeDetectedEvent(t *testing.T, configID string, change models.Change) *models.Event {
	t.Helper()

	event, err := models.NewChangeDetectedEvent(configID, change)
	require.NoError(t, err)

	return event
}

func techChange() models.Change {
	return models.Change{
		ID:               "chg-1",
		Type:             models.ChangeTechnology,
		ChangeType:       models.TechVersionChanged,
		TechnologyName:   "React",
		OldVersion:       "17.0.2",
		NewVersion:       "18.2.0",
		ImpactAssessment: models.SeverityCritical,
		Severity:         models.SeverityCritical,
		Description:      "Technology updated: React 17.0.2 to 18.2.0",
	}
}

func monitoredConfig(rules ...models.AlertRule) *models.MonitoringConfig {
	return &models.MonitoringConfig{
		ID:         "cfg-1",
		Name:       "Example",
		URL:        "https://example.com",
		AlertRules: rules,
		Enabled:    true,
	}
}

func TestMatchingChangeCreatesAlert(t *testing.T) {
	engine, mocks := newTestEngine(t)

	rule := models.AlertRule{
		ID:              "rule-1",
		Name:            "tech changes",
		Severity:        models.SeverityHigh,
		ThrottleMinutes: 30,
		Conditions:      models.RuleConditions{Type: models.ConditionTechnology},
		NotificationChannels: []models.ChannelConfig{
			{Type: models.ChannelSlack, Name: "ops"},
		},
	}

	mocks.db.EXPECT().GetConfig("cfg-1").Return(monitoredConfig(rule), nil)
	mocks.kv.EXPECT().Exists(gomock.Any(), "alert_throttle:cfg-1:rule-1").Return(false, nil)

	var created *models.Alert

	mocks.db.EXPECT().CreateAlert(gomock.Any()).DoAndReturn(func(alert *models.Alert) error {
		created = alert
		return nil
	})
	mocks.kv.EXPECT().Set(gomock.Any(), "alert_throttle:cfg-1:rule-1", gomock.Any(), 30*time.Minute).Return(nil)
	mocks.bus.EXPECT().Publish(gomock.Any(), models.TopicAlertTriggered, gomock.Any(), "cfg-1").Return(nil)

	event := changeDetectedEvent(t, "cfg-1", techChange())
	require.NoError(t, engine.handleEvent(context.Background(), event))

	require.NotNil(t, created)
	assert.Equal(t, "tech changes", created.RuleName)
	assert.Equal(t, models.SeverityHigh, created.Severity)
	assert.Equal(t, "Technology updated: React", created.Title)
	assert.Equal(t, "chg-1", created.ChangeReferenceID)
	assert.Len(t, created.NotificationChannels, 1)
	assert.False(t, created.NotificationSent)
}

func TestThrottledRuleCreatesNoAlert(t *testing.T) {
	engine, mocks := newTestEngine(t)

	rule := models.AlertRule{
		Name:       "tech changes",
		Severity:   models.SeverityHigh,
		Conditions: models.RuleConditions{Type: models.ConditionTechnology},
	}

	mocks.db.EXPECT().GetConfig("cfg-1").Return(monitoredConfig(rule), nil)
	// Rules without ids throttle on their name.
	mocks.kv.EXPECT().Exists(gomock.Any(), "alert_throttle:cfg-1:tech changes").Return(true, nil)

	event := changeDetectedEvent(t, "cfg-1", techChange())
	require.NoError(t, engine.handleEvent(context.Background(), event))
}

func TestNonMatchingChangeCreatesNoAlert(t *testing.T) {
	engine, mocks := newTestEngine(t)

	rule := models.AlertRule{
		Name:       "security only",
		Conditions: models.RuleConditions{Type: models.ConditionSecurity},
	}

	mocks.db.EXPECT().GetConfig("cfg-1").Return(monitoredConfig(rule), nil)

	event := changeDetectedEvent(t, "cfg-1", techChange())
	require.NoError(t, engine.handleEvent(context.Background(), event))
}

func TestChangeForDeletedConfigIsDropped(t *testing.T) {
	engine, mocks := newTestEngine(t)

	mocks.db.EXPECT().GetConfig("cfg-1").Return(nil, db.ErrNotFound)

	event := changeDetectedEvent(t, "cfg-1", techChange())
	require.NoError(t, engine.handleEvent(context.Background(), event))
}

func storedAlert(channels ...models.ChannelConfig) *models.Alert {
	return &models.Alert{
		ID:                   "alert-1",
		ConfigID:             "cfg-1",
		RuleName:             "tech changes",
		AlertType:            string(models.ChangeTechnology),
		Severity:             models.SeverityHigh,
		Title:                "Technology updated: React",
		Details:              techChange(),
		NotificationChannels: channels,
		TriggeredAt:          time.Now().UTC(),
	}
}

func alertTriggeredEvent(t *testing.T, alert *models.Alert) *models.Event {
	t.Helper()

	event, err := models.NewAlertTriggeredEvent(alert)
	require.NoError(t, err)

	return event
}

func TestPartialNotificationFailureStillCountsAsSent(t *testing.T) {
	engine, mocks := newTestEngine(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	working := NewMockNotifier(ctrl)
	broken := NewMockNotifier(ctrl)
	engine.notifiers = map[string]Notifier{
		models.ChannelSlack:   working,
		models.ChannelWebhook: broken,
	}

	alert := storedAlert(
		models.ChannelConfig{Type: models.ChannelSlack, Name: "ops"},
		models.ChannelConfig{Type: models.ChannelWebhook, Name: "ci"},
	)

	mocks.db.EXPECT().GetAlert("alert-1").Return(alert, nil)
	working.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	broken.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	var statuses []string

	mocks.db.EXPECT().RecordNotification(gomock.Any()).Times(2).
		DoAndReturn(func(attempt *models.NotificationAttempt) error {
			statuses = append(statuses, attempt.Status)
			return nil
		})
	mocks.db.EXPECT().MarkAlertNotified("alert-1", true).Return(nil)

	require.NoError(t, engine.handleEvent(context.Background(), alertTriggeredEvent(t, alert)))

	assert.ElementsMatch(t, []string{models.SendStatusSent, models.SendStatusFailed}, statuses)
}

func TestAllNotificationsFailing(t *testing.T) {
	engine, mocks := newTestEngine(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	broken := NewMockNotifier(ctrl)
	engine.notifiers = map[string]Notifier{models.ChannelSlack: broken}

	alert := storedAlert(models.ChannelConfig{Type: models.ChannelSlack, Name: "ops"})

	mocks.db.EXPECT().GetAlert("alert-1").Return(alert, nil)
	broken.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("boom"))
	mocks.db.EXPECT().RecordNotification(gomock.Any()).Return(nil)
	mocks.db.EXPECT().MarkAlertNotified("alert-1", false).Return(nil)

	require.NoError(t, engine.handleEvent(context.Background(), alertTriggeredEvent(t, alert)))
}

func TestUnknownChannelTypeIsRecordedAsFailed(t *testing.T) {
	engine, mocks := newTestEngine(t)

	alert := storedAlert(models.ChannelConfig{Type: "pager", Name: "oncall"})

	mocks.db.EXPECT().GetAlert("alert-1").Return(alert, nil)
	mocks.db.EXPECT().RecordNotification(gomock.Any()).
		DoAndReturn(func(attempt *models.NotificationAttempt) error {
			assert.Equal(t, models.SendStatusFailed, attempt.Status)
			assert.Contains(t, attempt.Detail, "unknown notification channel type")
			return nil
		})
	mocks.db.EXPECT().MarkAlertNotified("alert-1", false).Return(nil)

	require.NoError(t, engine.handleEvent(context.Background(), alertTriggeredEvent(t, alert)))
}

func TestAlertWithoutChannels(t *testing.T) {
	engine, mocks := newTestEngine(t)

	alert := storedAlert()
	mocks.db.EXPECT().GetAlert("alert-1").Return(alert, nil)

	require.NoError(t, engine.handleEvent(context.Background(), alertTriggeredEvent(t, alert)))
}

func TestUnrelatedEventsAreIgnored(t *testing.T) {
	engine, _ := newTestEngine(t)

	event := &models.Event{Type: models.EventScanScheduled}
	require.NoError(t, engine.handleEvent(context.Background(), event))
}
