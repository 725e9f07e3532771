package detector

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
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
)

func scanCompletedEvent(t *testing.T, configID, scanID string, summary models.ScanSnapshot) *models.Event {
	t.Helper()

	event := &models.Event{
		ID:        "evt-1",
		Timestamp: models.NowRFC3339(),
		Type:      models.EventScanCompleted,
		Source:    "scanner",
	}

	payload := models.ScanCompletedPayload{
		ConfigID:      configID,
		ScanID:        scanID,
		ResultSummary: summary,
		CompletedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	event.Data = data

	return event
}

func TestFirstScanStoresBaselineOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	database := db.NewMockService(ctrl)
	eventBus := bus.NewMockBus(ctrl)
	kv := cache.NewMockKV(ctrl)

	database.EXPECT().StoreScanResult(gomock.Any()).DoAndReturn(func(result *db.ScanResult) error {
		assert.Equal(t, "scan-1", result.ScanID)
		assert.Equal(t, "cfg-1", result.ConfigID)
		return nil
	})
	database.EXPECT().GetPreviousScan("cfg-1", "scan-1").Return(nil, db.ErrNotFound)

	engine := NewEngine(database, eventBus, kv, nil)

	event := scanCompletedEvent(t, "cfg-1", "scan-1", models.ScanSnapshot{})
	require.NoError(t, engine.handleScanCompleted(context.Background(), event))
}

func TestScanWithChangesPublishesPerChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	database := db.NewMockService(ctrl)
	eventBus := bus.NewMockBus(ctrl)
	kv := cache.NewMockKV(ctrl)

	previous := &db.ScanResult{
		ScanID:   "scan-1",
		ConfigID: "cfg-1",
		Summary: models.ScanSnapshot{
			Technologies: models.TechnologySummary{
				Detected: []models.DetectedTechnology{{Name: "React", Version: "17.0.2"}},
			},
		},
	}

	current := models.ScanSnapshot{
		Technologies: models.TechnologySummary{
			Detected: []models.DetectedTechnology{
				{Name: "React", Version: "18.2.0"},
				{Name: "nginx", Version: "1.25.0"},
			},
		},
	}

	database.EXPECT().StoreScanResult(gomock.Any()).Return(nil)
	database.EXPECT().GetPreviousScan("cfg-1", "scan-2").Return(previous, nil)

	kv.EXPECT().Get(gomock.Any(), "perf_thresholds:cfg-1").Return("", cache.ErrNotFound)
	database.EXPECT().GetConfig("cfg-1").Return(&models.MonitoringConfig{ID: "cfg-1"}, nil)
	kv.EXPECT().Set(gomock.Any(), "perf_thresholds:cfg-1", gomock.Any(), thresholdsTTL).Return(nil)

	var stored []models.Change

	database.EXPECT().StoreChange("cfg-1", "scan-2", gomock.Any()).Times(2).
		DoAndReturn(func(_, _ string, change *models.Change) error {
			assert.NotEmpty(t, change.ID)
			stored = append(stored, *change)
			return nil
		})

	eventBus.EXPECT().Publish(gomock.Any(), models.TopicChangeDetected, gomock.Any(), "cfg-1").
		Times(2).Return(nil)

	engine := NewEngine(database, eventBus, kv, nil)

	event := scanCompletedEvent(t, "cfg-1", "scan-2", current)
	require.NoError(t, engine.handleScanCompleted(context.Background(), event))

	require.Len(t, stored, 2)
	assert.Equal(t, models.TechAdded, stored[0].ChangeType)
	assert.Equal(t, "nginx", stored[0].TechnologyName)
	assert.Equal(t, models.TechVersionChanged, stored[1].ChangeType)
	assert.Equal(t, "React", stored[1].TechnologyName)

	// Every change carries the joint scan-pair evidence.
	assert.Equal(t, "scan-1", stored[0].Evidence["previous_scan_id"])
	assert.Equal(t, "scan-2", stored[0].Evidence["current_scan_id"])
	assert.Equal(t, "scan-2", stored[1].Evidence["current_scan_id"])
}

func TestUnrelatedEventTypeIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewEngine(db.NewMockService(ctrl), bus.NewMockBus(ctrl), cache.NewMockKV(ctrl), nil)

	event := &models.Event{Type: models.EventHealth}
	require.NoError(t, engine.handleScanCompleted(context.Background(), event))
}
