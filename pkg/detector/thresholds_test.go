package detector

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
)

func TestLoadThresholdsCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	kv := cache.NewMockKV(ctrl)
	database := db.NewMockService(ctrl)

	cached := map[string]float64{models.MetricLoadTime: 42}
	encoded, err := json.Marshal(cached)
	require.NoError(t, err)

	kv.EXPECT().Get(gomock.Any(), "perf_thresholds:cfg-1").Return(string(encoded), nil)

	got := loadThresholds(context.Background(), kv, database, "cfg-1")
	assert.Equal(t, cached, got)
}

func TestLoadThresholdsMergesScanConfigOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	kv := cache.NewMockKV(ctrl)
	database := db.NewMockService(ctrl)

	scanConfig := json.RawMessage(`{
		"performance_thresholds": {
			"load_time": 30,
			"ttfb": -5,
			"made_up_metric": 99
		}
	}`)

	kv.EXPECT().Get(gomock.Any(), "perf_thresholds:cfg-1").Return("", cache.ErrNotFound)
	database.EXPECT().GetConfig("cfg-1").
		Return(&models.MonitoringConfig{ID: "cfg-1", ScanConfig: scanConfig}, nil)

	var seeded string

	kv.EXPECT().Set(gomock.Any(), "perf_thresholds:cfg-1", gomock.Any(), thresholdsTTL).
		DoAndReturn(func(_ context.Context, _, value string, _ time.Duration) error {
			seeded = value
			return nil
		})

	got := loadThresholds(context.Background(), kv, database, "cfg-1")

	assert.InDelta(t, 30, got[models.MetricLoadTime], 0.001)
	// Non-positive and unknown entries fall back to defaults.
	assert.InDelta(t, defaultThresholds[models.MetricTTFB], got[models.MetricTTFB], 0.001)
	assert.NotContains(t, got, "made_up_metric")

	var cached map[string]float64
	require.NoError(t, json.Unmarshal([]byte(seeded), &cached))
	assert.InDelta(t, 30, cached[models.MetricLoadTime], 0.001)
}

func TestLoadThresholdsCacheUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	kv := cache.NewMockKV(ctrl)
	database := db.NewMockService(ctrl)

	kv.EXPECT().Get(gomock.Any(), "perf_thresholds:cfg-1").Return("", assert.AnError)
	database.EXPECT().GetConfig("cfg-1").Return(nil, db.ErrNotFound)

	got := loadThresholds(context.Background(), kv, database, "cfg-1")
	assert.Equal(t, defaultThresholds, got)
}
