// Package detector pkg/detector/thresholds.go loads per-config metric
// thresholds, cached in the shared key-value store.
package detector

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
)

// thresholdsTTL bounds how stale a cached threshold set can be.
const thresholdsTTL = time.Hour

// defaultThresholds is the percent change per metric past which a delta is
// flagged as exceeding its threshold. CLS and FID are jitterier, so they get
// more slack; lighthouse scores are stable, so they get less.
var defaultThresholds = map[string]float64{
	models.MetricLoadTime:        15,
	models.MetricTTFB:            20,
	models.MetricFCP:             20,
	models.MetricLCP:             20,
	models.MetricCLS:             25,
	models.MetricFID:             30,
	models.MetricLighthouseScore: 10,
}

func thresholdsKey(configID string) string {
	return "perf_thresholds:" + configID
}

// loadThresholds returns the config's metric thresholds, consulting the cache
// first. On a miss it merges the config's scan_config overrides over the
// defaults and seeds the cache with the result.
func loadThresholds(ctx context.Context, kv cache.KV, database db.Service, configID string) map[string]float64 {
	key := thresholdsKey(configID)

	raw, err := kv.Get(ctx, key)
	if err == nil {
		var thresholds map[string]float64
		if jsonErr := json.Unmarshal([]byte(raw), &thresholds); jsonErr == nil && len(thresholds) > 0 {
			return thresholds
		}

		log.Printf("Discarding malformed cached thresholds for %s", configID)
	} else if !errors.Is(err, cache.ErrNotFound) {
		log.Printf("Failed to read cached thresholds for %s: %v", configID, err)
		return configuredThresholds(database, configID)
	}

	thresholds := configuredThresholds(database, configID)

	encoded, err := json.Marshal(thresholds)
	if err == nil {
		if err := kv.Set(ctx, key, string(encoded), thresholdsTTL); err != nil {
			log.Printf("Failed to cache thresholds for %s: %v", configID, err)
		}
	}

	return thresholds
}

// configuredThresholds merges scan_config.performance_thresholds over the
// defaults. Unknown metric names and non-positive values are ignored.
func configuredThresholds(database db.Service, configID string) map[string]float64 {
	merged := make(map[string]float64, len(defaultThresholds))
	for metric, threshold := range defaultThresholds {
		merged[metric] = threshold
	}

	cfg, err := database.GetConfig(configID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("Failed to load config %s for thresholds: %v", configID, err)
		}

		return merged
	}

	if len(cfg.ScanConfig) == 0 {
		return merged
	}

	var sc struct {
		PerformanceThresholds map[string]float64 `json:"performance_thresholds"`
	}

	if err := json.Unmarshal(cfg.ScanConfig, &sc); err != nil {
		log.Printf("Malformed scan_config for %s: %v", configID, err)
		return merged
	}

	for metric, threshold := range sc.PerformanceThresholds {
		if _, known := merged[metric]; known && threshold > 0 {
			merged[metric] = threshold
		}
	}

	return merged
}

// severityFor grades a metric delta by how far past its threshold it landed.
// Improvements tier the same way as degradations.
func severityFor(changePercent, threshold float64) string {
	switch {
	case changePercent >= 2*threshold:
		return models.SeverityCritical
	case changePercent >= 1.5*threshold:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
