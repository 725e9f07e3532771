// Package detector pkg/detector/performance.go diffs performance metrics.
package detector

import (
	"fmt"
	"math"
	"sort"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// comparedMetrics fixes the comparison order so detection is deterministic.
var comparedMetrics = []string{
	models.MetricLoadTime,
	models.MetricTTFB,
	models.MetricFCP,
	models.MetricLCP,
	models.MetricCLS,
	models.MetricFID,
	models.MetricLighthouseScore,
}

var metricDisplayNames = map[string]string{
	models.MetricLoadTime:        "Load Time",
	models.MetricTTFB:            "Time to First Byte",
	models.MetricFCP:             "First Contentful Paint",
	models.MetricLCP:             "Largest Contentful Paint",
	models.MetricCLS:             "Cumulative Layout Shift",
	models.MetricFID:             "First Input Delay",
	models.MetricLighthouseScore: "Lighthouse Score",
}

var metricUnits = map[string]string{
	models.MetricLoadTime: "s",
	models.MetricTTFB:     "s",
	models.MetricFCP:      "s",
	models.MetricLCP:      "s",
	models.MetricFID:      "ms",
}

// comparePerformance diffs the fixed metric set plus the scanner's issue
// list. Metrics missing from either snapshot are skipped; a delta only
// becomes a change once it clears both the global reporting floor and the
// metric's own threshold.
func comparePerformance(prev, curr *models.PerformanceSummary, thresholds map[string]float64) []models.Change {
	var changes []models.Change

	for _, name := range comparedMetrics {
		oldVal, okOld := prev.Metric(name)
		newVal, okNew := curr.Metric(name)

		if !okOld || !okNew || oldVal == 0 {
			continue
		}

		changePercent := (newVal - oldVal) / math.Abs(oldVal) * 100

		threshold, hasThreshold := thresholds[name]
		if !hasThreshold {
			threshold = defaultThresholds[name]
		}

		absPercent := math.Abs(changePercent)
		if absPercent < minReportableChangePercent || absPercent < threshold {
			continue
		}

		// Lighthouse scores improve upward; everything else improves
		// downward.
		degradation := changePercent > 0
		if name == models.MetricLighthouseScore {
			degradation = changePercent < 0
		}

		severity := severityFor(absPercent, threshold)

		direction := "improved"
		if degradation {
			direction = "degraded"
		}

		changes = append(changes, models.Change{
			Type:              models.ChangePerformance,
			ChangeType:        "metric_changed",
			MetricName:        name,
			MetricDisplayName: metricDisplayNames[name],
			Unit:              metricUnits[name],
			OldValue:          oldVal,
			NewValue:          newVal,
			ChangePercent:     changePercent,
			ThresholdExceeded: true,
			IsDegradation:     degradation,
			Severity:          severity,
			Confidence:        performanceConfidence,
			Description: fmt.Sprintf("%s %s by %.1f%%",
				metricDisplayNames[name], direction, absPercent),
			Evidence: map[string]interface{}{
				"old_value": oldVal,
				"new_value": newVal,
				"threshold": threshold,
			},
		})
	}

	changes = append(changes, compareIssues(prev.Issues, curr.Issues)...)

	return changes
}

// compareIssues diffs the scanner's free-form performance issue lists.
func compareIssues(prev, curr []string) []models.Change {
	prevSet := make(map[string]bool, len(prev))
	for _, issue := range prev {
		prevSet[issue] = true
	}

	currSet := make(map[string]bool, len(curr))
	for _, issue := range curr {
		currSet[issue] = true
	}

	var changes []models.Change

	for _, issue := range sortedSet(currSet) {
		if prevSet[issue] {
			continue
		}

		changes = append(changes, models.Change{
			Type:          models.ChangePerformance,
			ChangeType:    models.PerfIssueAdded,
			Issue:         issue,
			Severity:      models.SeverityWarning,
			IsDegradation: true,
			Confidence:    performanceConfidence,
			Description:   fmt.Sprintf("Performance issue appeared: %s", issue),
		})
	}

	for _, issue := range sortedSet(prevSet) {
		if currSet[issue] {
			continue
		}

		changes = append(changes, models.Change{
			Type:        models.ChangePerformance,
			ChangeType:  models.PerfIssueResolved,
			Issue:       issue,
			Severity:    models.SeverityInfo,
			Confidence:  performanceConfidence,
			Description: fmt.Sprintf("Performance issue resolved: %s", issue),
		})
	}

	return changes
}

func sortedSet(set map[string]bool) []string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}

	sort.Strings(items)

	return items
}
