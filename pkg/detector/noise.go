// Package detector pkg/detector/noise.go holds the noise heuristics that keep
// routine churn out of the change stream.
package detector

import "strings"

// Reliability factors per change category, multiplied into each change's
// confidence. Performance numbers wobble the most between scans, so they
// carry the lowest factor.
const (
	technologyConfidence     = 0.9
	performanceConfidence    = 0.7
	securityConfidence       = 0.8
	contentConfidence        = 1.0
	infrastructureConfidence = 1.0
)

const (
	// minReportableChangePercent is the floor below which a metric delta is
	// not a change at all, regardless of the per-config thresholds.
	minReportableChangePercent = 5.0

	// Content fields are only reported once they drift below these
	// similarity ratios.
	titleSimilarityThreshold = 0.8
	metaSimilarityThreshold  = 0.7
)

// noisyTechnologies appear, disappear and rev with tag manager rollouts;
// their changes are never reported. Matched as substrings so variants like
// "google-analytics-4" are covered.
var noisyTechnologies = []string{
	"google-analytics",
	"gtag",
	"googletagmanager",
	"facebook-pixel",
	"hotjar",
	"mixpanel",
}

// minorUpdateTechnologies auto-update so often that only their major version
// bumps are worth reporting. Substring matched like noisyTechnologies.
var minorUpdateTechnologies = []string{
	"google-analytics",
	"gtag",
	"facebook-pixel",
	"jquery",
	"bootstrap",
	"font-awesome",
}

// isNoisyTechnology reports whether a lowercased technology name matches the
// noisy set.
func isNoisyTechnology(name string) bool {
	return containsAnyToken(name, noisyTechnologies)
}

// autoUpdatesFrequently reports whether a lowercased technology name matches
// the auto-updating set.
func autoUpdatesFrequently(name string) bool {
	return containsAnyToken(name, minorUpdateTechnologies)
}

func containsAnyToken(name string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(name, token) {
			return true
		}
	}

	return false
}

// criticalSecurityHeaders are the headers whose removal is treated as a
// critical finding.
var criticalSecurityHeaders = map[string]bool{
	"strict-transport-security": true,
	"content-security-policy":   true,
	"x-frame-options":           true,
}
