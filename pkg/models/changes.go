package models

// ChangeCategory discriminates the change union.
type ChangeCategory string

const (
	ChangeTechnology     ChangeCategory = "technology_change"
	ChangePerformance    ChangeCategory = "performance_change"
	ChangeSecurity       ChangeCategory = "security_change"
	ChangeContent        ChangeCategory = "content_change"
	ChangeInfrastructure ChangeCategory = "infrastructure_change"
)

// Technology change subtypes.
const (
	TechAdded          = "added"
	TechRemoved        = "removed"
	TechVersionChanged = "version_changed"
)

// Security change subtypes.
const (
	SecVulnerabilityAdded = "vulnerability_added"
	SecVulnerabilityFixed = "vulnerability_fixed"
	SecHeaderChanged      = "security_header_changed"
	SecCertificateChanged = "ssl_certificate_changed"
)

// Performance change subtypes beyond plain metric deltas.
const (
	PerfIssueAdded    = "issue_added"
	PerfIssueResolved = "issue_resolved"
)

// Severity and impact scales.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var impactLevels = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ImpactRank orders low < medium < high < critical; unknown values rank as
// medium, matching how unrecognized technologies are assessed.
func ImpactRank(level string) int {
	for i, l := range impactLevels {
		if l == level {
			return i
		}
	}

	return 1
}

// EscalateImpact raises an impact level by one step, capped at critical.
func EscalateImpact(level string) string {
	idx := ImpactRank(level) + 1
	if idx >= len(impactLevels) {
		idx = len(impactLevels) - 1
	}

	return impactLevels[idx]
}

// Change is one typed, confidence-scored difference between two consecutive
// snapshots of the same target. Type selects the variant; only that
// variant's fields are populated. Changes are immutable once created.
type Change struct {
	ID         string         `json:"id,omitempty"`
	Type       ChangeCategory `json:"type"`
	ChangeType string         `json:"change_type,omitempty"`
	Severity   string         `json:"severity,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`

	Description string `json:"description,omitempty"`

	// Technology variant.
	TechnologyName     string `json:"technology_name,omitempty"`
	TechnologyCategory string `json:"technology_category,omitempty"`
	OldVersion         string `json:"old_version,omitempty"`
	NewVersion         string `json:"new_version,omitempty"`
	ImpactAssessment   string `json:"impact_assessment,omitempty"`

	// Performance variant.
	MetricName        string  `json:"metric_name,omitempty"`
	MetricDisplayName string  `json:"metric_display_name,omitempty"`
	Unit              string  `json:"unit,omitempty"`
	OldValue          float64 `json:"old_value,omitempty"`
	NewValue          float64 `json:"new_value,omitempty"`
	ChangePercent     float64 `json:"change_percent,omitempty"`
	ThresholdExceeded bool    `json:"threshold_exceeded,omitempty"`
	IsDegradation     bool    `json:"is_degradation,omitempty"`
	Issue             string  `json:"issue,omitempty"`

	// Security variant.
	VulnerabilityType string   `json:"vulnerability_type,omitempty"`
	CVEIDs            []string `json:"cve_ids,omitempty"`
	RemediationAdvice string   `json:"remediation_advice,omitempty"`

	// Evidence captures the raw values that were compared, for audit.
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// Fields exposes the change as a flat field map for rule evaluation and
// expression substitution. Only populated fields appear.
func (c *Change) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"type":        string(c.Type),
		"change_type": c.ChangeType,
	}

	put := func(key, val string) {
		if val != "" {
			fields[key] = val
		}
	}

	put("severity", c.Severity)
	put("description", c.Description)
	put("technology_name", c.TechnologyName)
	put("technology_category", c.TechnologyCategory)
	put("old_version", c.OldVersion)
	put("new_version", c.NewVersion)
	put("impact_assessment", c.ImpactAssessment)
	put("metric_name", c.MetricName)
	put("vulnerability_type", c.VulnerabilityType)
	put("issue", c.Issue)

	if c.Confidence != 0 {
		fields["confidence"] = c.Confidence
	}

	if c.Type == ChangePerformance {
		fields["old_value"] = c.OldValue
		fields["new_value"] = c.NewValue
		fields["change_percent"] = c.ChangePercent
		fields["is_degradation"] = c.IsDegradation
	}

	return fields
}

// ChangeDetection is the result of comparing one scan pair.
type ChangeDetection struct {
	HasChanges bool
	Changes    []Change
	Confidence float64
	Evidence   map[string]interface{}
}
