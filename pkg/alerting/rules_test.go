package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/pkg/models"
)

func matchOne(t *testing.T, rule models.AlertRule, change *models.Change) bool {
	t.Helper()

	compiled := compileRules("cfg-1", []models.AlertRule{rule})
	require.Len(t, compiled, 1)

	matched, err := compiled[0].Matches(change)
	require.NoError(t, err)

	return matched
}

func TestSimpleRuleMatching(t *testing.T) {
	change := &models.Change{
		Type:           models.ChangeTechnology,
		ChangeType:     models.TechAdded,
		TechnologyName: "nginx",
		Severity:       models.SeverityCritical,
	}

	tests := []struct {
		name    string
		matches map[string]interface{}
		want    bool
	}{
		{"exact match", map[string]interface{}{"change_type": "added"}, true},
		{"exact mismatch", map[string]interface{}{"change_type": "removed"}, false},
		{"in-set match", map[string]interface{}{"change_type": []interface{}{"added", "removed"}}, true},
		{"in-set mismatch", map[string]interface{}{"change_type": []interface{}{"version_changed"}}, false},
		{"all fields must match", map[string]interface{}{"change_type": "added", "severity": "low"}, false},
		{"missing field never matches", map[string]interface{}{"metric_name": "load_time"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.AlertRule{
				Name:       "simple",
				Conditions: models.RuleConditions{Type: models.ConditionSimple, Matches: tt.matches},
			}
			assert.Equal(t, tt.want, matchOne(t, rule, change))
		})
	}
}

func TestTechnologyRuleMatching(t *testing.T) {
	change := &models.Change{
		Type:             models.ChangeTechnology,
		ChangeType:       models.TechVersionChanged,
		TechnologyName:   "React",
		ImpactAssessment: models.SeverityHigh,
	}

	tests := []struct {
		name       string
		conditions models.RuleConditions
		want       bool
	}{
		{
			"any technology change",
			models.RuleConditions{Type: models.ConditionTechnology},
			true,
		},
		{
			"technology filter matches case insensitively",
			models.RuleConditions{Type: models.ConditionTechnology, Technologies: []string{"react"}},
			true,
		},
		{
			"technology filter excludes",
			models.RuleConditions{Type: models.ConditionTechnology, Technologies: []string{"vue"}},
			false,
		},
		{
			"technology filter matches name substrings",
			models.RuleConditions{Type: models.ConditionTechnology, Technologies: []string{"act"}},
			true,
		},
		{
			"change type filter",
			models.RuleConditions{Type: models.ConditionTechnology, ChangeTypes: []string{models.TechAdded}},
			false,
		},
		{
			"min impact met",
			models.RuleConditions{Type: models.ConditionTechnology, MinImpact: models.SeverityMedium},
			true,
		},
		{
			"min impact not met",
			models.RuleConditions{Type: models.ConditionTechnology, MinImpact: models.SeverityCritical},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.AlertRule{Name: "tech", Conditions: tt.conditions}
			assert.Equal(t, tt.want, matchOne(t, rule, change))
		})
	}

	t.Run("wrong category", func(t *testing.T) {
		rule := models.AlertRule{
			Name:       "tech",
			Conditions: models.RuleConditions{Type: models.ConditionTechnology},
		}
		assert.False(t, matchOne(t, rule, &models.Change{Type: models.ChangeContent}))
	})
}

func TestTechnologyRuleMatchesRelatedPackages(t *testing.T) {
	rule := models.AlertRule{
		Name: "react stack",
		Conditions: models.RuleConditions{
			Type:         models.ConditionTechnology,
			Technologies: []string{"react"},
		},
	}

	change := &models.Change{
		Type:           models.ChangeTechnology,
		ChangeType:     models.TechVersionChanged,
		TechnologyName: "react-dom",
	}

	assert.True(t, matchOne(t, rule, change))
}

func TestPerformanceRuleMatching(t *testing.T) {
	degradation := &models.Change{
		Type:          models.ChangePerformance,
		MetricName:    models.MetricLoadTime,
		ChangePercent: 25,
		IsDegradation: true,
	}
	improvement := &models.Change{
		Type:          models.ChangePerformance,
		MetricName:    models.MetricLoadTime,
		ChangePercent: -25,
	}

	rule := models.AlertRule{
		Name: "perf",
		Conditions: models.RuleConditions{
			Type:             models.ConditionPerformance,
			Metrics:          []string{models.MetricLoadTime},
			MinChangePercent: 20,
			DegradationOnly:  true,
		},
	}

	assert.True(t, matchOne(t, rule, degradation))
	assert.False(t, matchOne(t, rule, improvement))

	rule.Conditions.DegradationOnly = false
	assert.True(t, matchOne(t, rule, improvement))

	rule.Conditions.MinChangePercent = 30
	assert.False(t, matchOne(t, rule, improvement))

	rule.Conditions = models.RuleConditions{
		Type:    models.ConditionPerformance,
		Metrics: []string{models.MetricTTFB},
	}
	assert.False(t, matchOne(t, rule, degradation))
}

func TestSecurityRuleMatching(t *testing.T) {
	change := &models.Change{
		Type:              models.ChangeSecurity,
		ChangeType:        models.SecVulnerabilityAdded,
		VulnerabilityType: "xss",
		Severity:          models.SeverityHigh,
	}

	rule := models.AlertRule{
		Name: "sec",
		Conditions: models.RuleConditions{
			Type:        models.ConditionSecurity,
			MinSeverity: models.SeverityMedium,
		},
	}
	assert.True(t, matchOne(t, rule, change))

	rule.Conditions.MinSeverity = models.SeverityCritical
	assert.False(t, matchOne(t, rule, change))

	rule.Conditions = models.RuleConditions{
		Type:               models.ConditionSecurity,
		VulnerabilityTypes: []string{"sqli"},
	}
	assert.False(t, matchOne(t, rule, change))

	rule.Conditions.VulnerabilityTypes = []string{"XSS"}
	assert.True(t, matchOne(t, rule, change))
}

func TestUnknownDialectErrors(t *testing.T) {
	compiled := compileRules("cfg-1", []models.AlertRule{
		{Name: "odd", Conditions: models.RuleConditions{Type: "bogus"}},
	})
	require.Len(t, compiled, 1)

	_, err := compiled[0].Matches(&models.Change{Type: models.ChangeTechnology})
	require.ErrorIs(t, err, errUnknownRuleDialect)
}

func TestDisabledRulesAreSkipped(t *testing.T) {
	disabled := false
	compiled := compileRules("cfg-1", []models.AlertRule{
		{Name: "off", Enabled: &disabled, Conditions: models.RuleConditions{Type: models.ConditionSimple}},
		{Name: "on", Conditions: models.RuleConditions{Type: models.ConditionSimple}},
	})

	require.Len(t, compiled, 1)
	assert.Equal(t, "on", compiled[0].rule.Name)
}
