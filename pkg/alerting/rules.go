// Package alerting pkg/alerting/rules.go evaluates alert rules against
// detected changes.
package alerting

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// severityRanks orders every severity the pipeline emits. Unknown values
// rank as medium.
var severityRanks = map[string]int{
	models.SeverityInfo:     0,
	models.SeverityLow:      1,
	models.SeverityWarning:  2,
	models.SeverityMedium:   2,
	models.SeverityHigh:     3,
	models.SeverityCritical: 4,
}

func severityRank(severity string) int {
	if rank, ok := severityRanks[severity]; ok {
		return rank
	}

	return severityRanks[models.SeverityMedium]
}

// compiledRule is an alert rule ready to evaluate. Expression rules carry
// their parsed tree; the other dialects evaluate structurally.
type compiledRule struct {
	rule models.AlertRule
	expr exprNode
}

// compileRules prepares a config's rules for evaluation. A rule that fails to
// compile is disabled with a log line; the rest of the rules still run.
func compileRules(configID string, rules []models.AlertRule) []compiledRule {
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		if !rule.IsEnabled() {
			continue
		}

		c := compiledRule{rule: rule}

		if rule.Conditions.Type == models.ConditionExpression {
			node, err := parseExpression(rule.Conditions.Expression)
			if err != nil {
				log.Printf("Disabling rule %q on %s: %v", rule.Name, configID, err)
				continue
			}

			c.expr = node
		}

		compiled = append(compiled, c)
	}

	return compiled
}

// Matches reports whether the rule fires for the change.
func (c *compiledRule) Matches(change *models.Change) (bool, error) {
	conditions := &c.rule.Conditions

	switch conditions.Type {
	case models.ConditionSimple:
		return matchSimple(conditions, change), nil
	case models.ConditionExpression:
		return c.expr.eval(change.Fields()), nil
	case models.ConditionTechnology:
		return matchTechnology(conditions, change), nil
	case models.ConditionPerformance:
		return matchPerformance(conditions, change), nil
	case models.ConditionSecurity:
		return matchSecurity(conditions, change), nil
	default:
		return false, fmt.Errorf("%w: %q", errUnknownRuleDialect, conditions.Type)
	}
}

// matchSimple requires every named field to equal its expected value, where
// a list value means any-of.
func matchSimple(conditions *models.RuleConditions, change *models.Change) bool {
	fields := change.Fields()

	for name, expected := range conditions.Matches {
		actual, ok := fields[name]
		if !ok {
			return false
		}

		if list, isList := expected.([]interface{}); isList {
			if !containsValue(list, actual) {
				return false
			}

			continue
		}

		if !valuesEqual(expected, actual) {
			return false
		}
	}

	return true
}

func matchTechnology(conditions *models.RuleConditions, change *models.Change) bool {
	if change.Type != models.ChangeTechnology {
		return false
	}

	if len(conditions.Technologies) > 0 &&
		!matchesTechnologyName(conditions.Technologies, change.TechnologyName) {
		return false
	}

	if len(conditions.ChangeTypes) > 0 && !containsString(conditions.ChangeTypes, change.ChangeType) {
		return false
	}

	if conditions.MinImpact != "" &&
		models.ImpactRank(change.ImpactAssessment) < models.ImpactRank(conditions.MinImpact) {
		return false
	}

	return true
}

func matchPerformance(conditions *models.RuleConditions, change *models.Change) bool {
	if change.Type != models.ChangePerformance {
		return false
	}

	if len(conditions.Metrics) > 0 && !containsString(conditions.Metrics, change.MetricName) {
		return false
	}

	if conditions.MinChangePercent > 0 &&
		math.Abs(change.ChangePercent) < conditions.MinChangePercent {
		return false
	}

	if conditions.DegradationOnly && !change.IsDegradation {
		return false
	}

	return true
}

func matchSecurity(conditions *models.RuleConditions, change *models.Change) bool {
	if change.Type != models.ChangeSecurity {
		return false
	}

	if conditions.MinSeverity != "" &&
		severityRank(change.Severity) < severityRank(conditions.MinSeverity) {
		return false
	}

	if len(conditions.VulnerabilityTypes) > 0 &&
		!containsFold(conditions.VulnerabilityTypes, change.VulnerabilityType) {
		return false
	}

	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}

// matchesTechnologyName matches a rule's listed technologies as substrings of
// the change's technology name, so "react" covers "react-dom".
func matchesTechnologyName(patterns []string, name string) bool {
	name = strings.ToLower(name)

	for _, pattern := range patterns {
		if strings.Contains(name, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}

	return false
}

func containsValue(list []interface{}, actual interface{}) bool {
	for _, candidate := range list {
		if valuesEqual(candidate, actual) {
			return true
		}
	}

	return false
}

// valuesEqual compares a rule's JSON-decoded expectation with a change field,
// numerically when both sides are numbers.
func valuesEqual(expected, actual interface{}) bool {
	if en, ok := toNumber(expected); ok {
		if an, ok := toNumber(actual); ok {
			return en == an
		}
	}

	return fmt.Sprint(expected) == fmt.Sprint(actual)
}
