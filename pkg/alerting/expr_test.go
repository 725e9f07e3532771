package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/pkg/models"
)

func TestExpressionEvaluation(t *testing.T) {
	fields := map[string]interface{}{
		"type":            "performance_change",
		"severity":        "critical",
		"technology_name": "React",
		"change_percent":  25.0,
		"is_degradation":  true,
		"confidence":      0.7,
	}

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{"string equality", "$severity == 'critical'", true},
		{"string inequality", "$severity != 'low'", true},
		{"numeric comparison", "$change_percent > 20", true},
		{"numeric comparison false", "$change_percent >= 30", false},
		{"boolean literal", "$is_degradation == true", true},
		{"and", "$severity == 'critical' && $change_percent > 20", true},
		{"and short circuit", "$severity == 'low' && $change_percent > 20", false},
		{"or", "$severity == 'low' || $change_percent > 20", true},
		{"word operators", "$severity == 'critical' and not $change_percent < 10", true},
		{"parentheses", "($severity == 'low' || $severity == 'critical') && $is_degradation == true", true},
		{"negation", "!($severity == 'critical')", false},
		{"missing field comparisons are false", "$metric_name == 'load_time'", false},
		{"missing field under negation", "not $metric_name == 'load_time'", true},
		{"ordering on strings is false", "$severity > 'aaa'", false},
		{"float literals", "$confidence >= 0.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := parseExpression(tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.want, node.eval(fields))
		})
	}
}

func TestExpressionParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unterminated string", "$severity == 'critical"},
		{"missing operator", "$severity 'critical'"},
		{"unbalanced parens", "($severity == 'critical'"},
		{"trailing garbage", "$severity == 'critical' extra"},
		{"bare word operand", "$severity == critical"},
		{"stray symbol", "$severity == @"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExpression(tt.expression)
			require.Error(t, err)
		})
	}
}

func TestBrokenExpressionDisablesOnlyThatRule(t *testing.T) {
	rules := compileRules("cfg-1", []models.AlertRule{
		{
			Name:       "broken",
			Conditions: models.RuleConditions{Type: models.ConditionExpression, Expression: "((("},
		},
		{
			Name:       "valid",
			Conditions: models.RuleConditions{Type: models.ConditionExpression, Expression: "$severity == 'critical'"},
		},
	})

	require.Len(t, rules, 1)
	assert.Equal(t, "valid", rules[0].rule.Name)
}
