package models

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	errUnknownScheduleType = errors.New("unknown schedule type")
	errMissingExpression   = errors.New("cron schedule requires an expression")
	errInvalidInterval     = errors.New("interval schedule requires minutes > 0")
)

// Schedule describes when a config's target is scanned: either a cron
// expression with an optional IANA timezone, or a fixed interval.
type Schedule struct {
	Type       string `json:"type"` // "cron" or "interval"
	Expression string `json:"expression,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Minutes    int    `json:"minutes,omitempty"`
}

const (
	ScheduleCron     = "cron"
	ScheduleInterval = "interval"
)

// Validate checks the schedule is well formed.
func (s *Schedule) Validate() error {
	switch s.Type {
	case ScheduleCron:
		if s.Expression == "" {
			return errMissingExpression
		}
	case ScheduleInterval:
		if s.Minutes <= 0 {
			return errInvalidInterval
		}
	default:
		return errUnknownScheduleType
	}

	return nil
}

// MonitoringConfig is one monitored target. The relational store is the
// source of truth; the scheduler's in-memory job table is derived from it.
type MonitoringConfig struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Schedule       Schedule        `json:"schedule"`
	ScanConfig     json.RawMessage `json:"scan_config,omitempty"`
	AlertRules     []AlertRule     `json:"alert_rules,omitempty"`
	Enabled        bool            `json:"enabled"`
	LastScanAt     *time.Time      `json:"last_scan_at,omitempty"`
	NextScanAt     *time.Time      `json:"next_scan_at,omitempty"`
}

// AlertRule is immutable once loaded into a scan cycle; edits take effect on
// the next config reload.
type AlertRule struct {
	ID                   string          `json:"id,omitempty"`
	Name                 string          `json:"name"`
	Conditions           RuleConditions  `json:"conditions"`
	Severity             string          `json:"severity"`
	NotificationChannels []ChannelConfig `json:"notification_channels,omitempty"`
	Enabled              *bool           `json:"enabled,omitempty"`
	ThrottleMinutes      int             `json:"throttle_minutes,omitempty"`
}

// IsEnabled treats a missing enabled flag as enabled.
func (r *AlertRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ThrottleKey identifies the (config, rule) throttle mark. Rules authored
// without ids fall back to the rule name.
func (r *AlertRule) ThrottleKey() string {
	if r.ID != "" {
		return r.ID
	}

	return r.Name
}

// RuleConditions is a tagged variant: Type selects the dialect and which of
// the remaining fields apply.
type RuleConditions struct {
	Type string `json:"type"`

	// simple: exact or in-set match per named change field.
	Matches map[string]interface{} `json:"matches,omitempty"`

	// expression: boolean expression over $field references.
	Expression string `json:"expression,omitempty"`

	// technology
	Technologies []string `json:"technologies,omitempty"`
	ChangeTypes  []string `json:"change_types,omitempty"`
	MinImpact    string   `json:"min_impact,omitempty"`

	// performance
	Metrics          []string `json:"metrics,omitempty"`
	MinChangePercent float64  `json:"min_change_percent,omitempty"`
	DegradationOnly  bool     `json:"degradation_only,omitempty"`

	// security
	MinSeverity        string   `json:"min_severity,omitempty"`
	VulnerabilityTypes []string `json:"vulnerability_types,omitempty"`
}

// Rule condition dialects.
const (
	ConditionSimple      = "simple"
	ConditionExpression  = "expression"
	ConditionTechnology  = "technology"
	ConditionPerformance = "performance"
	ConditionSecurity    = "security"
)

// ChannelConfig carries a notification channel's type tag plus its
// type-specific settings as raw JSON; each sender decodes its own settings.
type ChannelConfig struct {
	Type     string          `json:"type"`
	Name     string          `json:"name,omitempty"`
	Settings json.RawMessage `json:"-"`
}

// Notification channel types.
const (
	ChannelEmail   = "email"
	ChannelSlack   = "slack"
	ChannelWebhook = "webhook"
	ChannelSMS     = "sms"
)

// UnmarshalJSON keeps the full channel object as Settings so senders can
// decode their own fields from the flat wire format.
func (c *ChannelConfig) UnmarshalJSON(data []byte) error {
	type alias struct {
		Type string `json:"type"`
		Name string `json:"name,omitempty"`
	}

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	c.Type = a.Type
	c.Name = a.Name
	c.Settings = append(json.RawMessage(nil), data...)

	return nil
}

// MarshalJSON writes back the original flat object when present.
func (c ChannelConfig) MarshalJSON() ([]byte, error) {
	if len(c.Settings) > 0 {
		return c.Settings, nil
	}

	type alias struct {
		Type string `json:"type"`
		Name string `json:"name,omitempty"`
	}

	return json.Marshal(alias{Type: c.Type, Name: c.Name})
}
