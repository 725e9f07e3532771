package models

import "time"

// Alert is created once per (config, rule) outside its throttle window.
// After creation it is only ever annotated with notification outcomes.
type Alert struct {
	ID                   string          `json:"id"`
	ConfigID             string          `json:"config_id"`
	RuleName             string          `json:"rule_name"`
	AlertType            string          `json:"alert_type"`
	Severity             string          `json:"severity"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Details              Change          `json:"details"`
	ChangeReferenceID    string          `json:"change_reference_id,omitempty"`
	ChangeReferenceType  string          `json:"change_reference_type,omitempty"`
	NotificationChannels []ChannelConfig `json:"notification_channels,omitempty"`
	NotificationSent     bool            `json:"notification_sent"`
	TriggeredAt          time.Time       `json:"triggered_at"`
}

// Notification outcomes.
const (
	SendStatusSent   = "sent"
	SendStatusFailed = "failed"
)

// SendOutcome is what a notification channel reports for one dispatch.
type SendOutcome struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Sent reports whether the dispatch succeeded.
func (o SendOutcome) Sent() bool {
	return o.Status == SendStatusSent
}

// NotificationAttempt records one channel's dispatch for one alert.
type NotificationAttempt struct {
	ID          string    `json:"id"`
	AlertID     string    `json:"alert_id"`
	ChannelType string    `json:"channel_type"`
	ChannelName string    `json:"channel_name,omitempty"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}
