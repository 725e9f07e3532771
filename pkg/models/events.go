// Package models pkg/models/events.go defines the bus event envelope and
// the payloads exchanged between pipeline components.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bus topics. All events about one monitored target are published with the
// target's config id or URL as the partition key, so per-target order is
// preserved within each topic.
const (
	TopicScanScheduled  = "scan.scheduled"
	TopicScanCompleted  = "scan.completed"
	TopicChangeDetected = "change.detected"
	TopicAlertTriggered = "alert.triggered"
	TopicSystemHealth   = "system.health"
	TopicDeadLetter     = "dlq.failed-messages"
)

// Event types carried in the envelope.
const (
	EventScanScheduled  = "scan_scheduled"
	EventScanCompleted  = "scan_completed"
	EventChangeDetected = "change_detected"
	EventAlertTriggered = "alert_triggered"
	EventHealth         = "health_check"
	EventDeadLetter     = "dlq_message"
)

// Event is the envelope for every message on the bus.
type Event struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DecodeData unmarshals the event payload into dst.
func (e *Event) DecodeData(dst interface{}) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}

	return nil
}

// ScanScheduledPayload is produced by the scheduler for the external scanner.
type ScanScheduledPayload struct {
	ConfigID    string          `json:"config_id"`
	URL         string          `json:"url"`
	ScanConfig  json.RawMessage `json:"scan_config,omitempty"`
	ScheduledAt string          `json:"scheduled_at"`
}

// ScanCompletedPayload is consumed from the external scanner.
type ScanCompletedPayload struct {
	ConfigID      string       `json:"config_id"`
	ScanID        string       `json:"scan_id"`
	ResultSummary ScanSnapshot `json:"result_summary"`
	FullResultURL string       `json:"full_result_url,omitempty"`
	CompletedAt   string       `json:"completed_at,omitempty"`
}

// ChangeDetectedPayload carries one detected change.
type ChangeDetectedPayload struct {
	ConfigID   string `json:"config_id"`
	ChangeType string `json:"change_type"`
	Change     Change `json:"change_details"`
	DetectedAt string `json:"detected_at"`
}

// AlertTriggeredPayload announces a created alert; the alerter's
// notification consumer loads the full record from the store.
type AlertTriggeredPayload struct {
	AlertID     string `json:"alert_id"`
	ConfigID    string `json:"config_id"`
	AlertType   string `json:"alert_type"`
	Severity    string `json:"severity"`
	Details     Change `json:"details"`
	TriggeredAt string `json:"triggered_at"`
}

// HealthPayload is a component's periodic self-report.
type HealthPayload struct {
	Component string           `json:"component"`
	Status    string           `json:"status"`
	Metrics   map[string]int64 `json:"metrics,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// DeadLetterPayload wraps a message that could not be produced or consumed.
type DeadLetterPayload struct {
	OriginalMessage json.RawMessage `json:"original_message"`
	OriginalTopic   string          `json:"original_topic"`
	Error           string          `json:"error"`
	FailedAt        string          `json:"failed_at"`
}

// NowRFC3339 formats the current UTC time the way events carry timestamps.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func newEvent(eventType, source string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.NewString(),
		Timestamp: NowRFC3339(),
		Type:      eventType,
		Source:    source,
		Data:      data,
	}, nil
}

// NewScanScheduledEvent builds a scan.scheduled event.
func NewScanScheduledEvent(configID, url string, scanConfig json.RawMessage) (*Event, error) {
	return newEvent(EventScanScheduled, "scheduler", &ScanScheduledPayload{
		ConfigID:    configID,
		URL:         url,
		ScanConfig:  scanConfig,
		ScheduledAt: NowRFC3339(),
	})
}

// NewChangeDetectedEvent builds a change.detected event for one change.
func NewChangeDetectedEvent(configID string, change Change) (*Event, error) {
	return newEvent(EventChangeDetected, "change-detector", &ChangeDetectedPayload{
		ConfigID:   configID,
		ChangeType: string(change.Type),
		Change:     change,
		DetectedAt: NowRFC3339(),
	})
}

// NewAlertTriggeredEvent builds an alert.triggered event.
func NewAlertTriggeredEvent(alert *Alert) (*Event, error) {
	return newEvent(EventAlertTriggered, "alert-engine", &AlertTriggeredPayload{
		AlertID:     alert.ID,
		ConfigID:    alert.ConfigID,
		AlertType:   alert.AlertType,
		Severity:    alert.Severity,
		Details:     alert.Details,
		TriggeredAt: alert.TriggeredAt.UTC().Format(time.RFC3339),
	})
}

// NewDeadLetterEvent wraps a message that failed to process so it can be
// parked on the dead letter topic.
func NewDeadLetterEvent(source, originalTopic string, original json.RawMessage, cause error) (*Event, error) {
	return newEvent(EventDeadLetter, source, &DeadLetterPayload{
		OriginalMessage: original,
		OriginalTopic:   originalTopic,
		Error:           cause.Error(),
		FailedAt:        NowRFC3339(),
	})
}

// NewHealthEvent builds a system.health event for a component.
func NewHealthEvent(component, status string, metrics map[string]int64) (*Event, error) {
	return newEvent(EventHealth, component, &HealthPayload{
		Component: component,
		Status:    status,
		Metrics:   metrics,
		Timestamp: NowRFC3339(),
	})
}
