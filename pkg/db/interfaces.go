// Package db pkg/db/interfaces.go
package db

import (
	"time"

	"github.com/driftwatch/driftwatch/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/driftwatch/driftwatch/pkg/db Service

// ScanResult is one stored snapshot of a monitored target.
type ScanResult struct {
	ScanID        string              `json:"scan_id"`
	ConfigID      string              `json:"config_id"`
	Summary       models.ScanSnapshot `json:"result_summary"`
	FullResultURL string              `json:"full_result_url,omitempty"`
	ScanTimestamp time.Time           `json:"scan_timestamp"`
}

// Service represents all database operations.
type Service interface {
	// Monitoring config operations.

	CreateConfig(cfg *models.MonitoringConfig) error
	GetConfig(id string) (*models.MonitoringConfig, error)
	ListConfigs() ([]models.MonitoringConfig, error)
	ListEnabledConfigs() ([]models.MonitoringConfig, error)
	UpdateConfig(cfg *models.MonitoringConfig) error
	DeleteConfig(id string) error
	UpdateScanTimes(id string, lastScanAt, nextScanAt *time.Time) error

	// Scan result operations.

	StoreScanResult(result *ScanResult) error
	GetScanResult(scanID string) (*ScanResult, error)
	// GetPreviousScan returns the most recent scan of configID other than
	// excludeScanID, or ErrNotFound on the first scan of a target.
	GetPreviousScan(configID, excludeScanID string) (*ScanResult, error)

	// Change operations.

	StoreChange(configID, scanID string, change *models.Change) error
	GetRecentChanges(configID string, limit int) ([]models.Change, error)

	// Alert operations.

	CreateAlert(alert *models.Alert) error
	GetAlert(id string) (*models.Alert, error)
	MarkAlertNotified(id string, sent bool) error
	RecordNotification(attempt *models.NotificationAttempt) error
	GetNotifications(alertID string) ([]models.NotificationAttempt, error)

	// Maintenance operations.

	CleanOldData(retentionPeriod time.Duration) error

	Close() error
}
