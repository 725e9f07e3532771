// Package db pkg/db/configs.go stores monitoring configs.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/pkg/models"
)

const configColumns = `
	id, organization_id, name, url, schedule, scan_config, alert_rules,
	enabled, last_scan_at, next_scan_at`

// CreateConfig inserts a new monitoring config.
func (db *DB) CreateConfig(cfg *models.MonitoringConfig) error {
	schedule, rules, err := encodeConfig(cfg)
	if err != nil {
		return err
	}

	const insertSQL = `
		INSERT INTO monitoring_configs
			(id, organization_id, name, url, schedule, scan_config, alert_rules,
			 enabled, last_scan_at, next_scan_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(insertSQL,
		cfg.ID,
		cfg.OrganizationID,
		cfg.Name,
		cfg.URL,
		schedule,
		nullableString(string(cfg.ScanConfig)),
		rules,
		cfg.Enabled,
		cfg.LastScanAt,
		cfg.NextScanAt)

	if err != nil {
		return fmt.Errorf("%w monitoring config: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetConfig returns one config by id, or ErrNotFound.
func (db *DB) GetConfig(id string) (*models.MonitoringConfig, error) {
	row := db.QueryRow(`SELECT `+configColumns+` FROM monitoring_configs WHERE id = ?`, id)

	cfg, err := scanConfig(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: monitoring config %s", ErrNotFound, id)
		}

		return nil, err
	}

	return cfg, nil
}

// ListConfigs returns all configs.
func (db *DB) ListConfigs() ([]models.MonitoringConfig, error) {
	return db.listConfigs(`SELECT ` + configColumns + ` FROM monitoring_configs ORDER BY name`)
}

// ListEnabledConfigs returns the configs the scheduler should run.
func (db *DB) ListEnabledConfigs() ([]models.MonitoringConfig, error) {
	return db.listConfigs(`SELECT ` + configColumns + ` FROM monitoring_configs WHERE enabled = 1 ORDER BY name`)
}

func (db *DB) listConfigs(query string) ([]models.MonitoringConfig, error) {
	rows, err := db.Query(query) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w monitoring configs: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var configs []models.MonitoringConfig

	for rows.Next() {
		cfg, err := scanConfig(rows.Scan)
		if err != nil {
			return nil, err
		}

		configs = append(configs, *cfg)
	}

	return configs, nil
}

// UpdateConfig replaces a config's mutable fields.
func (db *DB) UpdateConfig(cfg *models.MonitoringConfig) error {
	schedule, rules, err := encodeConfig(cfg)
	if err != nil {
		return err
	}

	const updateSQL = `
		UPDATE monitoring_configs
		SET organization_id = ?, name = ?, url = ?, schedule = ?,
			scan_config = ?, alert_rules = ?, enabled = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := db.Exec(updateSQL,
		cfg.OrganizationID,
		cfg.Name,
		cfg.URL,
		schedule,
		nullableString(string(cfg.ScanConfig)),
		rules,
		cfg.Enabled,
		cfg.ID)
	if err != nil {
		return fmt.Errorf("%w monitoring config: %w", ErrFailedToUpdate, err)
	}

	return requireRow(result, "monitoring config "+cfg.ID)
}

// DeleteConfig removes a config and, via cascade, its scans, changes
// and alerts.
func (db *DB) DeleteConfig(id string) error {
	result, err := db.Exec(`DELETE FROM monitoring_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitoring config: %w", err)
	}

	return requireRow(result, "monitoring config "+id)
}

// UpdateScanTimes records when a config was last scanned and when its next
// scan is due. A nil time keeps the stored value, so the trigger path and the
// completion path can each update their own column.
func (db *DB) UpdateScanTimes(id string, lastScanAt, nextScanAt *time.Time) error {
	result, err := db.Exec(`
		UPDATE monitoring_configs
		SET last_scan_at = COALESCE(?, last_scan_at),
		    next_scan_at = COALESCE(?, next_scan_at),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, lastScanAt, nextScanAt, id)
	if err != nil {
		return fmt.Errorf("%w scan times: %w", ErrFailedToUpdate, err)
	}

	return requireRow(result, "monitoring config "+id)
}

func encodeConfig(cfg *models.MonitoringConfig) (schedule, rules string, err error) {
	scheduleBytes, err := json.Marshal(cfg.Schedule)
	if err != nil {
		return "", "", fmt.Errorf("%w: schedule: %w", ErrFailedToEncode, err)
	}

	rulesBytes, err := json.Marshal(cfg.AlertRules)
	if err != nil {
		return "", "", fmt.Errorf("%w: alert rules: %w", ErrFailedToEncode, err)
	}

	return string(scheduleBytes), string(rulesBytes), nil
}

func scanConfig(scan func(dest ...interface{}) error) (*models.MonitoringConfig, error) {
	var (
		cfg        models.MonitoringConfig
		schedule   string
		scanConfig sql.NullString
		rules      sql.NullString
		lastScanAt sql.NullTime
		nextScanAt sql.NullTime
	)

	err := scan(
		&cfg.ID,
		&cfg.OrganizationID,
		&cfg.Name,
		&cfg.URL,
		&schedule,
		&scanConfig,
		&rules,
		&cfg.Enabled,
		&lastScanAt,
		&nextScanAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("%w monitoring config: %w", ErrFailedToScan, err)
	}

	if err := json.Unmarshal([]byte(schedule), &cfg.Schedule); err != nil {
		return nil, fmt.Errorf("%w: schedule: %w", ErrFailedToDecode, err)
	}

	if rules.Valid && rules.String != "" {
		if err := json.Unmarshal([]byte(rules.String), &cfg.AlertRules); err != nil {
			return nil, fmt.Errorf("%w: alert rules: %w", ErrFailedToDecode, err)
		}
	}

	if scanConfig.Valid {
		cfg.ScanConfig = json.RawMessage(scanConfig.String)
	}

	if lastScanAt.Valid {
		t := lastScanAt.Time
		cfg.LastScanAt = &t
	}

	if nextScanAt.Valid {
		t := nextScanAt.Time
		cfg.NextScanAt = &t
	}

	return &cfg, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}

func requireRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}

	return nil
}
