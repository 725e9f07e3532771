// Package db pkg/db/db.go provides SQLite storage for the monitoring pipeline.
package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// SQL statements for database initialization.
	createTablesSQL = `
	-- Monitored targets; the source of truth for the scheduler's job table
	CREATE TABLE IF NOT EXISTS monitoring_configs (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		schedule TEXT NOT NULL,
		scan_config TEXT,
		alert_rules TEXT,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		last_scan_at TIMESTAMP,
		next_scan_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Scan snapshots, one per completed scan
	CREATE TABLE IF NOT EXISTS scan_results (
		scan_id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		result_summary TEXT NOT NULL,
		full_result_url TEXT,
		scan_timestamp TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	-- Detected changes, one table per category
	CREATE TABLE IF NOT EXISTS technology_changes (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		scan_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		technology_name TEXT NOT NULL,
		old_version TEXT,
		new_version TEXT,
		impact_level TEXT,
		confidence REAL NOT NULL,
		details TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS performance_changes (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		scan_id TEXT NOT NULL,
		metric_name TEXT NOT NULL,
		old_value REAL,
		new_value REAL,
		change_percent REAL,
		severity TEXT,
		confidence REAL NOT NULL,
		details TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS security_changes (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		scan_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		severity TEXT,
		confidence REAL NOT NULL,
		details TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS content_changes (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		scan_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		severity TEXT,
		confidence REAL NOT NULL,
		details TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS infrastructure_changes (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		scan_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		severity TEXT,
		confidence REAL NOT NULL,
		details TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	-- Alerts and their notification attempts
	CREATE TABLE IF NOT EXISTS monitoring_alerts (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		details TEXT NOT NULL,
		change_reference_id TEXT,
		change_reference_type TEXT,
		notification_channels TEXT,
		notification_sent BOOLEAN NOT NULL DEFAULT 0,
		triggered_at TIMESTAMP NOT NULL,
		FOREIGN KEY (config_id) REFERENCES monitoring_configs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS alert_notifications (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL,
		channel_type TEXT NOT NULL,
		channel_name TEXT,
		status TEXT NOT NULL,
		detail TEXT,
		attempted_at TIMESTAMP NOT NULL,
		FOREIGN KEY (alert_id) REFERENCES monitoring_alerts(id) ON DELETE CASCADE
	);

	-- Indexes for better query performance
	CREATE INDEX IF NOT EXISTS idx_scan_results_config_time
		ON scan_results(config_id, scan_timestamp);
	CREATE INDEX IF NOT EXISTS idx_technology_changes_config_time
		ON technology_changes(config_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_performance_changes_config_time
		ON performance_changes(config_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_security_changes_config_time
		ON security_changes(config_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_content_changes_config_time
		ON content_changes(config_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_infrastructure_changes_config_time
		ON infrastructure_changes(config_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_monitoring_alerts_config_time
		ON monitoring_alerts(config_id, triggered_at);
	CREATE INDEX IF NOT EXISTS idx_alert_notifications_alert
		ON alert_notifications(alert_id);

	-- Enable WAL mode for better concurrent access
	PRAGMA journal_mode=WAL;
	PRAGMA foreign_keys=ON;
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

// New creates a new database connection and initializes the schema.
func New(dbPath string) (Service, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	_, err := db.Exec(createTablesSQL)

	return err
}

func rollbackOnError(tx *sql.Tx, err error) {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Error rolling back transaction: %v", rbErr)
		}
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}
