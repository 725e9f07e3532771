// Package db pkg/db/clean.go removes data past the retention period.
package db

import (
	"fmt"
	"log"
	"time"
)

// CleanOldData removes scans, changes and alerts older than the retention
// period. Monitoring configs are never cleaned.
func (db *DB) CleanOldData(retentionPeriod time.Duration) error {
	cutoff := time.Now().Add(-retentionPeriod)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("failed to rollback: %v", rbErr)
			}

			return
		}

		err = tx.Commit()
	}()

	statements := []struct {
		what string
		sql  string
	}{
		{"scan results", "DELETE FROM scan_results WHERE scan_timestamp < ?"},
		{"technology changes", "DELETE FROM technology_changes WHERE detected_at < ?"},
		{"performance changes", "DELETE FROM performance_changes WHERE detected_at < ?"},
		{"security changes", "DELETE FROM security_changes WHERE detected_at < ?"},
		{"content changes", "DELETE FROM content_changes WHERE detected_at < ?"},
		{"infrastructure changes", "DELETE FROM infrastructure_changes WHERE detected_at < ?"},
		{"alerts", "DELETE FROM monitoring_alerts WHERE triggered_at < ?"},
	}

	for _, stmt := range statements {
		if _, err = tx.Exec(stmt.sql, cutoff); err != nil {
			return fmt.Errorf("%w %s: %w", ErrFailedToClean, stmt.what, err)
		}
	}

	return nil
}
