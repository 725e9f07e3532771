// Package db pkg/db/changes.go stores detected changes, one table per
// category.
package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// changeTables maps a change category to its table.
var changeTables = map[models.ChangeCategory]string{
	models.ChangeTechnology:     "technology_changes",
	models.ChangePerformance:    "performance_changes",
	models.ChangeSecurity:       "security_changes",
	models.ChangeContent:        "content_changes",
	models.ChangeInfrastructure: "infrastructure_changes",
}

// StoreChange inserts one detected change into its category table. The full
// change is kept as JSON next to the queryable columns.
func (db *DB) StoreChange(configID, scanID string, change *models.Change) error {
	details, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("%w: change details: %w", ErrFailedToEncode, err)
	}

	now := time.Now().UTC()

	switch change.Type {
	case models.ChangeTechnology:
		_, err = db.Exec(`
			INSERT INTO technology_changes
				(id, config_id, scan_id, change_type, technology_name,
				 old_version, new_version, impact_level, confidence, details, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, change.ID, configID, scanID, change.ChangeType, change.TechnologyName,
			nullableString(change.OldVersion), nullableString(change.NewVersion),
			nullableString(change.ImpactAssessment), change.Confidence, string(details), now)
	case models.ChangePerformance:
		_, err = db.Exec(`
			INSERT INTO performance_changes
				(id, config_id, scan_id, metric_name, old_value, new_value,
				 change_percent, severity, confidence, details, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, change.ID, configID, scanID, change.MetricName, change.OldValue, change.NewValue,
			change.ChangePercent, nullableString(change.Severity), change.Confidence,
			string(details), now)
	case models.ChangeSecurity, models.ChangeContent, models.ChangeInfrastructure:
		table := changeTables[change.Type]
		_, err = db.Exec(`
			INSERT INTO `+table+`
				(id, config_id, scan_id, change_type, severity, confidence, details, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, change.ID, configID, scanID, change.ChangeType, nullableString(change.Severity),
			change.Confidence, string(details), now)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownChange, change.Type)
	}

	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFailedToInsert, change.Type, err)
	}

	return nil
}

// GetRecentChanges returns a config's latest changes across all categories,
// newest first.
func (db *DB) GetRecentChanges(configID string, limit int) ([]models.Change, error) {
	const query = `
		SELECT details, detected_at FROM technology_changes WHERE config_id = ?
		UNION ALL
		SELECT details, detected_at FROM performance_changes WHERE config_id = ?
		UNION ALL
		SELECT details, detected_at FROM security_changes WHERE config_id = ?
		UNION ALL
		SELECT details, detected_at FROM content_changes WHERE config_id = ?
		UNION ALL
		SELECT details, detected_at FROM infrastructure_changes WHERE config_id = ?
		ORDER BY detected_at DESC
		LIMIT ?
	`

	rows, err := db.Query(query, //nolint:rowserrcheck // rows.Close() is deferred
		configID, configID, configID, configID, configID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w recent changes: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var changes []models.Change

	for rows.Next() {
		var (
			details    string
			detectedAt time.Time
		)

		if err := rows.Scan(&details, &detectedAt); err != nil {
			return nil, fmt.Errorf("%w change row: %w", ErrFailedToScan, err)
		}

		var change models.Change
		if err := json.Unmarshal([]byte(details), &change); err != nil {
			return nil, fmt.Errorf("%w: change details: %w", ErrFailedToDecode, err)
		}

		changes = append(changes, change)
	}

	return changes, nil
}
