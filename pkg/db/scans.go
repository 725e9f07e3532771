// Package db pkg/db/scans.go stores scan snapshots.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// StoreScanResult inserts one completed scan's snapshot. The bus delivers
// at-least-once, so a redelivered scan id is a no-op rather than a conflict.
func (db *DB) StoreScanResult(result *ScanResult) error {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("%w: result summary: %w", ErrFailedToEncode, err)
	}

	const insertSQL = `
		INSERT INTO scan_results
			(scan_id, config_id, result_summary, full_result_url, scan_timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scan_id) DO NOTHING
	`

	_, err = db.Exec(insertSQL,
		result.ScanID,
		result.ConfigID,
		string(summary),
		nullableString(result.FullResultURL),
		result.ScanTimestamp)

	if err != nil {
		return fmt.Errorf("%w scan result: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetScanResult returns one scan by id, or ErrNotFound.
func (db *DB) GetScanResult(scanID string) (*ScanResult, error) {
	const query = `
		SELECT scan_id, config_id, result_summary, full_result_url, scan_timestamp
		FROM scan_results
		WHERE scan_id = ?
	`

	return db.scanResult(db.QueryRow(query, scanID), "scan "+scanID)
}

// GetPreviousScan returns the latest scan of configID excluding excludeScanID.
// The exclusion keeps the comparison baseline stable even when the current
// scan was persisted before the lookup.
func (db *DB) GetPreviousScan(configID, excludeScanID string) (*ScanResult, error) {
	const query = `
		SELECT scan_id, config_id, result_summary, full_result_url, scan_timestamp
		FROM scan_results
		WHERE config_id = ? AND scan_id != ?
		ORDER BY scan_timestamp DESC
		LIMIT 1
	`

	return db.scanResult(db.QueryRow(query, configID, excludeScanID), "previous scan for "+configID)
}

func (*DB) scanResult(row *sql.Row, what string) (*ScanResult, error) {
	var (
		result  ScanResult
		summary string
		fullURL sql.NullString
	)

	err := row.Scan(
		&result.ScanID,
		&result.ConfigID,
		&summary,
		&fullURL,
		&result.ScanTimestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, what)
		}

		return nil, fmt.Errorf("%w scan result: %w", ErrFailedToScan, err)
	}

	if err := json.Unmarshal([]byte(summary), &result.Summary); err != nil {
		return nil, fmt.Errorf("%w: result summary: %w", ErrFailedToDecode, err)
	}

	if fullURL.Valid {
		result.FullResultURL = fullURL.String
	}

	return &result, nil
}
