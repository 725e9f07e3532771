// Package db pkg/db/alerts.go stores alerts and notification attempts.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/driftwatch/driftwatch/pkg/models"
)

// CreateAlert inserts a new alert record.
func (db *DB) CreateAlert(alert *models.Alert) error {
	details, err := json.Marshal(alert.Details)
	if err != nil {
		return fmt.Errorf("%w: alert details: %w", ErrFailedToEncode, err)
	}

	channels, err := json.Marshal(alert.NotificationChannels)
	if err != nil {
		return fmt.Errorf("%w: notification channels: %w", ErrFailedToEncode, err)
	}

	const insertSQL = `
		INSERT INTO monitoring_alerts
			(id, config_id, rule_name, alert_type, severity, title, description,
			 details, change_reference_id, change_reference_type,
			 notification_channels, notification_sent, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(insertSQL,
		alert.ID,
		alert.ConfigID,
		alert.RuleName,
		alert.AlertType,
		alert.Severity,
		alert.Title,
		alert.Description,
		string(details),
		nullableString(alert.ChangeReferenceID),
		nullableString(alert.ChangeReferenceType),
		string(channels),
		alert.NotificationSent,
		alert.TriggeredAt)

	if err != nil {
		return fmt.Errorf("%w alert: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetAlert returns one alert by id, or ErrNotFound.
func (db *DB) GetAlert(id string) (*models.Alert, error) {
	const query = `
		SELECT id, config_id, rule_name, alert_type, severity, title, description,
			details, change_reference_id, change_reference_type,
			notification_channels, notification_sent, triggered_at
		FROM monitoring_alerts
		WHERE id = ?
	`

	var (
		alert       models.Alert
		description sql.NullString
		details     string
		refID       sql.NullString
		refType     sql.NullString
		channels    sql.NullString
	)

	err := db.QueryRow(query, id).Scan(
		&alert.ID,
		&alert.ConfigID,
		&alert.RuleName,
		&alert.AlertType,
		&alert.Severity,
		&alert.Title,
		&description,
		&details,
		&refID,
		&refType,
		&channels,
		&alert.NotificationSent,
		&alert.TriggeredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: alert %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("%w alert: %w", ErrFailedToScan, err)
	}

	alert.Description = description.String
	alert.ChangeReferenceID = refID.String
	alert.ChangeReferenceType = refType.String

	if err := json.Unmarshal([]byte(details), &alert.Details); err != nil {
		return nil, fmt.Errorf("%w: alert details: %w", ErrFailedToDecode, err)
	}

	if channels.Valid && channels.String != "" {
		if err := json.Unmarshal([]byte(channels.String), &alert.NotificationChannels); err != nil {
			return nil, fmt.Errorf("%w: notification channels: %w", ErrFailedToDecode, err)
		}
	}

	return &alert, nil
}

// MarkAlertNotified records the overall notification outcome for an alert.
// Partial success counts as sent.
func (db *DB) MarkAlertNotified(id string, sent bool) error {
	result, err := db.Exec(`
		UPDATE monitoring_alerts SET notification_sent = ? WHERE id = ?
	`, sent, id)
	if err != nil {
		return fmt.Errorf("%w alert notification status: %w", ErrFailedToUpdate, err)
	}

	return requireRow(result, "alert "+id)
}

// RecordNotification inserts one channel's dispatch outcome.
func (db *DB) RecordNotification(attempt *models.NotificationAttempt) error {
	const insertSQL = `
		INSERT INTO alert_notifications
			(id, alert_id, channel_type, channel_name, status, detail, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(insertSQL,
		attempt.ID,
		attempt.AlertID,
		attempt.ChannelType,
		nullableString(attempt.ChannelName),
		attempt.Status,
		nullableString(attempt.Detail),
		attempt.AttemptedAt)

	if err != nil {
		return fmt.Errorf("%w notification attempt: %w", ErrFailedToInsert, err)
	}

	return nil
}

// GetNotifications returns an alert's dispatch history, oldest first.
func (db *DB) GetNotifications(alertID string) ([]models.NotificationAttempt, error) {
	const query = `
		SELECT id, channel_type, channel_name, status, detail, attempted_at
		FROM alert_notifications
		WHERE alert_id = ?
		ORDER BY attempted_at
	`

	rows, err := db.Query(query, alertID) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w notification attempts: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var attempts []models.NotificationAttempt

	for rows.Next() {
		var (
			a           models.NotificationAttempt
			channelName sql.NullString
			detail      sql.NullString
		)

		a.AlertID = alertID

		if err := rows.Scan(&a.ID, &a.ChannelType, &channelName, &a.Status, &detail, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("%w notification row: %w", ErrFailedToScan, err)
		}

		a.ChannelName = channelName.String
		a.Detail = detail.String

		attempts = append(attempts, a)
	}

	return attempts, nil
}
