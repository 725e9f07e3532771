// Package alerting pkg/alerting/interfaces.go
package alerting

import (
	"context"

	"github.com/driftwatch/driftwatch/pkg/models"
)

//go:generate mockgen -destination=mock_alerting.go -package=alerting github.com/driftwatch/driftwatch/pkg/alerting Notifier

// Notifier delivers one alert over one configured channel. Implementations
// decode their own settings from channel.Settings.
type Notifier interface {
	Send(ctx context.Context, alert *models.Alert, channel *models.ChannelConfig) error
}
