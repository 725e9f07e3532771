// Package alerting pkg/alerting/sms.go delivers alerts over twilio SMS.
package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/driftwatch/driftwatch/pkg/models"
)

const (
	// smsMaxLength keeps alerts inside a single SMS segment.
	smsMaxLength = 160
)

type smsSettings struct {
	AccountSID string   `json:"account_sid"`
	AuthToken  string   `json:"auth_token"`
	FromNumber string   `json:"from_number"`
	ToNumbers  []string `json:"to_numbers"`
}

// smsSender is the slice of the twilio client the notifier needs; tests
// substitute it.
type smsSender func(params *twilioapi.CreateMessageParams) error

// SMSNotifier sends alert texts through twilio.
type SMSNotifier struct {
	// newSender builds a sender per channel, since credentials live in the
	// channel settings.
	newSender func(accountSID, authToken string) smsSender
}

func NewSMSNotifier() *SMSNotifier {
	return &SMSNotifier{
		newSender: func(accountSID, authToken string) smsSender {
			client := twilio.NewRestClientWithParams(twilio.ClientParams{
				Username: accountSID,
				Password: authToken,
			})

			return func(params *twilioapi.CreateMessageParams) error {
				_, err := client.Api.CreateMessage(params)
				return err
			}
		},
	}
}

func (n *SMSNotifier) Send(_ context.Context, alert *models.Alert, channel *models.ChannelConfig) error {
	var settings smsSettings
	if err := json.Unmarshal(channel.Settings, &settings); err != nil {
		return fmt.Errorf("failed to decode sms settings: %w", err)
	}

	if settings.AccountSID == "" || settings.AuthToken == "" {
		return errMissingCredentials
	}

	if len(settings.ToNumbers) == 0 {
		return errMissingRecipients
	}

	send := n.newSender(settings.AccountSID, settings.AuthToken)
	body := smsBody(alert)

	var errs []error

	for _, to := range settings.ToNumbers {
		params := &twilioapi.CreateMessageParams{}
		params.SetFrom(settings.FromNumber)
		params.SetTo(to)
		params.SetBody(body)

		if err := send(params); err != nil {
			errs = append(errs, fmt.Errorf("failed to text %s: %w", to, err))
		}
	}

	return errors.Join(errs...)
}

// smsBody renders the alert as a single-segment text.
func smsBody(alert *models.Alert) string {
	body := fmt.Sprintf("[%s] %s: %s", alert.Severity, alert.Title, alert.Description)
	if len(body) > smsMaxLength {
		body = body[:smsMaxLength-3] + "..."
	}

	return body
}
