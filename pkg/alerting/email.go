// Package alerting pkg/alerting/email.go delivers alerts over SMTP.
package alerting

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/models"
)

const defaultSMTPPort = 587

// emailSettings is an email channel's wire configuration. Fields left empty
// fall back to the alerter's SMTP defaults.
type emailSettings struct {
	SMTPHost     string   `json:"smtp_host,omitempty"`
	SMTPPort     int      `json:"smtp_port,omitempty"`
	SMTPUsername string   `json:"smtp_username,omitempty"`
	SMTPPassword string   `json:"smtp_password,omitempty"`
	UseTLS       bool     `json:"use_tls,omitempty"`
	FromAddress  string   `json:"from_address,omitempty"`
	Recipients   []string `json:"recipients"`
}

// EmailNotifier sends alert emails with a plain text body and an HTML
// alternative.
type EmailNotifier struct {
	defaults *config.SMTPDefaults

	// dial is swapped out in tests.
	dial func(host string, port int, username, password string, ssl bool, msg *gomail.Message) error
}

// NewEmailNotifier creates an email notifier. defaults may be nil.
func NewEmailNotifier(defaults *config.SMTPDefaults) *EmailNotifier {
	return &EmailNotifier{
		defaults: defaults,
		dial: func(host string, port int, username, password string, ssl bool, msg *gomail.Message) error {
			dialer := gomail.NewDialer(host, port, username, password)
			dialer.SSL = ssl

			return dialer.DialAndSend(msg)
		},
	}
}

func (n *EmailNotifier) Send(_ context.Context, alert *models.Alert, channel *models.ChannelConfig) error {
	settings, err := n.settings(channel)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", settings.FromAddress)
	msg.SetHeader("To", settings.Recipients...)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] %s", alert.Severity, alert.Title))
	msg.SetBody("text/plain", emailTextBody(alert))
	msg.AddAlternative("text/html", emailHTMLBody(alert))

	if err := n.dial(settings.SMTPHost, settings.SMTPPort,
		settings.SMTPUsername, settings.SMTPPassword, settings.UseTLS, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (n *EmailNotifier) settings(channel *models.ChannelConfig) (*emailSettings, error) {
	var settings emailSettings
	if len(channel.Settings) > 0 {
		if err := json.Unmarshal(channel.Settings, &settings); err != nil {
			return nil, fmt.Errorf("failed to decode email settings: %w", err)
		}
	}

	if n.defaults != nil {
		if settings.SMTPHost == "" {
			settings.SMTPHost = n.defaults.Host
		}

		if settings.SMTPPort == 0 {
			settings.SMTPPort = n.defaults.Port
		}

		if settings.SMTPUsername == "" {
			settings.SMTPUsername = n.defaults.Username
			settings.SMTPPassword = n.defaults.Password
		}

		if settings.FromAddress == "" {
			settings.FromAddress = n.defaults.FromAddress
		}

		if !settings.UseTLS {
			settings.UseTLS = n.defaults.UseTLS
		}
	}

	if settings.SMTPPort == 0 {
		settings.SMTPPort = defaultSMTPPort
	}

	if settings.SMTPHost == "" {
		return nil, errMissingSMTPHost
	}

	if len(settings.Recipients) == 0 {
		return nil, errMissingRecipients
	}

	return &settings, nil
}

func emailTextBody(alert *models.Alert) string {
	return fmt.Sprintf("%s\n\nSeverity: %s\nRule: %s\nTriggered: %s\n\n%s\n",
		alert.Title, alert.Severity, alert.RuleName,
		alert.TriggeredAt.Format("2006-01-02 15:04:05 MST"),
		alert.Description)
}

func emailHTMLBody(alert *models.Alert) string {
	return fmt.Sprintf(
		`<h2>%s</h2>
<p><b>Severity:</b> %s<br/>
<b>Rule:</b> %s<br/>
<b>Triggered:</b> %s</p>
<p>%s</p>`,
		alert.Title, alert.Severity, alert.RuleName,
		alert.TriggeredAt.Format("2006-01-02 15:04:05 MST"),
		alert.Description)
}
