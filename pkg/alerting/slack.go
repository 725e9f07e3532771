// Package alerting pkg/alerting/slack.go delivers alerts to slack incoming
// webhooks.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/driftwatch/driftwatch/pkg/models"
)

type slackSettings struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
	Icon       string `json:"icon,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

// severityColors maps alert severities to slack attachment colors.
var severityColors = map[string]string{
	models.SeverityInfo:     "#439FE0",
	models.SeverityLow:      "good",
	models.SeverityWarning:  "warning",
	models.SeverityMedium:   "warning",
	models.SeverityHigh:     "danger",
	models.SeverityCritical: "danger",
}

// SlackNotifier posts alerts to a slack incoming webhook.
type SlackNotifier struct {
	client *http.Client
}

func NewSlackNotifier() *SlackNotifier {
	return &SlackNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SlackNotifier) Send(ctx context.Context, alert *models.Alert, channel *models.ChannelConfig) error {
	var settings slackSettings
	if err := json.Unmarshal(channel.Settings, &settings); err != nil {
		return fmt.Errorf("failed to decode slack settings: %w", err)
	}

	if settings.WebhookURL == "" {
		return errMissingWebhookURL
	}

	color, ok := severityColors[alert.Severity]
	if !ok {
		color = "warning"
	}

	message := slackMessage{
		Channel:   settings.Channel,
		Username:  settings.Username,
		IconEmoji: settings.Icon,
		Attachments: []slackAttachment{{
			Color: color,
			Title: alert.Title,
			Text:  alert.Description,
			Fields: []slackField{
				{Title: "Severity", Value: alert.Severity, Short: true},
				{Title: "Rule", Value: alert.RuleName, Short: true},
			},
			Ts: alert.TriggeredAt.Unix(),
		}},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, settings.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to slack: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: slack returned %d", errUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
