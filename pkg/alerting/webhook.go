// Package alerting pkg/alerting/webhook.go delivers alerts to generic HTTP
// endpoints.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/pkg/models"
)

type webhookAuth struct {
	Type     string `json:"type,omitempty"` // only "basic" is supported
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type webhookSettings struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Auth    *webhookAuth      `json:"auth,omitempty"`
}

// WebhookNotifier POSTs the full alert as JSON to a configured endpoint.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier() *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, alert *models.Alert, channel *models.ChannelConfig) error {
	var settings webhookSettings
	if err := json.Unmarshal(channel.Settings, &settings); err != nil {
		return fmt.Errorf("failed to decode webhook settings: %w", err)
	}

	if settings.URL == "" {
		return errMissingWebhookURL
	}

	method := strings.ToUpper(settings.Method)
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader

	if method != http.MethodGet {
		payload, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("failed to encode alert: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, settings.URL, body)
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for name, value := range settings.Headers {
		req.Header.Set(name, value)
	}

	if auth := settings.Auth; auth != nil && auth.Username != "" &&
		(auth.Type == "" || strings.EqualFold(auth.Type, "basic")) {
		req.SetBasicAuth(auth.Username, auth.Password)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned %d", errUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
