package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"

	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/models"
)

func channelConfig(t *testing.T, settings map[string]interface{}) *models.ChannelConfig {
	t.Helper()

	raw, err := json.Marshal(settings)
	require.NoError(t, err)

	var channel models.ChannelConfig
	require.NoError(t, json.Unmarshal(raw, &channel))

	return &channel
}

func sampleAlert() *models.Alert {
	return &models.Alert{
		ID:          "alert-1",
		ConfigID:    "cfg-1",
		RuleName:    "tech changes",
		AlertType:   string(models.ChangeTechnology),
		Severity:    models.SeverityCritical,
		Title:       "Technology updated: React",
		Description: "Technology updated: React 17.0.2 to 18.2.0",
		TriggeredAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotifier(t *testing.T) {
	var received slackMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := channelConfig(t, map[string]interface{}{
		"type":        models.ChannelSlack,
		"name":        "ops",
		"webhook_url": server.URL,
		"channel":     "#alerts",
	})

	require.NoError(t, NewSlackNotifier().Send(context.Background(), sampleAlert(), channel))

	assert.Equal(t, "#alerts", received.Channel)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "danger", received.Attachments[0].Color)
	assert.Equal(t, "Technology updated: React", received.Attachments[0].Title)
}

func TestSlackNotifierRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	channel := channelConfig(t, map[string]interface{}{
		"type":        models.ChannelSlack,
		"webhook_url": server.URL,
	})

	err := NewSlackNotifier().Send(context.Background(), sampleAlert(), channel)
	require.ErrorIs(t, err, errUnexpectedStatus)
}

func TestSlackNotifierRequiresURL(t *testing.T) {
	channel := channelConfig(t, map[string]interface{}{"type": models.ChannelSlack})

	err := NewSlackNotifier().Send(context.Background(), sampleAlert(), channel)
	require.ErrorIs(t, err, errMissingWebhookURL)
}

func TestWebhookNotifier(t *testing.T) {
	var (
		gotMethod string
		gotAuth   string
		gotAlert  models.Alert
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotAlert))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	channel := channelConfig(t, map[string]interface{}{
		"type": models.ChannelWebhook,
		"url":  server.URL,
		"auth": map[string]string{
			"type":     "basic",
			"username": "svc",
			"password": "secret",
		},
	})

	require.NoError(t, NewWebhookNotifier().Send(context.Background(), sampleAlert(), channel))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.True(t, strings.HasPrefix(gotAuth, "Basic "))
	assert.Equal(t, "alert-1", gotAlert.ID)
}

func TestWebhookNotifierGetSendsNoBody(t *testing.T) {
	var gotLength int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := channelConfig(t, map[string]interface{}{
		"type":   models.ChannelWebhook,
		"url":    server.URL,
		"method": "get",
	})

	require.NoError(t, NewWebhookNotifier().Send(context.Background(), sampleAlert(), channel))
	assert.LessOrEqual(t, gotLength, int64(0))
}

func TestEmailNotifierMergesDefaults(t *testing.T) {
	notifier := NewEmailNotifier(&config.SMTPDefaults{
		Host:        "smtp.example.com",
		Port:        2525,
		Username:    "mailer",
		Password:    "secret",
		FromAddress: "alerts@example.com",
	})

	var (
		gotHost string
		gotPort int
		gotMsg  *gomail.Message
	)

	notifier.dial = func(host string, port int, username, _ string, _ bool, msg *gomail.Message) error {
		gotHost = host
		gotPort = port
		gotMsg = msg

		assert.Equal(t, "mailer", username)

		return nil
	}

	channel := channelConfig(t, map[string]interface{}{
		"type":       models.ChannelEmail,
		"recipients": []string{"oncall@example.com"},
	})

	require.NoError(t, notifier.Send(context.Background(), sampleAlert(), channel))

	assert.Equal(t, "smtp.example.com", gotHost)
	assert.Equal(t, 2525, gotPort)
	require.NotNil(t, gotMsg)
	assert.Equal(t, []string{"[critical] Technology updated: React"}, gotMsg.GetHeader("Subject"))
}

func TestEmailNotifierValidation(t *testing.T) {
	notifier := NewEmailNotifier(nil)
	notifier.dial = func(string, int, string, string, bool, *gomail.Message) error {
		return nil
	}

	noHost := channelConfig(t, map[string]interface{}{
		"type":       models.ChannelEmail,
		"recipients": []string{"oncall@example.com"},
	})
	require.ErrorIs(t, notifier.Send(context.Background(), sampleAlert(), noHost), errMissingSMTPHost)

	noRecipients := channelConfig(t, map[string]interface{}{
		"type":      models.ChannelEmail,
		"smtp_host": "smtp.example.com",
	})
	require.ErrorIs(t, notifier.Send(context.Background(), sampleAlert(), noRecipients), errMissingRecipients)
}

func TestSMSNotifier(t *testing.T) {
	notifier := NewSMSNotifier()

	var sent []twilioapi.CreateMessageParams

	notifier.newSender = func(accountSID, authToken string) smsSender {
		assert.Equal(t, "AC123", accountSID)
		assert.Equal(t, "token", authToken)

		return func(params *twilioapi.CreateMessageParams) error {
			sent = append(sent, *params)
			return nil
		}
	}

	channel := channelConfig(t, map[string]interface{}{
		"type":        models.ChannelSMS,
		"account_sid": "AC123",
		"auth_token":  "token",
		"from_number": "+15550100",
		"to_numbers":  []string{"+15550101", "+15550102"},
	})

	require.NoError(t, notifier.Send(context.Background(), sampleAlert(), channel))
	require.Len(t, sent, 2)
	assert.Equal(t, "+15550101", *sent[0].To)
	assert.Equal(t, "+15550100", *sent[0].From)
}

func TestSMSNotifierReportsFailures(t *testing.T) {
	notifier := NewSMSNotifier()
	notifier.newSender = func(string, string) smsSender {
		return func(*twilioapi.CreateMessageParams) error {
			return errors.New("rejected")
		}
	}

	channel := channelConfig(t, map[string]interface{}{
		"type":        models.ChannelSMS,
		"account_sid": "AC123",
		"auth_token":  "token",
		"from_number": "+15550100",
		"to_numbers":  []string{"+15550101"},
	})

	require.Error(t, notifier.Send(context.Background(), sampleAlert(), channel))
}

func TestSMSBodyTruncation(t *testing.T) {
	alert := sampleAlert()
	alert.Description = strings.Repeat("x", 300)

	body := smsBody(alert)
	assert.Len(t, body, smsMaxLength)
	assert.True(t, strings.HasSuffix(body, "..."))

	short := sampleAlert()
	assert.Equal(t,
		fmt.Sprintf("[%s] %s: %s", short.Severity, short.Title, short.Description),
		smsBody(short))
}
