package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c := NewClient(&config.KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		ClientID: "driftwatch-test",
	})
	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

func TestHealthStatus(t *testing.T) {
	c := newTestClient(t)

	h := c.Health()
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Zero(t, h.Errors)

	for i := 0; i <= degradedErrorThreshold; i++ {
		c.errCount.Add(1)
	}

	h = c.Health()
	assert.Equal(t, StatusDegraded, h.Status)

	require.NoError(t, c.Close())
	assert.Equal(t, StatusUnhealthy, c.Health().Status)
}

func TestPublishAfterClose(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Close())

	event, err := models.NewHealthEvent("scheduler", "healthy", nil)
	require.NoError(t, err)

	err = c.Publish(context.Background(), models.TopicSystemHealth, event, "scheduler")
	require.ErrorIs(t, err, errClientClosed)
}

func TestSubscribeAfterClose(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Close())

	err := c.Subscribe(context.Background(), "driftwatch-test", []string{models.TopicScanCompleted},
		func(context.Context, *models.Event) error { return nil })
	require.ErrorIs(t, err, errClientClosed)
}

func TestCloseIdempotent(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestHandleMessage(t *testing.T) {
	event, err := models.NewHealthEvent("scheduler", "healthy", nil)
	require.NoError(t, err)

	value, err := json.Marshal(event)
	require.NoError(t, err)

	tests := []struct {
		name         string
		msg          kafka.Message
		handler      Handler
		wantConsumed uint64
		wantErrors   uint64
	}{
		{
			name: "valid event handled",
			msg:  kafka.Message{Topic: models.TopicSystemHealth, Value: value},
			handler: func(_ context.Context, e *models.Event) error {
				if e.Type != models.EventHealth {
					return errors.New("unexpected event type")
				}

				return nil
			},
			wantConsumed: 1,
		},
		{
			name:       "undecodable envelope",
			msg:        kafka.Message{Topic: models.TopicDeadLetter, Value: []byte("not json")},
			handler:    func(context.Context, *models.Event) error { return nil },
			wantErrors: 1,
		},
		{
			name: "handler failure",
			msg:  kafka.Message{Topic: models.TopicDeadLetter, Value: value},
			handler: func(context.Context, *models.Event) error {
				return errors.New("boom")
			},
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)

			msg := tt.msg
			c.handleMessage(context.Background(), "driftwatch-test", &msg, tt.handler)

			assert.Equal(t, tt.wantConsumed, c.consumed.Load())
			assert.Equal(t, tt.wantErrors, c.errCount.Load())
		})
	}
}
