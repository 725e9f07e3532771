// Package bus pkg/bus/client.go implements the Kafka-backed event bus client.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/models"
)

const (
	// degradedErrorThreshold flips Health to degraded once crossed.
	degradedErrorThreshold = 10

	maxPublishAttempts = 3
	readerMinBytes     = 1
	readerMaxBytes     = 10 * 1024 * 1024
)

// Client is a Kafka-backed Bus. One Client serves a whole process: a single
// writer shared by all publishers plus one reader per Subscribe call.
type Client struct {
	brokers  []string
	clientID string
	writer   *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
	closed  bool

	published atomic.Uint64
	consumed  atomic.Uint64
	errCount  atomic.Uint64
}

// NewClient creates a bus client for the given brokers. Writes are hashed by
// key so per-target order holds, and are acknowledged by all replicas.
func NewClient(cfg *config.KafkaConfig) *Client {
	return &Client{
		brokers:  cfg.Brokers,
		clientID: cfg.ClientID,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  maxPublishAttempts,
		},
	}
}

// Publish sends one event to topic using key as the partition key.
func (c *Client) Publish(ctx context.Context, topic string, event *models.Event, key string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return errClientClosed
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", errEncodeEvent, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		c.errCount.Add(1)
		return fmt.Errorf("%w: topic %s: %w", errPublishFailed, topic, err)
	}

	c.published.Add(1)

	return nil
}

// Subscribe consumes topics as groupID until ctx is canceled. Offsets are
// committed after handling, so a crash between handling and commit replays
// the message rather than losing it.
func (c *Client) Subscribe(ctx context.Context, groupID string, topics []string, handler Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClientClosed
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    readerMinBytes,
		MaxBytes:    readerMaxBytes,
	})
	c.readers = append(c.readers, reader)
	c.mu.Unlock()

	log.Printf("Consuming topics %v as group %s", topics, groupID)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, kafka.ErrGroupClosed) {
				return nil
			}

			c.errCount.Add(1)

			return fmt.Errorf("failed to fetch message from %v: %w", topics, err)
		}

		c.handleMessage(ctx, groupID, &msg, handler)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			c.errCount.Add(1)

			log.Printf("Failed to commit offset on %s: %v", msg.Topic, err)
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, groupID string, msg *kafka.Message, handler Handler) {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.errCount.Add(1)
		c.deadLetter(ctx, groupID, msg, fmt.Errorf("%w: %w", errDecodeEvent, err))

		return
	}

	if err := handler(ctx, &event); err != nil {
		c.errCount.Add(1)
		c.deadLetter(ctx, groupID, msg, fmt.Errorf("%w: %w", ErrHandlerFailure, err))

		return
	}

	c.consumed.Add(1)
}

// deadLetter parks a failed message on the dead letter topic. Failures on the
// dead letter topic itself are only logged to avoid republishing loops.
func (c *Client) deadLetter(ctx context.Context, groupID string, msg *kafka.Message, cause error) {
	log.Printf("Dead lettering message from %s: %v", msg.Topic, cause)

	if msg.Topic == models.TopicDeadLetter {
		return
	}

	event, err := models.NewDeadLetterEvent(groupID, msg.Topic, msg.Value, cause)
	if err != nil {
		log.Printf("Failed to build dead letter event: %v", err)
		return
	}

	if err := c.Publish(ctx, models.TopicDeadLetter, event, string(msg.Key)); err != nil {
		log.Printf("Failed to publish dead letter event: %v", err)
	}
}

// Health derives the client status from its counters.
func (c *Client) Health() Health {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	h := Health{
		Status:    StatusHealthy,
		Published: c.published.Load(),
		Consumed:  c.consumed.Load(),
		Errors:    c.errCount.Load(),
	}

	switch {
	case closed:
		h.Status = StatusUnhealthy
	case h.Errors > degradedErrorThreshold:
		h.Status = StatusDegraded
	}

	return h
}

// Close stops the writer and all readers. Blocked Subscribe loops return
// once their reader is closed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	var errs []error

	if err := c.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close writer: %w", err))
	}

	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close reader: %w", err))
		}
	}

	return errors.Join(errs...)
}
