// Package bus pkg/bus/interfaces.go
package bus

import (
	"context"

	"github.com/driftwatch/driftwatch/pkg/models"
)

//go:generate mockgen -destination=mock_bus.go -package=bus github.com/driftwatch/driftwatch/pkg/bus Bus

// Handler processes one decoded event. A non-nil error parks the raw message
// on the dead letter topic; the original offset is committed either way.
type Handler func(ctx context.Context, event *models.Event) error

// Health is a point-in-time view of a bus client.
type Health struct {
	Status    string `json:"status"` // healthy, degraded or unhealthy
	Published uint64 `json:"messages_published"`
	Consumed  uint64 `json:"messages_consumed"`
	Errors    uint64 `json:"errors"`
}

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Bus publishes and consumes pipeline events.
type Bus interface {
	// Publish sends one event to topic. key selects the partition; events
	// about the same target use the same key so their order is preserved.
	Publish(ctx context.Context, topic string, event *models.Event, key string) error

	// Subscribe consumes topics as part of groupID, invoking handler per
	// event. It blocks until ctx is canceled or the consumer fails.
	Subscribe(ctx context.Context, groupID string, topics []string, handler Handler) error

	// Health reports the client's counters and derived status.
	Health() Health

	Close() error
}
