// Package cache pkg/cache/interfaces.go
package cache

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mock_cache.go -package=cache github.com/driftwatch/driftwatch/pkg/cache KV

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("key not found")

// KV is the shared expiring key-value store used for rate limit marks,
// alert throttle marks, health reports and cached thresholds.
type KV interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A zero ttl stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	Delete(ctx context.Context, key string) error

	Close() error
}
