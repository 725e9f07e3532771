// Package ratelimit enforces the per-domain scan spacing.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/driftwatch/driftwatch/pkg/cache"
)

// DefaultInterval is the minimum spacing between scans of the same domain.
const DefaultInterval = 5 * time.Minute

var errNoHost = errors.New("url has no host")

// Limiter tracks the last scan mark per domain in the shared cache, so the
// limit holds across scheduler restarts and replicas.
type Limiter struct {
	kv       cache.KV
	interval time.Duration
}

// NewLimiter creates a limiter. A non-positive interval falls back to
// DefaultInterval.
func NewLimiter(kv cache.KV, interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Limiter{kv: kv, interval: interval}
}

// Interval returns the configured spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Allowed reports whether rawURL's domain is outside its rate window. Cache
// errors fail open: a scan too many beats a pipeline stalled on the cache.
func (l *Limiter) Allowed(ctx context.Context, rawURL string) (bool, error) {
	key, err := rateKey(rawURL)
	if err != nil {
		return false, err
	}

	marked, err := l.kv.Exists(ctx, key)
	if err != nil {
		return true, fmt.Errorf("failed to check rate mark: %w", err)
	}

	return !marked, nil
}

// Record marks rawURL's domain as scanned; the mark expires after the
// configured interval.
func (l *Limiter) Record(ctx context.Context, rawURL string) error {
	key, err := rateKey(rawURL)
	if err != nil {
		return err
	}

	if err := l.kv.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), l.interval); err != nil {
		return fmt.Errorf("failed to set rate mark: %w", err)
	}

	return nil
}

// rateKey maps a url to its domain mark. Hosts are compared case
// insensitively, so the key is lowercased.
func rateKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q", errNoHost, rawURL)
	}

	return "scan_rate:" + host, nil
}
