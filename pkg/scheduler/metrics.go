package scheduler

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics (registered once).
var (
	scansScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_scans_scheduled_total",
			Help: "Total scan requests published to the bus",
		},
	)
	scansRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_scans_rate_limited_total",
			Help: "Total scan triggers skipped by the per-domain rate limit",
		},
	)
	triggersCoalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_triggers_coalesced_total",
			Help: "Total triggers dropped because the config's previous trigger was still running",
		},
	)
	configReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_config_reloads_total",
			Help: "Total full config reloads",
		},
	)
	activeJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftwatch_active_jobs",
			Help: "Number of configs with a scheduled job",
		},
	)
)

func init() {
	prometheus.MustRegister(scansScheduled)
	prometheus.MustRegister(scansRateLimited)
	prometheus.MustRegister(triggersCoalesced)
	prometheus.MustRegister(configReloads)
	prometheus.MustRegister(activeJobs)
}

// counters mirrors the prometheus counters as plain atomics so the status
// endpoint and the periodic cache snapshot can read current values.
type counters struct {
	scheduled   atomic.Uint64
	rateLimited atomic.Uint64
	coalesced   atomic.Uint64
	reloads     atomic.Uint64
	completed   atomic.Uint64
}

func (c *counters) snapshot() map[string]int64 {
	return map[string]int64{
		"scans_scheduled":    int64(c.scheduled.Load()),
		"scans_rate_limited": int64(c.rateLimited.Load()),
		"triggers_coalesced": int64(c.coalesced.Load()),
		"config_reloads":     int64(c.reloads.Load()),
		"scans_completed":    int64(c.completed.Load()),
	}
}
