// Package scheduler pkg/scheduler/scheduler.go drives the monitoring
// pipeline: it keeps one cron entry per enabled config, publishes scan
// requests subject to the per-domain rate limit, and folds scan completions
// and component health reports back into the store and cache.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
	"github.com/driftwatch/driftwatch/pkg/ratelimit"
)

const (
	componentName = "scheduler"
	consumerGroup = "scheduler"

	// graceWindow accepts triggers that were missed while the process was
	// down; older misses wait for the next regular occurrence.
	graceWindow = 5 * time.Minute

	componentHealthTTL = 5 * time.Minute
	metricsSnapshotTTL = 10 * time.Minute

	defaultHealthInterval  = time.Minute
	defaultMetricsInterval = 5 * time.Minute
	defaultReloadInterval  = time.Hour
	defaultCleanupInterval = 24 * time.Hour
	defaultRetention       = 90 * 24 * time.Hour

	httpReadHeaderTimeout = 10 * time.Second
)

var errUnknownScheduleType = errors.New("unknown schedule type")

// job is one config's scheduled trigger. inFlight gives single-instance
// execution: a trigger that fires while the previous one is still running is
// coalesced, not queued.
type job struct {
	entryID  cron.EntryID
	config   models.MonitoringConfig
	inFlight atomic.Bool
}

// Pipeline is the scheduler service. The relational store is the source of
// truth; the in-memory job table is rebuilt from it on every reload.
type Pipeline struct {
	db      db.Service
	bus     bus.Bus
	kv      cache.KV
	limiter *ratelimit.Limiter
	cfg     *config.SchedulerConfig

	cron    *cron.Cron
	httpSrv *http.Server

	mu   sync.Mutex
	jobs map[string]*job

	counters counters

	ctx context.Context
	now func() time.Time
}

// NewPipeline creates the scheduler around its store, bus and cache handles.
func NewPipeline(database db.Service, eventBus bus.Bus, kv cache.KV, cfg *config.SchedulerConfig) *Pipeline {
	return &Pipeline{
		db:      database,
		bus:     eventBus,
		kv:      kv,
		limiter: ratelimit.NewLimiter(kv, time.Duration(cfg.RateLimitInterval)),
		cfg:     cfg,
		cron:    cron.New(),
		jobs:    make(map[string]*job),
		ctx:     context.Background(),
		now:     time.Now,
	}
}

// Start loads the job table, starts the cron loop, the admin API and the
// periodic maintenance jobs, then consumes scan.completed and system.health
// until ctx is canceled.
func (p *Pipeline) Start(ctx context.Context) error {
	log.Printf("Starting scheduler")

	p.ctx = ctx

	if err := p.reload(); err != nil {
		return err
	}

	p.cron.Start()

	if p.cfg.HTTPAddr != "" {
		p.httpSrv = &http.Server{
			Addr:              p.cfg.HTTPAddr,
			Handler:           p.adminHandler(),
			ReadHeaderTimeout: httpReadHeaderTimeout,
		}

		go func() {
			log.Printf("Admin API listening on %s", p.cfg.HTTPAddr)

			if err := p.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Admin API server failed: %v", err)
			}
		}()
	}

	go p.runPeriodic(ctx)

	return p.bus.Subscribe(ctx, consumerGroup,
		[]string{models.TopicScanCompleted, models.TopicSystemHealth}, p.handleEvent)
}

// Stop drains running triggers and releases the scheduler's resources.
func (p *Pipeline) Stop(ctx context.Context) error {
	log.Printf("Stopping scheduler")

	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
		log.Printf("Shutdown deadline reached with triggers still running")
	}

	var errs []error

	if p.httpSrv != nil {
		if err := p.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := p.bus.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := p.kv.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := p.db.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Reload rebuilds the job table from the store. The admin API calls this
// after every config mutation.
func (p *Pipeline) Reload() error {
	return p.reload()
}

func (p *Pipeline) reload() error {
	configs, err := p.db.ListEnabledConfigs()
	if err != nil {
		return fmt.Errorf("failed to load enabled configs: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(configs))

	for i := range configs {
		seen[configs[i].ID] = true
		p.scheduleLocked(&configs[i])
	}

	for id, j := range p.jobs {
		if !seen[id] {
			p.cron.Remove(j.entryID)
			delete(p.jobs, id)
		}
	}

	activeJobs.Set(float64(len(p.jobs)))
	configReloads.Inc()
	p.counters.reloads.Add(1)

	log.Printf("Scheduled %d configs", len(p.jobs))

	return nil
}

// scheduleLocked installs or replaces the cron entry for one config. At most
// one entry exists per config id. Caller holds p.mu.
func (p *Pipeline) scheduleLocked(cfg *models.MonitoringConfig) {
	sched, err := parseSchedule(&cfg.Schedule)
	if err != nil {
		log.Printf("Skipping config %s: %v", cfg.ID, err)

		if existing, ok := p.jobs[cfg.ID]; ok {
			p.cron.Remove(existing.entryID)
			delete(p.jobs, cfg.ID)
		}

		return
	}

	j, known := p.jobs[cfg.ID]
	if known {
		p.cron.Remove(j.entryID)
		j.config = *cfg
	} else {
		j = &job{config: *cfg}
		p.jobs[cfg.ID] = j
	}

	j.entryID = p.cron.Schedule(sched, cron.FuncJob(func() {
		p.trigger(p.ctx, j)
	}))

	if !known && missedWithinGrace(cfg.NextScanAt, p.now()) {
		log.Printf("Config %s missed its trigger at %s, firing now", cfg.ID, cfg.NextScanAt)

		go p.trigger(p.ctx, j)
	}
}

// missedWithinGrace reports whether a stored next-scan time passed recently
// enough to make up for.
func missedWithinGrace(nextScanAt *time.Time, now time.Time) bool {
	if nextScanAt == nil || !nextScanAt.Before(now) {
		return false
	}

	return now.Sub(*nextScanAt) <= graceWindow
}

// trigger runs one scheduling cycle for a config: rate check, publish,
// rate-limit mark, next_scan_at persist.
func (p *Pipeline) trigger(ctx context.Context, j *job) {
	if !j.inFlight.CompareAndSwap(false, true) {
		triggersCoalesced.Inc()
		p.counters.coalesced.Add(1)

		return
	}
	defer j.inFlight.Store(false)

	p.mu.Lock()
	cfg := j.config
	p.mu.Unlock()

	allowed, err := p.limiter.Allowed(ctx, cfg.URL)
	if err != nil {
		log.Printf("Rate check for %s: %v", cfg.URL, err)
	}

	if !allowed {
		scansRateLimited.Inc()
		p.counters.rateLimited.Add(1)
		log.Printf("Scan of %s rate limited, skipping this cycle", cfg.URL)

		return
	}

	event, err := models.NewScanScheduledEvent(cfg.ID, cfg.URL, cfg.ScanConfig)
	if err != nil {
		log.Printf("Failed to build scan request for %s: %v", cfg.ID, err)
		return
	}

	if err := p.bus.Publish(ctx, models.TopicScanScheduled, event, cfg.URL); err != nil {
		log.Printf("Failed to publish scan request for %s: %v", cfg.ID, err)
		return
	}

	if err := p.limiter.Record(ctx, cfg.URL); err != nil {
		log.Printf("Failed to record rate mark for %s: %v", cfg.URL, err)
	}

	if next, err := computeNext(&cfg.Schedule, p.now()); err == nil {
		if err := p.db.UpdateScanTimes(cfg.ID, nil, &next); err != nil {
			log.Printf("Failed to persist next scan time for %s: %v", cfg.ID, err)
		}
	}

	scansScheduled.Inc()
	p.counters.scheduled.Add(1)
}

// handleEvent folds scan completions and component health reports back into
// the store and cache.
func (p *Pipeline) handleEvent(ctx context.Context, event *models.Event) error {
	switch event.Type {
	case models.EventScanCompleted:
		return p.handleScanCompleted(event)
	case models.EventHealth:
		return p.handleHealth(ctx, event)
	default:
		return nil
	}
}

func (p *Pipeline) handleScanCompleted(event *models.Event) error {
	var payload models.ScanCompletedPayload
	if err := event.DecodeData(&payload); err != nil {
		return err
	}

	last := p.now().UTC()
	if payload.CompletedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.CompletedAt); err == nil {
			last = t.UTC()
		}
	}

	if err := p.db.UpdateScanTimes(payload.ConfigID, &last, nil); err != nil {
		// The config may have been deleted between scan and completion.
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("failed to record completion for %s: %w", payload.ConfigID, err)
	}

	p.counters.completed.Add(1)

	return nil
}

// handleHealth caches each component's latest self-report so the status
// endpoint can assemble a pipeline-wide view.
func (p *Pipeline) handleHealth(ctx context.Context, event *models.Event) error {
	var payload models.HealthPayload
	if err := event.DecodeData(&payload); err != nil {
		return err
	}

	if payload.Component == "" {
		return nil
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.kv.Set(ctx, "health:"+payload.Component, string(encoded), componentHealthTTL)
}

// runPeriodic runs the maintenance jobs until ctx is canceled: self-health
// publish, metrics snapshot, a full config reload to pick up out-of-band
// store changes, and retention cleanup of old scans, changes and alerts.
func (p *Pipeline) runPeriodic(ctx context.Context) {
	healthTicker := time.NewTicker(interval(p.cfg.HealthInterval, defaultHealthInterval))
	defer healthTicker.Stop()

	metricsTicker := time.NewTicker(interval(p.cfg.MetricsInterval, defaultMetricsInterval))
	defer metricsTicker.Stop()

	reloadTicker := time.NewTicker(interval(p.cfg.ReloadInterval, defaultReloadInterval))
	defer reloadTicker.Stop()

	cleanupTicker := time.NewTicker(interval(p.cfg.CleanupInterval, defaultCleanupInterval))
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-healthTicker.C:
			p.publishHealth(ctx)
		case <-metricsTicker.C:
			p.snapshotMetrics(ctx)
		case <-reloadTicker.C:
			if err := p.reload(); err != nil {
				log.Printf("Periodic reload failed: %v", err)
			}
		case <-cleanupTicker.C:
			p.cleanOldData()
		}
	}
}

// cleanOldData removes stored data past the retention period.
func (p *Pipeline) cleanOldData() {
	retention := interval(p.cfg.RetentionPeriod, defaultRetention)

	if err := p.db.CleanOldData(retention); err != nil {
		log.Printf("Retention cleanup failed: %v", err)
		return
	}

	log.Printf("Cleaned stored data older than %s", retention)
}

func (p *Pipeline) publishHealth(ctx context.Context) {
	health := p.bus.Health()

	metrics := p.counters.snapshot()
	metrics["messages_published"] = int64(health.Published)
	metrics["messages_consumed"] = int64(health.Consumed)
	metrics["errors"] = int64(health.Errors)

	event, err := models.NewHealthEvent(componentName, health.Status, metrics)
	if err != nil {
		log.Printf("Failed to build health event: %v", err)
		return
	}

	if err := p.bus.Publish(ctx, models.TopicSystemHealth, event, componentName); err != nil {
		log.Printf("Failed to publish health: %v", err)
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := p.kv.Set(ctx, "health:"+componentName, string(encoded), componentHealthTTL); err != nil {
		log.Printf("Failed to store health mark: %v", err)
	}
}

func (p *Pipeline) snapshotMetrics(ctx context.Context) {
	p.mu.Lock()
	jobs := len(p.jobs)
	p.mu.Unlock()

	snapshot := p.counters.snapshot()
	snapshot["active_jobs"] = int64(jobs)

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	if err := p.kv.Set(ctx, "metrics:"+componentName, string(encoded), metricsSnapshotTTL); err != nil {
		log.Printf("Failed to store metrics snapshot: %v", err)
	}
}

func interval(configured config.Duration, fallback time.Duration) time.Duration {
	if d := time.Duration(configured); d > 0 {
		return d
	}

	return fallback
}
