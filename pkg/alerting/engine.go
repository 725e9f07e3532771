// Package alerting pkg/alerting/engine.go turns detected changes into alerts
// and fans alerts out to notification channels.
package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
)

const (
	componentName = "alert-engine"
	consumerGroup = "alert-engine"

	healthInterval = time.Minute
	healthTTL      = 5 * time.Minute

	// defaultThrottleMinutes spaces repeat alerts for the same (config,
	// rule) pair when the rule does not set its own window.
	defaultThrottleMinutes = 60

	defaultDispatchRate  = 10
	defaultDispatchBurst = 20
)

// Engine evaluates rules against changes and dispatches notifications.
// Outbound sends are paced by a shared rate limiter so a burst of alerts
// cannot hammer the providers.
type Engine struct {
	db        db.Service
	bus       bus.Bus
	kv        cache.KV
	notifiers map[string]Notifier
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewEngine creates an alert engine with the four standard channel types
// registered.
func NewEngine(database db.Service, eventBus bus.Bus, kv cache.KV, cfg *config.AlerterConfig) *Engine {
	dispatchRate := cfg.DispatchRate
	if dispatchRate <= 0 {
		dispatchRate = defaultDispatchRate
	}

	burst := cfg.DispatchBurst
	if burst <= 0 {
		burst = defaultDispatchBurst
	}

	return &Engine{
		db:  database,
		bus: eventBus,
		kv:  kv,
		notifiers: map[string]Notifier{
			models.ChannelEmail:   NewEmailNotifier(cfg.SMTP),
			models.ChannelSlack:   NewSlackNotifier(),
			models.ChannelWebhook: NewWebhookNotifier(),
			models.ChannelSMS:     NewSMSNotifier(),
		},
		limiter: rate.NewLimiter(rate.Limit(dispatchRate), burst),
		now:     time.Now,
	}
}

// Start consumes change.detected and alert.triggered until ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	log.Printf("Starting alert engine")

	go e.reportHealth(ctx)

	topics := []string{models.TopicChangeDetected, models.TopicAlertTriggered}

	return e.bus.Subscribe(ctx, consumerGroup, topics, e.handleEvent)
}

// Stop releases the engine's resources.
func (e *Engine) Stop(_ context.Context) error {
	log.Printf("Stopping alert engine")

	var errs []error

	if err := e.bus.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := e.kv.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := e.db.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (e *Engine) handleEvent(ctx context.Context, event *models.Event) error {
	switch event.Type {
	case models.EventChangeDetected:
		return e.handleChangeDetected(ctx, event)
	case models.EventAlertTriggered:
		return e.handleAlertTriggered(ctx, event)
	default:
		return nil
	}
}

// handleChangeDetected evaluates the config's rules against one change and
// creates an alert per matching, unthrottled rule.
func (e *Engine) handleChangeDetected(ctx context.Context, event *models.Event) error {
	var payload models.ChangeDetectedPayload
	if err := event.DecodeData(&payload); err != nil {
		return err
	}

	cfg, err := e.db.GetConfig(payload.ConfigID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Printf("Dropping change for deleted config %s", payload.ConfigID)
			return nil
		}

		return fmt.Errorf("failed to load config %s: %w", payload.ConfigID, err)
	}

	for _, rule := range compileRules(cfg.ID, cfg.AlertRules) {
		matched, err := rule.Matches(&payload.Change)
		if err != nil {
			log.Printf("Skipping rule %q on %s: %v", rule.rule.Name, cfg.ID, err)
			continue
		}

		if !matched {
			continue
		}

		throttled, err := e.throttled(ctx, cfg.ID, &rule.rule)
		if err != nil {
			log.Printf("Throttle check failed for rule %q on %s: %v", rule.rule.Name, cfg.ID, err)
		}

		if throttled {
			log.Printf("Throttled rule %q on %s", rule.rule.Name, cfg.ID)
			continue
		}

		if err := e.triggerAlert(ctx, cfg, &rule.rule, &payload.Change); err != nil {
			return err
		}
	}

	return nil
}

// throttled reports whether the (config, rule) pair is inside its window.
// Cache trouble fails open: a duplicate alert beats a silenced one.
func (e *Engine) throttled(ctx context.Context, configID string, rule *models.AlertRule) (bool, error) {
	exists, err := e.kv.Exists(ctx, throttleKey(configID, rule))
	if err != nil {
		return false, err
	}

	return exists, nil
}

func throttleKey(configID string, rule *models.AlertRule) string {
	return "alert_throttle:" + configID + ":" + rule.ThrottleKey()
}

// triggerAlert persists a new alert, marks the throttle window and announces
// the alert on the bus.
func (e *Engine) triggerAlert(ctx context.Context, cfg *models.MonitoringConfig,
	rule *models.AlertRule, change *models.Change) error {
	severity := rule.Severity
	if severity == "" {
		severity = change.Severity
	}

	alert := &models.Alert{
		ID:                   uuid.NewString(),
		ConfigID:             cfg.ID,
		RuleName:             rule.Name,
		AlertType:            string(change.Type),
		Severity:             severity,
		Title:                alertTitle(change),
		Description:          alertDescription(change),
		Details:              *change,
		ChangeReferenceID:    change.ID,
		ChangeReferenceType:  string(change.Type),
		NotificationChannels: rule.NotificationChannels,
		TriggeredAt:          e.now().UTC(),
	}

	if err := e.db.CreateAlert(alert); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	throttleMinutes := rule.ThrottleMinutes
	if throttleMinutes <= 0 {
		throttleMinutes = defaultThrottleMinutes
	}

	ttl := time.Duration(throttleMinutes) * time.Minute
	if err := e.kv.Set(ctx, throttleKey(cfg.ID, rule), alert.ID, ttl); err != nil {
		log.Printf("Failed to mark throttle for rule %q on %s: %v", rule.Name, cfg.ID, err)
	}

	log.Printf("Alert %s triggered by rule %q on %s", alert.ID, rule.Name, cfg.ID)

	event, err := models.NewAlertTriggeredEvent(alert)
	if err != nil {
		return err
	}

	return e.bus.Publish(ctx, models.TopicAlertTriggered, event, cfg.ID)
}

// handleAlertTriggered loads the alert record and fans it out to its
// channels. One channel succeeding is enough to mark the alert sent; every
// attempt is recorded either way.
func (e *Engine) handleAlertTriggered(ctx context.Context, event *models.Event) error {
	var payload models.AlertTriggeredPayload
	if err := event.DecodeData(&payload); err != nil {
		return err
	}

	alert, err := e.db.GetAlert(payload.AlertID)
	if err != nil {
		return fmt.Errorf("failed to load alert %s: %w", payload.AlertID, err)
	}

	if len(alert.NotificationChannels) == 0 {
		return nil
	}

	outcomes := e.dispatch(ctx, alert)

	anySent := false

	for i := range outcomes {
		if outcomes[i].Status == models.SendStatusSent {
			anySent = true
		}

		if err := e.db.RecordNotification(&outcomes[i]); err != nil {
			log.Printf("Failed to record notification attempt: %v", err)
		}
	}

	if err := e.db.MarkAlertNotified(alert.ID, anySent); err != nil {
		return fmt.Errorf("failed to update alert %s: %w", alert.ID, err)
	}

	return nil
}

// dispatch sends the alert to every channel concurrently, each send paced by
// the engine's rate limiter.
func (e *Engine) dispatch(ctx context.Context, alert *models.Alert) []models.NotificationAttempt {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	attempts := make([]models.NotificationAttempt, 0, len(alert.NotificationChannels))

	for i := range alert.NotificationChannels {
		channel := alert.NotificationChannels[i]

		wg.Add(1)

		go func() {
			defer wg.Done()

			attempt := models.NotificationAttempt{
				ID:          uuid.NewString(),
				AlertID:     alert.ID,
				ChannelType: channel.Type,
				ChannelName: channel.Name,
				Status:      models.SendStatusSent,
				AttemptedAt: e.now().UTC(),
			}

			if err := e.send(ctx, alert, &channel); err != nil {
				attempt.Status = models.SendStatusFailed
				attempt.Detail = err.Error()

				log.Printf("Failed to notify %s channel for alert %s: %v", channel.Type, alert.ID, err)
			}

			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		}()
	}

	wg.Wait()

	return attempts
}

func (e *Engine) send(ctx context.Context, alert *models.Alert, channel *models.ChannelConfig) error {
	notifier, ok := e.notifiers[channel.Type]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownChannelType, channel.Type)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("dispatch canceled: %w", err)
	}

	return notifier.Send(ctx, alert, channel)
}

// reportHealth publishes the engine's liveness on the bus and in the shared
// cache until ctx is canceled.
func (e *Engine) reportHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := e.bus.Health()

			event, err := models.NewHealthEvent(componentName, health.Status, map[string]int64{
				"messages_published": int64(health.Published),
				"messages_consumed":  int64(health.Consumed),
				"errors":             int64(health.Errors),
			})
			if err != nil {
				log.Printf("Failed to build health event: %v", err)
				continue
			}

			if err := e.bus.Publish(ctx, models.TopicSystemHealth, event, componentName); err != nil {
				log.Printf("Failed to publish health: %v", err)
			}

			encoded, err := json.Marshal(event)
			if err != nil {
				continue
			}

			if err := e.kv.Set(ctx, "health:"+componentName, string(encoded), healthTTL); err != nil {
				log.Printf("Failed to store health mark: %v", err)
			}
		}
	}
}
