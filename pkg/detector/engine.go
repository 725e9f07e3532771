// Package detector pkg/detector/engine.go consumes completed scans and turns
// snapshot pairs into change events.
package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
)

const (
	componentName = "change-detector"
	consumerGroup = "change-detector"

	healthInterval = time.Minute
	healthTTL      = 5 * time.Minute
)

// Engine wires the category comparators to the bus and the store.
type Engine struct {
	db      db.Service
	bus     bus.Bus
	kv      cache.KV
	catalog *Catalog
}

// NewEngine creates a detector engine. A nil catalog gets the default
// technology catalog.
func NewEngine(database db.Service, eventBus bus.Bus, kv cache.KV, catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	return &Engine{
		db:      database,
		bus:     eventBus,
		kv:      kv,
		catalog: catalog,
	}
}

// Start consumes scan.completed until ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	log.Printf("Starting change detector")

	go e.reportHealth(ctx)

	return e.bus.Subscribe(ctx, consumerGroup, []string{models.TopicScanCompleted}, e.handleScanCompleted)
}

// Stop releases the engine's resources.
func (e *Engine) Stop(_ context.Context) error {
	log.Printf("Stopping change detector")

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

// handleScanCompleted persists the new snapshot, diffs it against the
// previous one and emits one change.detected event per surviving change.
func (e *Engine) handleScanCompleted(ctx context.Context, event *models.Event) error {
	if event.Type != models.EventScanCompleted {
		return nil
	}

	var payload models.ScanCompletedPayload
	if err := event.DecodeData(&payload); err != nil {
		return err
	}

	result := &db.ScanResult{
		ScanID:        payload.ScanID,
		ConfigID:      payload.ConfigID,
		Summary:       payload.ResultSummary,
		FullResultURL: payload.FullResultURL,
		ScanTimestamp: parseCompletedAt(payload.CompletedAt),
	}

	if err := e.db.StoreScanResult(result); err != nil {
		return fmt.Errorf("failed to store scan %s: %w", payload.ScanID, err)
	}

	previous, err := e.db.GetPreviousScan(payload.ConfigID, payload.ScanID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Printf("First scan for %s, stored as baseline", payload.ConfigID)
			return nil
		}

		return fmt.Errorf("failed to load baseline for %s: %w", payload.ConfigID, err)
	}

	thresholds := loadThresholds(ctx, e.kv, e.db, payload.ConfigID)
	detection := Detect(&previous.Summary, &payload.ResultSummary, e.catalog, thresholds)

	if !detection.HasChanges {
		return nil
	}

	// Joint evidence ties every emitted change back to the scan pair it
	// came from.
	detection.Evidence = map[string]interface{}{
		"previous_scan_id": previous.ScanID,
		"current_scan_id":  payload.ScanID,
		"previous_scan_at": previous.ScanTimestamp.UTC().Format(time.RFC3339),
		"current_scan_at":  result.ScanTimestamp.UTC().Format(time.RFC3339),
		"change_count":     len(detection.Changes),
	}

	log.Printf("Detected %d changes for %s (scan %s)",
		len(detection.Changes), payload.ConfigID, payload.ScanID)

	for i := range detection.Changes {
		change := &detection.Changes[i]
		change.ID = uuid.NewString()
		attachEvidence(change, detection.Evidence)

		if err := e.db.StoreChange(payload.ConfigID, payload.ScanID, change); err != nil {
			return fmt.Errorf("failed to store change: %w", err)
		}

		changeEvent, err := models.NewChangeDetectedEvent(payload.ConfigID, *change)
		if err != nil {
			return err
		}

		if err := e.bus.Publish(ctx, models.TopicChangeDetected, changeEvent, payload.ConfigID); err != nil {
			return err
		}
	}

	return nil
}

// Detect compares two snapshots of the same target across every category.
// The same snapshot pair always produces the same changes in the same order.
func Detect(prev, curr *models.ScanSnapshot, catalog *Catalog, thresholds map[string]float64) models.ChangeDetection {
	var changes []models.Change

	changes = append(changes, compareTechnologies(prev.Technologies.Detected, curr.Technologies.Detected, catalog)...)
	changes = append(changes, comparePerformance(&prev.Performance, &curr.Performance, thresholds)...)
	changes = append(changes, compareSecurity(&prev.Security, &curr.Security)...)
	changes = append(changes, compareContent(&prev.Content, &curr.Content)...)
	changes = append(changes, compareInfrastructure(&prev.Infrastructure, &curr.Infrastructure)...)

	detection := models.ChangeDetection{
		HasChanges: len(changes) > 0,
		Changes:    changes,
	}

	if len(changes) > 0 {
		var total float64
		for i := range changes {
			total += changes[i].Confidence
		}

		detection.Confidence = total / float64(len(changes))
	}

	return detection
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

// attachEvidence merges the joint scan-pair record into a change's own
// evidence without clobbering the category comparator's keys.
func attachEvidence(change *models.Change, joint map[string]interface{}) {
	if change.Evidence == nil {
		change.Evidence = make(map[string]interface{}, len(joint))
	}

	for key, value := range joint {
		if _, taken := change.Evidence[key]; !taken {
			change.Evidence[key] = value
		}
	}
}

func parseCompletedAt(value string) time.Time {
	if value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.UTC()
		}
	}

	return time.Now().UTC()
}
