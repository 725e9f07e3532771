// Package scheduler pkg/scheduler/api.go is the administrative HTTP surface:
// config CRUD, the pipeline status view and prometheus exposition.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/db"
	"github.com/driftwatch/driftwatch/pkg/models"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

// pipelineComponents are the processes whose health reports the status view
// collects from the cache.
var pipelineComponents = []string{
	"scheduler",
	"change-detector",
	"alert-engine",
	"gateway",
}

// JobStatus is one scheduled config in the status view.
type JobStatus struct {
	ConfigID string    `json:"config_id"`
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	NextRun  time.Time `json:"next_run"`
	InFlight bool      `json:"in_flight"`
}

// Status is the pipeline-wide view served by GET /api/status.
type Status struct {
	ActiveJobs int               `json:"active_jobs"`
	Counters   map[string]int64  `json:"counters"`
	Bus        bus.Health        `json:"bus"`
	Components map[string]string `json:"components"`
	Jobs       []JobStatus       `json:"jobs"`
}

func (p *Pipeline) adminHandler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/configs", p.handleListConfigs).Methods(http.MethodGet)
	r.HandleFunc("/api/configs", p.handleCreateConfig).Methods(http.MethodPost)
	r.HandleFunc("/api/configs/{id}", p.handleGetConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/configs/{id}", p.handleUpdateConfig).Methods(http.MethodPut)
	r.HandleFunc("/api/configs/{id}", p.handleDeleteConfig).Methods(http.MethodDelete)
	r.HandleFunc("/api/configs/{id}/changes", p.handleRecentChanges).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts/{id}/notifications", p.handleNotifications).Methods(http.MethodGet)
	r.HandleFunc("/api/status", p.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (p *Pipeline) handleListConfigs(w http.ResponseWriter, _ *http.Request) {
	configs, err := p.db.ListConfigs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, configs)
}

func (p *Pipeline) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.MonitoringConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := cfg.Schedule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	if cfg.NextScanAt == nil {
		if next, err := computeNext(&cfg.Schedule, p.now()); err == nil {
			cfg.NextScanAt = &next
		}
	}

	if err := p.db.CreateConfig(&cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	p.reloadAfterMutation()
	writeJSON(w, http.StatusCreated, &cfg)
}

func (p *Pipeline) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := p.db.GetConfig(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

func (p *Pipeline) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.MonitoringConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := cfg.Schedule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg.ID = mux.Vars(r)["id"]

	if err := p.db.UpdateConfig(&cfg); err != nil {
		writeStoreError(w, err)
		return
	}

	p.reloadAfterMutation()
	writeJSON(w, http.StatusOK, &cfg)
}

func (p *Pipeline) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := p.db.DeleteConfig(mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}

	p.reloadAfterMutation()
	w.WriteHeader(http.StatusNoContent)
}

// defaultChangesLimit bounds GET /api/configs/{id}/changes when the client
// does not pass ?limit=.
const defaultChangesLimit = 50

func (p *Pipeline) handleRecentChanges(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := p.db.GetConfig(id); err != nil {
		writeStoreError(w, err)
		return
	}

	limit := defaultChangesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}

		limit = parsed
	}

	changes, err := p.db.GetRecentChanges(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, changes)
}

func (p *Pipeline) handleNotifications(w http.ResponseWriter, r *http.Request) {
	attempts, err := p.db.GetNotifications(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}

func (p *Pipeline) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.status(r.Context()))
}

// status assembles the pipeline-wide view: the local job table plus every
// component's cached health report.
func (p *Pipeline) status(ctx context.Context) *Status {
	p.mu.Lock()

	jobs := make([]JobStatus, 0, len(p.jobs))

	for id, j := range p.jobs {
		jobs = append(jobs, JobStatus{
			ConfigID: id,
			Name:     j.config.Name,
			URL:      j.config.URL,
			NextRun:  p.cron.Entry(j.entryID).Next,
			InFlight: j.inFlight.Load(),
		})
	}

	p.mu.Unlock()

	components := make(map[string]string, len(pipelineComponents))

	for _, component := range pipelineComponents {
		components[component] = componentStatus(ctx, p.kv, component)
	}

	return &Status{
		ActiveJobs: len(jobs),
		Counters:   p.counters.snapshot(),
		Bus:        p.bus.Health(),
		Components: components,
		Jobs:       jobs,
	}
}

// componentStatus reads a component's cached health report. An expired or
// missing mark means the component has not reported recently.
func componentStatus(ctx context.Context, kv cache.KV, component string) string {
	raw, err := kv.Get(ctx, "health:"+component)
	if err != nil {
		return "unknown"
	}

	var event models.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return "unknown"
	}

	var payload models.HealthPayload
	if err := event.DecodeData(&payload); err != nil {
		return "unknown"
	}

	return payload.Status
}

// reloadAfterMutation keeps the in-memory schedule consistent with the store
// after a config write. The write already succeeded, so a reload failure is
// logged, not surfaced to the API client.
func (p *Pipeline) reloadAfterMutation() {
	if err := p.reload(); err != nil {
		log.Printf("Reload after config change failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeError(w, http.StatusInternalServerError, err)
}
