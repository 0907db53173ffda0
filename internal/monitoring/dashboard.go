// internal/monitoring/dashboard.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/PageXpect/internal/utils"
)

// Dashboard serves the monitoring HTTP surface: health probes, the
// Prometheus exposition and a small JSON API over recent suite runs.
type Dashboard struct {
	metricsManager *MetricsManager
	healthManager  *HealthManager
	runTracker     *RunTracker
	config         DashboardConfig
}

// DashboardConfig configuration for the dashboard
type DashboardConfig struct {
	Listen string `json:"listen"`
	Title  string `json:"title"`
}

// RunStatus represents one suite run
type RunStatus struct {
	ID           string        `json:"id"`
	Suite        string        `json:"suite"`
	Page         string        `json:"page,omitempty"`
	Status       string        `json:"status"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Duration     time.Duration `json:"duration"`
	Checks       int64         `json:"checks"`
	Failures     int64         `json:"failures"`
	AccessErrors int64         `json:"access_errors"`
}

// RunTracker keeps recent suite runs for the dashboard API
type RunTracker struct {
	runs   map[string]*RunStatus
	mu     sync.RWMutex
	config RunTrackerConfig
}

// RunTrackerConfig configuration for run tracking
type RunTrackerConfig struct {
	MaxRuns         int           `json:"max_runs"`
	RetentionPeriod time.Duration `json:"retention_period"`
}

// NewDashboard creates a new monitoring dashboard
func NewDashboard(metrics *MetricsManager, health *HealthManager, config DashboardConfig) *Dashboard {
	if config.Listen == "" {
		config.Listen = ":9090"
	}
	if config.Title == "" {
		config.Title = "PageXpect Monitoring"
	}

	return &Dashboard{
		metricsManager: metrics,
		healthManager:  health,
		runTracker:     NewRunTracker(RunTrackerConfig{}),
		config:         config,
	}
}

// NewRunTracker creates a new run tracker
func NewRunTracker(config RunTrackerConfig) *RunTracker {
	if config.MaxRuns == 0 {
		config.MaxRuns = 100
	}
	if config.RetentionPeriod == 0 {
		config.RetentionPeriod = 24 * time.Hour
	}

	return &RunTracker{
		runs:   make(map[string]*RunStatus),
		config: config,
	}
}

// Runs exposes the tracker so suite drivers can feed it.
func (d *Dashboard) Runs() *RunTracker {
	return d.runTracker
}

// Router builds the dashboard routes.
func (d *Dashboard) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", d.healthManager.HealthHandler()).Methods("GET")
	r.HandleFunc("/readyz", d.healthManager.ReadinessHandler()).Methods("GET")
	r.HandleFunc("/livez", d.healthManager.LivenessHandler()).Methods("GET")
	r.Handle("/metrics", d.metricsManager.MetricsHandler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/runs", d.listRunsHandler).Methods("GET")
	api.HandleFunc("/runs/{id}", d.getRunHandler).Methods("GET")
	api.HandleFunc("/status", d.statusHandler).Methods("GET")

	return r
}

// Start starts the dashboard server and blocks until it stops. The
// server shuts down when ctx is done.
func (d *Dashboard) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    d.config.Listen,
		Handler: d.Router(),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	return server.ListenAndServe()
}

// listRunsHandler serves recent runs as JSON, newest first. The active
// query parameter restricts the list to running suites.
func (d *Dashboard) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	var runs []RunStatus
	if r.URL.Query().Get("active") == "true" {
		runs = d.runTracker.GetActiveRuns()
	} else {
		runs = d.runTracker.GetAllRuns()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

// getRunHandler serves a single run by id
func (d *Dashboard) getRunHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	run, ok := d.runTracker.GetRun(vars["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("run %s not found", vars["id"]),
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// statusHandler serves an aggregate snapshot: health, system metrics
// and run counts in one envelope.
func (d *Dashboard) statusHandler(w http.ResponseWriter, r *http.Request) {
	health := d.healthManager.GetHealth()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":       d.config.Title,
		"status":      health.Status,
		"timestamp":   time.Now(),
		"uptime":      utils.FormatDuration(health.Uptime),
		"summary":     health.Summary,
		"metrics":     d.metricsManager.GetMetrics(),
		"active_runs": len(d.runTracker.GetActiveRuns()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Run tracking methods

// StartRun registers a run as running. A run with an empty ID gets one
// derived from the suite, the page and the start time, so runs of the
// same suite share a stable prefix.
func (rt *RunTracker) StartRun(run *RunStatus) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	run.StartTime = time.Now()
	run.Status = "running"
	if run.ID == "" {
		key := utils.HashURL(run.Suite + "|" + run.Page)
		run.ID = fmt.Sprintf("run_%s_%d", key[:8], run.StartTime.UnixNano())
	}
	rt.runs[run.ID] = run

	if len(rt.runs) > rt.config.MaxRuns {
		rt.cleanupOldRuns()
	}
}

// UpdateRun refreshes the counters of a running suite
func (rt *RunTracker) UpdateRun(runID string, checks, failures, accessErrors int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if run, exists := rt.runs[runID]; exists {
		run.Checks = checks
		run.Failures = failures
		run.AccessErrors = accessErrors
		run.Duration = time.Since(run.StartTime)
	}
}

// CompleteRun marks a run finished
func (rt *RunTracker) CompleteRun(runID string, success bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if run, exists := rt.runs[runID]; exists {
		now := time.Now()
		run.EndTime = &now
		run.Duration = now.Sub(run.StartTime)

		if success {
			run.Status = "completed"
		} else {
			run.Status = "failed"
		}
	}
}

// GetRun returns one run by id
func (rt *RunTracker) GetRun(runID string) (RunStatus, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	run, exists := rt.runs[runID]
	if !exists {
		return RunStatus{}, false
	}
	return *run, true
}

// GetAllRuns returns all tracked runs, newest first
func (rt *RunTracker) GetAllRuns() []RunStatus {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	runs := make([]RunStatus, 0, len(rt.runs))
	for _, run := range rt.runs {
		runs = append(runs, *run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})

	return runs
}

// GetActiveRuns returns runs that have not finished yet
func (rt *RunTracker) GetActiveRuns() []RunStatus {
	all := rt.GetAllRuns()
	active := make([]RunStatus, 0)

	for _, run := range all {
		if run.Status == "running" {
			active = append(active, run)
		}
	}

	return active
}

// cleanupOldRuns drops finished runs older than the retention period.
// Callers hold the write lock.
func (rt *RunTracker) cleanupOldRuns() {
	cutoff := time.Now().Add(-rt.config.RetentionPeriod)

	for id, run := range rt.runs {
		if run.StartTime.Before(cutoff) && run.Status != "running" {
			delete(rt.runs, id)
		}
	}
}
