// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/valpere/PageXpect/internal/report"
	"github.com/valpere/PageXpect/internal/utils"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name      string                                      `json:"name"`
	Status    HealthStatus                                `json:"status"`
	Message   string                                      `json:"message,omitempty"`
	Error     string                                      `json:"error,omitempty"`
	LastCheck time.Time                                   `json:"last_check"`
	Duration  time.Duration                               `json:"duration"`
	Metadata  map[string]interface{}                      `json:"metadata,omitempty"`
	CheckFunc func(ctx context.Context) HealthCheckResult `json:"-"`
	Timeout   time.Duration                               `json:"-"`
	Critical  bool                                        `json:"critical"`
	Enabled   bool                                        `json:"enabled"`
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    error                  `json:"-"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HealthManager runs registered health checks on a schedule and
// aggregates their results
type HealthManager struct {
	checks      map[string]*HealthCheck
	checksMutex sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	config      HealthConfig
}

// HealthConfig configuration for health monitoring
type HealthConfig struct {
	CheckInterval    time.Duration `json:"check_interval"`
	DefaultTimeout   time.Duration `json:"default_timeout"`
	DetailedResponse bool          `json:"detailed_response"`
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    time.Duration          `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
	Summary   HealthSummary          `json:"summary"`
	System    SystemMetrics          `json:"system"`
}

// HealthSummary provides a summary of health checks
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Degraded  int `json:"degraded"`
	Unknown   int `json:"unknown"`
	Critical  int `json:"critical"`
}

// SystemMetrics provides system-level metrics
type SystemMetrics struct {
	MemoryUsage    MemoryMetrics `json:"memory"`
	GoroutineCount int           `json:"goroutine_count"`
	Uptime         time.Duration `json:"uptime"`
}

// MemoryMetrics provides memory usage information
type MemoryMetrics struct {
	Allocated    uint64  `json:"allocated_bytes"`
	TotalAlloc   uint64  `json:"total_alloc_bytes"`
	System       uint64  `json:"system_bytes"`
	NumGC        uint32  `json:"num_gc"`
	UsagePercent float64 `json:"usage_percent"`
}

// NewHealthManager creates a new health manager
func NewHealthManager(config HealthConfig) *HealthManager {
	if config.CheckInterval == 0 {
		config.CheckInterval = 30 * time.Second
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 10 * time.Second
	}

	return &HealthManager{
		checks: make(map[string]*HealthCheck),
		stopCh: make(chan struct{}),
		config: config,
	}
}

// RegisterCheck registers a new health check
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = hm.config.DefaultTimeout
	}
	if !check.Enabled {
		check.Enabled = true
	}

	hm.checksMutex.Lock()
	hm.checks[check.Name] = check
	hm.checksMutex.Unlock()
}

// RemoveCheck removes a health check
func (hm *HealthManager) RemoveCheck(name string) {
	hm.checksMutex.Lock()
	delete(hm.checks, name)
	hm.checksMutex.Unlock()
}

// Start starts the health monitoring
func (hm *HealthManager) Start(ctx context.Context) {
	hm.ticker = time.NewTicker(hm.config.CheckInterval)

	go func() {
		// Run initial checks
		hm.runAllChecks(ctx)

		for {
			select {
			case <-hm.ticker.C:
				hm.runAllChecks(ctx)
			case <-hm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the health monitoring
func (hm *HealthManager) Stop() {
	if hm.ticker != nil {
		hm.ticker.Stop()
	}
	close(hm.stopCh)
}

// runAllChecks runs all registered health checks concurrently
func (hm *HealthManager) runAllChecks(ctx context.Context) {
	hm.checksMutex.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		if check.Enabled {
			checks = append(checks, check)
		}
	}
	hm.checksMutex.RUnlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c *HealthCheck) {
			defer wg.Done()
			hm.runCheck(ctx, c)
		}(check)
	}
	wg.Wait()
}

// runCheck runs a single health check and stores the outcome on the
// check itself
func (hm *HealthManager) runCheck(ctx context.Context, check *HealthCheck) {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	var result HealthCheckResult

	if check.CheckFunc != nil {
		result = check.CheckFunc(checkCtx)
	} else {
		result = HealthCheckResult{
			Status:  HealthStatusUnknown,
			Message: "No check function defined",
		}
	}

	hm.checksMutex.Lock()
	check.LastCheck = start
	check.Duration = time.Since(start)
	check.Status = result.Status
	check.Message = result.Message
	if result.Error != nil {
		check.Error = result.Error.Error()
	} else {
		check.Error = ""
	}
	if result.Metadata != nil {
		check.Metadata = result.Metadata
	}
	hm.checksMutex.Unlock()
}

// GetHealth returns the overall health status
func (hm *HealthManager) GetHealth() SystemHealth {
	hm.checksMutex.RLock()
	defer hm.checksMutex.RUnlock()

	health := SystemHealth{
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime),
		System:    getSystemMetrics(),
	}

	if hm.config.DetailedResponse {
		health.Checks = make(map[string]HealthCheck)
		for name, check := range hm.checks {
			health.Checks[name] = *check
		}
	}

	summary := HealthSummary{}
	overallStatus := HealthStatusHealthy

	for _, check := range hm.checks {
		if !check.Enabled {
			continue
		}

		summary.Total++

		switch check.Status {
		case HealthStatusHealthy:
			summary.Healthy++
		case HealthStatusUnhealthy:
			summary.Unhealthy++
			if check.Critical {
				overallStatus = HealthStatusUnhealthy
			} else if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		case HealthStatusDegraded:
			summary.Degraded++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		case HealthStatusUnknown:
			summary.Unknown++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}

		if check.Critical {
			summary.Critical++
		}
	}

	health.Status = overallStatus
	health.Summary = summary

	return health
}

// GetReadiness returns readiness status. Degraded still serves traffic,
// unhealthy does not.
func (hm *HealthManager) GetReadiness() SystemHealth {
	health := hm.GetHealth()

	if health.Status == HealthStatusUnhealthy {
		health.Status = HealthStatusUnhealthy
	} else {
		health.Status = HealthStatusHealthy
	}

	return health
}

// GetLiveness returns liveness status. Only critical failures affect
// liveness.
func (hm *HealthManager) GetLiveness() SystemHealth {
	health := hm.GetHealth()

	criticalFailures := false

	hm.checksMutex.RLock()
	for _, check := range hm.checks {
		if check.Critical && check.Status == HealthStatusUnhealthy {
			criticalFailures = true
			break
		}
	}
	hm.checksMutex.RUnlock()

	if criticalFailures {
		health.Status = HealthStatusUnhealthy
	} else {
		health.Status = HealthStatusHealthy
	}

	return health
}

// getSystemMetrics collects system-level metrics
func getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: MemoryMetrics{
			Allocated:    m.Alloc,
			TotalAlloc:   m.TotalAlloc,
			System:       m.Sys,
			NumGC:        m.NumGC,
			UsagePercent: float64(m.Alloc) / float64(m.Sys) * 100,
		},
		GoroutineCount: runtime.NumGoroutine(),
		Uptime:         time.Since(startTime),
	}
}

// HealthHandler returns the HTTP handler for the health endpoint
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth()

		w.Header().Set("Content-Type", "application/json")

		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

// ReadinessHandler returns the HTTP handler for the readiness endpoint
func (hm *HealthManager) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetReadiness()

		w.Header().Set("Content-Type", "application/json")

		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

// LivenessHandler returns the HTTP handler for the liveness endpoint
func (hm *HealthManager) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetLiveness()

		w.Header().Set("Content-Type", "application/json")

		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

var startTime time.Time

func init() {
	startTime = time.Now()
}

// BrowserHealthCheck probes the browser session through checkFunc,
// typically a bound Session.Drain. A session that cannot complete a
// queued no-op within the check timeout is considered down.
func BrowserHealthCheck(name string, checkFunc func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: true,
		Enabled:  true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			start := time.Now()
			err := checkFunc(ctx)
			elapsed := time.Since(start)

			metadata := map[string]interface{}{
				"response_time_ms": elapsed.Milliseconds(),
			}

			if err != nil {
				return HealthCheckResult{
					Status:   HealthStatusUnhealthy,
					Message:  "Browser session is not responding",
					Error:    err,
					Metadata: metadata,
				}
			}
			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  "Browser session responsive",
				Metadata: metadata,
			}
		},
	}
}

// ReportSinkHealthCheck reports sink deliverability from the report
// manager's circuit breaker: open means undeliverable, half-open means
// recovering.
func ReportSinkHealthCheck(stats func() report.ManagerStats) *HealthCheck {
	return &HealthCheck{
		Name:     "report-sink",
		Critical: true,
		Enabled:  true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			s := stats()

			metadata := map[string]interface{}{
				"written":  s.Written,
				"dropped":  s.Dropped,
				"buffered": s.Buffered,
			}

			state, _ := s.Breaker["state"].(string)
			switch state {
			case "open":
				return HealthCheckResult{
					Status:   HealthStatusUnhealthy,
					Message:  "Report sink circuit is open",
					Metadata: metadata,
				}
			case "half-open":
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  "Report sink circuit is recovering",
					Metadata: metadata,
				}
			default:
				return HealthCheckResult{
					Status:   HealthStatusHealthy,
					Message:  "Report sink deliverable",
					Metadata: metadata,
				}
			}
		},
	}
}

// PageHealthCheck probes the page under test with a plain GET, so a
// suite can tell a broken deployment from broken assertions.
func PageHealthCheck(name, url string, timeout time.Duration) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: false,
		Enabled:  true,
		Timeout:  timeout,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			client := &http.Client{Timeout: timeout}

			req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
			if err != nil {
				return HealthCheckResult{
					Status:  HealthStatusUnhealthy,
					Message: "Failed to create request",
					Error:   err,
				}
			}

			start := time.Now()
			resp, err := client.Do(req)
			duration := time.Since(start)

			metadata := map[string]interface{}{
				"url":              url,
				"response_time_ms": duration.Milliseconds(),
			}

			if err != nil {
				// Transient network errors degrade the check instead of
				// failing it, the page may recover on the next probe.
				status := HealthStatusUnhealthy
				if utils.IsTemporaryError(err) {
					status = HealthStatusDegraded
				}
				return HealthCheckResult{
					Status:   status,
					Message:  "Page request failed",
					Error:    err,
					Metadata: metadata,
				}
			}
			defer resp.Body.Close()

			metadata["status_code"] = resp.StatusCode

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return HealthCheckResult{
					Status:   HealthStatusHealthy,
					Message:  fmt.Sprintf("Page check passed (%d)", resp.StatusCode),
					Metadata: metadata,
				}
			}

			return HealthCheckResult{
				Status:   HealthStatusUnhealthy,
				Message:  fmt.Sprintf("Page check failed (%d)", resp.StatusCode),
				Metadata: metadata,
			}
		},
	}
}

// MemoryHealthCheck creates a memory usage health check
func MemoryHealthCheck(maxUsagePercent float64) *HealthCheck {
	return &HealthCheck{
		Name:     "memory",
		Critical: false,
		Enabled:  true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			usagePercent := float64(m.Alloc) / float64(m.Sys) * 100

			metadata := map[string]interface{}{
				"allocated_bytes": m.Alloc,
				"system_bytes":    m.Sys,
				"usage_percent":   usagePercent,
			}

			if usagePercent > maxUsagePercent {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("High memory usage: %.2f%%", usagePercent),
					Metadata: metadata,
				}
			}

			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  fmt.Sprintf("Memory usage normal: %.2f%%", usagePercent),
				Metadata: metadata,
			}
		},
	}
}

// GoroutineHealthCheck creates a goroutine count health check
func GoroutineHealthCheck(maxGoroutines int) *HealthCheck {
	return &HealthCheck{
		Name:     "goroutines",
		Critical: false,
		Enabled:  true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			count := runtime.NumGoroutine()

			metadata := map[string]interface{}{
				"goroutine_count": count,
				"max_allowed":     maxGoroutines,
			}

			if count > maxGoroutines {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("High goroutine count: %d", count),
					Metadata: metadata,
				}
			}

			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  fmt.Sprintf("Goroutine count normal: %d", count),
				Metadata: metadata,
			}
		},
	}
}
