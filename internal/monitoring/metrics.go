// internal/monitoring/metrics.go

// Package monitoring exposes the observability surface for assertion
// suites: Prometheus metrics for checks, fetches and report writes, a
// health manager with registered component checks, and an HTTP
// dashboard serving both plus recent run summaries.
package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/expect"
)

// MetricsManager manages Prometheus metrics for assertion suites. Each
// manager owns its registry, so independent suites (and tests) can hold
// their own instance without colliding on metric registration.
type MetricsManager struct {
	// Check metrics
	checksTotal   *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec

	// Driver fetch metrics
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec

	// Session metrics
	sessionsActive   prometheus.Gauge
	navigationsTotal *prometheus.CounterVec

	// Report sink metrics
	recordsWritten  *prometheus.CounterVec
	reportErrors    *prometheus.CounterVec
	reportWriteTime *prometheus.HistogramVec

	// System metrics
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge

	// Custom metrics
	customMetrics map[string]prometheus.Collector
	customMutex   sync.RWMutex

	// Configuration
	registry  *prometheus.Registry
	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace            string `json:"namespace"`
	Subsystem            string `json:"subsystem"`
	EnableGoMetrics      bool   `json:"enable_go_metrics"`
	EnableProcessMetrics bool   `json:"enable_process_metrics"`
	MetricsPath          string `json:"metrics_path"`
	ListenAddress        string `json:"listen_address"`
}

// NewMetricsManager creates a new metrics manager. Namespace and
// subsystem come from suite configuration, so they are sanitized into
// valid metric name segments before registration.
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "pagexpect"
	}
	if config.Subsystem == "" {
		config.Subsystem = "suite"
	}
	config.Namespace = utils.SanitizeFieldName(config.Namespace)
	config.Subsystem = utils.SanitizeFieldName(config.Subsystem)
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.ListenAddress == "" {
		config.ListenAddress = ":9090"
	}

	mm := &MetricsManager{
		registry:      prometheus.NewRegistry(),
		namespace:     config.Namespace,
		subsystem:     config.Subsystem,
		customMetrics: make(map[string]prometheus.Collector),
	}

	if config.EnableGoMetrics {
		mm.registry.MustRegister(collectors.NewGoCollector())
	}
	if config.EnableProcessMetrics {
		mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	mm.initializeMetrics()

	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	// Check metrics
	mm.checksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "checks_total",
			Help:      "Total number of settled assertion checks",
		},
		[]string{"suite", "check", "status"},
	)

	mm.failuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "failures_total",
			Help:      "Total number of reported assertion failures",
		},
		[]string{"suite", "kind"},
	)

	// Driver fetch metrics
	mm.fetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fetches_total",
			Help:      "Total number of element state fetches",
		},
		[]string{"kind", "status"},
	)

	mm.fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Element state fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	mm.fetchErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fetch_errors_total",
			Help:      "Total number of rejected element state fetches",
		},
		[]string{"kind"},
	)

	// Session metrics
	mm.sessionsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "sessions_active",
			Help:      "Number of currently open browser sessions",
		},
	)

	mm.navigationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "navigations_total",
			Help:      "Total number of page navigations",
		},
		[]string{"status"},
	)

	// Report sink metrics
	mm.recordsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "report_records_written_total",
			Help:      "Total number of check records written to the report sink",
		},
		[]string{"format"},
	)

	mm.reportErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "report_errors_total",
			Help:      "Total number of failed report sink writes",
		},
		[]string{"format"},
	)

	mm.reportWriteTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "report_write_duration_seconds",
			Help:      "Report sink write duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 25.0},
		},
		[]string{"format"},
	)

	// System metrics
	mm.memoryUsage = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "memory_usage_bytes",
			Help:      "Current memory usage in bytes",
		},
	)

	mm.goroutineCount = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "goroutines_count",
			Help:      "Current number of goroutines",
		},
	)
}

// Check metrics

// RecordCheck counts one settled check outcome. Status is the report
// classification: pass, fail or error.
func (mm *MetricsManager) RecordCheck(suite, check, status string) {
	mm.checksTotal.WithLabelValues(suite, check, status).Inc()
}

// WrapReporter returns a Reporter that counts every failure flowing
// through it before forwarding to next. Rejected fetches count under
// kind "access", everything else under "assertion". A nil next counts
// without forwarding.
func (mm *MetricsManager) WrapReporter(suite string, next expect.Reporter) expect.Reporter {
	return &countingReporter{mm: mm, suite: suite, next: next}
}

type countingReporter struct {
	mm    *MetricsManager
	suite string
	next  expect.Reporter
}

func (r *countingReporter) Fail(message string) {
	kind := "assertion"
	if strings.HasPrefix(message, expect.AccessFailurePrefix) {
		kind = "access"
	}
	r.mm.failuresTotal.WithLabelValues(r.suite, kind).Inc()

	if r.next != nil {
		r.next.Fail(message)
	}
}

// Driver fetch metrics. ObserveFetch satisfies the browser session's
// observer callback.
func (mm *MetricsManager) ObserveFetch(kind string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		mm.fetchErrors.WithLabelValues(kind).Inc()
	}
	mm.fetchesTotal.WithLabelValues(kind, status).Inc()
	mm.fetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Session metrics
func (mm *MetricsManager) IncActiveSessions() {
	mm.sessionsActive.Inc()
}

func (mm *MetricsManager) DecActiveSessions() {
	mm.sessionsActive.Dec()
}

func (mm *MetricsManager) RecordNavigation(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mm.navigationsTotal.WithLabelValues(status).Inc()
}

// Report sink metrics
func (mm *MetricsManager) RecordReportWrite(format string, records int, duration time.Duration, err error) {
	if err != nil {
		mm.reportErrors.WithLabelValues(format).Inc()
		return
	}
	mm.recordsWritten.WithLabelValues(format).Add(float64(records))
	mm.reportWriteTime.WithLabelValues(format).Observe(duration.Seconds())
}

// System metrics
func (mm *MetricsManager) UpdateMemoryUsage(bytes int64) {
	mm.memoryUsage.Set(float64(bytes))
}

func (mm *MetricsManager) UpdateGoroutineCount(count int) {
	mm.goroutineCount.Set(float64(count))
}

// Custom metrics
func (mm *MetricsManager) RegisterCustomCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := promauto.With(mm.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)

	mm.customMutex.Lock()
	mm.customMetrics[name] = counter
	mm.customMutex.Unlock()

	return counter
}

func (mm *MetricsManager) RegisterCustomGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := promauto.With(mm.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)

	mm.customMutex.Lock()
	mm.customMetrics[name] = gauge
	mm.customMutex.Unlock()

	return gauge
}

func (mm *MetricsManager) RegisterCustomHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	histogram := promauto.With(mm.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)

	mm.customMutex.Lock()
	mm.customMetrics[name] = histogram
	mm.customMutex.Unlock()

	return histogram
}

// GetCustomMetric retrieves a custom metric by name
func (mm *MetricsManager) GetCustomMetric(name string) (prometheus.Collector, bool) {
	mm.customMutex.RLock()
	defer mm.customMutex.RUnlock()
	metric, exists := mm.customMetrics[name]
	return metric, exists
}

// MetricsHandler returns an HTTP handler for the metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts the metrics HTTP server
func (mm *MetricsManager) StartMetricsServer(ctx context.Context, address, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, mm.MetricsHandler())

	server := &http.Server{
		Addr:    address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	return server.ListenAndServe()
}

// GetMetrics returns current metric values as a map
// Note: This is a simplified implementation that returns basic metric metadata.
// For full metric values, use the Prometheus /metrics endpoint directly.
func (mm *MetricsManager) GetMetrics() map[string]interface{} {
	metrics := make(map[string]interface{})

	// Get current system metrics (these have actual values)
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	metrics["system"] = map[string]interface{}{
		"memory_alloc_bytes": m.Alloc,
		"memory_sys_bytes":   m.Sys,
		"goroutines_count":   runtime.NumGoroutine(),
		"gc_cycles":          m.NumGC,
	}

	// Metric registry information
	metrics["metric_families"] = map[string]interface{}{
		"checks_total":                 "Counter - Settled assertion checks by outcome",
		"failures_total":               "Counter - Reported failures by kind",
		"fetches_total":                "Counter - Element state fetches",
		"fetch_duration_seconds":       "Histogram - Element state fetch latency",
		"sessions_active":              "Gauge - Open browser sessions",
		"report_records_written_total": "Counter - Check records delivered to the sink",
	}

	metrics["note"] = "For current metric values, query the metrics endpoint at the configured address and path (e.g., http://localhost:9090/metrics)"

	return metrics
}
