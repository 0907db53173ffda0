// internal/monitoring/metrics_test.go
package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valpere/PageXpect/pkg/browser"
	"github.com/valpere/PageXpect/pkg/expect"
)

// The session hands fetch outcomes to whatever observer is attached.
var _ browser.Observer = (*MetricsManager)(nil)

// scrape returns the text exposition of the manager's registry.
func scrape(t *testing.T, mm *MetricsManager) string {
	t.Helper()

	srv := httptest.NewServer(mm.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	return string(body)
}

func TestNewMetricsManagerDefaults(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	if mm.namespace != "pagexpect" {
		t.Errorf("expected namespace 'pagexpect', got %q", mm.namespace)
	}
	if mm.subsystem != "suite" {
		t.Errorf("expected subsystem 'suite', got %q", mm.subsystem)
	}
}

func TestIndependentManagersDoNotCollide(t *testing.T) {
	// Each manager owns a registry, so building several in one process
	// must not panic and their counts must stay separate.
	a := NewMetricsManager(MetricsConfig{})
	b := NewMetricsManager(MetricsConfig{})

	a.RecordCheck("checkout", "HasClass", "pass")

	if got := scrape(t, a); !strings.Contains(got, `pagexpect_suite_checks_total{check="HasClass",status="pass",suite="checkout"} 1`) {
		t.Errorf("first manager exposition missing its check count:\n%s", got)
	}
	if got := scrape(t, b); strings.Contains(got, "checks_total{") {
		t.Errorf("second manager exposition leaked counts from the first:\n%s", got)
	}
}

func TestRecordCheckExposition(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.RecordCheck("checkout", "HasClass", "pass")
	mm.RecordCheck("checkout", "HasClass", "pass")
	mm.RecordCheck("checkout", "IsDisplayed", "fail")

	got := scrape(t, mm)
	if !strings.Contains(got, `pagexpect_suite_checks_total{check="HasClass",status="pass",suite="checkout"} 2`) {
		t.Errorf("missing pass count:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_checks_total{check="IsDisplayed",status="fail",suite="checkout"} 1`) {
		t.Errorf("missing fail count:\n%s", got)
	}
}

func TestObserveFetch(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.ObserveFetch("text", 5*time.Millisecond, nil)
	mm.ObserveFetch("text", 3*time.Millisecond, nil)
	mm.ObserveFetch("attribute", 2*time.Millisecond, errors.New("no element matches selector"))

	got := scrape(t, mm)
	if !strings.Contains(got, `pagexpect_suite_fetches_total{kind="text",status="ok"} 2`) {
		t.Errorf("missing ok fetch count:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_fetches_total{kind="attribute",status="error"} 1`) {
		t.Errorf("missing error fetch count:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_fetch_errors_total{kind="attribute"} 1`) {
		t.Errorf("missing fetch error count:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_fetch_duration_seconds_count{kind="text"} 2`) {
		t.Errorf("missing fetch duration observations:\n%s", got)
	}
}

func TestWrapReporterCountsAndForwards(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})
	collector := expect.NewCollector()

	reporter := mm.WrapReporter("checkout", collector)
	reporter.Fail("Expected element to have class 'visible'.")
	reporter.Fail("Failed to access text of element with error: stale element.")

	if collector.FailureCount() != 2 {
		t.Errorf("expected 2 forwarded failures, got %d", collector.FailureCount())
	}

	got := scrape(t, mm)
	if !strings.Contains(got, `pagexpect_suite_failures_total{kind="assertion",suite="checkout"} 1`) {
		t.Errorf("missing assertion failure count:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_failures_total{kind="access",suite="checkout"} 1`) {
		t.Errorf("missing access failure count:\n%s", got)
	}
}

func TestWrapReporterWithoutNext(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	reporter := mm.WrapReporter("checkout", nil)
	reporter.Fail("Expected element to be displayed.")

	got := scrape(t, mm)
	if !strings.Contains(got, `pagexpect_suite_failures_total{kind="assertion",suite="checkout"} 1`) {
		t.Errorf("count-only reporter did not record the failure:\n%s", got)
	}
}

func TestSessionAndNavigationMetrics(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.IncActiveSessions()
	mm.IncActiveSessions()
	mm.DecActiveSessions()
	mm.RecordNavigation(nil)
	mm.RecordNavigation(errors.New("navigation failed"))

	got := scrape(t, mm)
	if !strings.Contains(got, "pagexpect_suite_sessions_active 1") {
		t.Errorf("expected one active session:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_navigations_total{status="ok"} 1`) {
		t.Errorf("missing ok navigation:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_navigations_total{status="error"} 1`) {
		t.Errorf("missing failed navigation:\n%s", got)
	}
}

func TestRecordReportWrite(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.RecordReportWrite("json", 3, 10*time.Millisecond, nil)
	mm.RecordReportWrite("json", 2, 5*time.Millisecond, errors.New("sink unavailable"))

	got := scrape(t, mm)
	if !strings.Contains(got, `pagexpect_suite_report_records_written_total{format="json"} 3`) {
		t.Errorf("failed write should not count records:\n%s", got)
	}
	if !strings.Contains(got, `pagexpect_suite_report_errors_total{format="json"} 1`) {
		t.Errorf("missing report error count:\n%s", got)
	}
}

func TestRegisterCustomMetrics(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	counter := mm.RegisterCustomCounter("replays_total", "Recorded checks replayed after resolution", []string{"suite"})
	counter.WithLabelValues("checkout").Inc()

	if _, ok := mm.GetCustomMetric("replays_total"); !ok {
		t.Error("expected registered custom metric to be retrievable")
	}
	if _, ok := mm.GetCustomMetric("missing"); ok {
		t.Error("expected lookup of unknown metric to fail")
	}

	got := scrape(t, mm)
	if !strings.Contains(got, `pagexpect_suite_replays_total{suite="checkout"} 1`) {
		t.Errorf("missing custom counter:\n%s", got)
	}
}

func TestGetMetricsSnapshot(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	metrics := mm.GetMetrics()

	system, ok := metrics["system"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected system metrics map, got %T", metrics["system"])
	}
	if _, ok := system["goroutines_count"]; !ok {
		t.Error("expected goroutine count in system metrics")
	}
	if _, ok := metrics["metric_families"]; !ok {
		t.Error("expected metric family listing")
	}
}
