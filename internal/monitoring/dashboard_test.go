// internal/monitoring/dashboard_test.go
package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestDashboard(t *testing.T) (*Dashboard, *httptest.Server) {
	t.Helper()

	mm := NewMetricsManager(MetricsConfig{})
	hm := NewHealthManager(HealthConfig{})
	hm.RegisterCheck(staticCheck("ok", HealthStatusHealthy, false))
	hm.runAllChecks(context.Background())

	d := NewDashboard(mm, hm, DashboardConfig{})
	srv := httptest.NewServer(d.Router())
	t.Cleanup(srv.Close)

	return d, srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestDashboardHealthEndpoints(t *testing.T) {
	_, srv := newTestDashboard(t)

	for _, path := range []string{"/healthz", "/readyz", "/livez"} {
		t.Run(path, func(t *testing.T) {
			var health SystemHealth
			if code := getJSON(t, srv.URL+path, &health); code != http.StatusOK {
				t.Errorf("expected status 200, got %d", code)
			}
			if health.Status != HealthStatusHealthy {
				t.Errorf("expected healthy, got %q", health.Status)
			}
		})
	}
}

func TestDashboardMetricsEndpoint(t *testing.T) {
	d, srv := newTestDashboard(t)
	d.metricsManager.RecordCheck("checkout", "HasClass", "pass")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("failed to read exposition: %v", err)
	}
	if !strings.Contains(buf.String(), "pagexpect_suite_checks_total") {
		t.Errorf("exposition missing check counter:\n%s", buf.String())
	}
}

func TestDashboardRunsEndpoint(t *testing.T) {
	d, srv := newTestDashboard(t)

	run := &RunStatus{ID: "run-1", Suite: "checkout", Page: "https://shop.example/cart"}
	d.Runs().StartRun(run)
	d.Runs().UpdateRun("run-1", 12, 2, 1)

	var list struct {
		Runs  []RunStatus `json:"runs"`
		Total int         `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/runs", &list); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if list.Total != 1 || len(list.Runs) != 1 {
		t.Fatalf("expected one run, got total=%d len=%d", list.Total, len(list.Runs))
	}
	if list.Runs[0].Checks != 12 || list.Runs[0].Failures != 2 || list.Runs[0].AccessErrors != 1 {
		t.Errorf("unexpected run counters: %+v", list.Runs[0])
	}

	var single RunStatus
	if code := getJSON(t, srv.URL+"/api/v1/runs/run-1", &single); code != http.StatusOK {
		t.Fatalf("expected status 200 for known run, got %d", code)
	}
	if single.Suite != "checkout" {
		t.Errorf("expected suite 'checkout', got %q", single.Suite)
	}

	var missing struct {
		Error string `json:"error"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/runs/absent", &missing); code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown run, got %d", code)
	}
	if missing.Error == "" {
		t.Error("expected error message in 404 body")
	}
}

func TestDashboardActiveRunsFilter(t *testing.T) {
	d, srv := newTestDashboard(t)

	d.Runs().StartRun(&RunStatus{ID: "done", Suite: "checkout"})
	d.Runs().CompleteRun("done", true)
	d.Runs().StartRun(&RunStatus{ID: "live", Suite: "signup"})

	var list struct {
		Runs  []RunStatus `json:"runs"`
		Total int         `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/runs?active=true", &list); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if list.Total != 1 || list.Runs[0].ID != "live" {
		t.Errorf("expected only the running suite, got %+v", list.Runs)
	}
}

func TestDashboardStatusEndpoint(t *testing.T) {
	_, srv := newTestDashboard(t)

	var status struct {
		Title      string `json:"title"`
		Status     string `json:"status"`
		ActiveRuns int    `json:"active_runs"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if status.Title != "PageXpect Monitoring" {
		t.Errorf("expected default title, got %q", status.Title)
	}
	if status.Status != string(HealthStatusHealthy) {
		t.Errorf("expected healthy status, got %q", status.Status)
	}
}

func TestDashboardMethodRestrictions(t *testing.T) {
	_, srv := newTestDashboard(t)

	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for POST, got %d", resp.StatusCode)
	}
}

func TestRunTrackerLifecycle(t *testing.T) {
	rt := NewRunTracker(RunTrackerConfig{})

	run := &RunStatus{Suite: "checkout"}
	rt.StartRun(run)

	if run.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}
	if run.Status != "running" {
		t.Errorf("expected status 'running', got %q", run.Status)
	}

	rt.UpdateRun(run.ID, 5, 1, 0)
	got, ok := rt.GetRun(run.ID)
	if !ok {
		t.Fatal("expected run to be tracked")
	}
	if got.Checks != 5 || got.Failures != 1 {
		t.Errorf("unexpected counters after update: %+v", got)
	}

	rt.CompleteRun(run.ID, false)
	got, _ = rt.GetRun(run.ID)
	if got.Status != "failed" {
		t.Errorf("expected status 'failed', got %q", got.Status)
	}
	if got.EndTime == nil {
		t.Error("expected end time to be set")
	}
}

func TestRunTrackerOrdersNewestFirst(t *testing.T) {
	rt := NewRunTracker(RunTrackerConfig{})

	rt.StartRun(&RunStatus{ID: "first", Suite: "a"})
	time.Sleep(time.Millisecond)
	rt.StartRun(&RunStatus{ID: "second", Suite: "b"})

	runs := rt.GetAllRuns()
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "second" {
		t.Errorf("expected newest run first, got %q", runs[0].ID)
	}
}

func TestRunTrackerRetention(t *testing.T) {
	rt := NewRunTracker(RunTrackerConfig{MaxRuns: 2, RetentionPeriod: 10 * time.Millisecond})

	rt.StartRun(&RunStatus{ID: "old-done", Suite: "a"})
	rt.CompleteRun("old-done", true)
	rt.StartRun(&RunStatus{ID: "old-live", Suite: "b"})
	time.Sleep(20 * time.Millisecond)

	// The third start exceeds MaxRuns and triggers cleanup: the old
	// finished run goes, the old running run stays.
	rt.StartRun(&RunStatus{ID: "new", Suite: "c"})

	if _, ok := rt.GetRun("old-done"); ok {
		t.Error("expected expired finished run to be dropped")
	}
	if _, ok := rt.GetRun("old-live"); !ok {
		t.Error("expected running run to survive cleanup")
	}
	if _, ok := rt.GetRun("new"); !ok {
		t.Error("expected new run to be tracked")
	}
}
