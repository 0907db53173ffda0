// pkg/api/api_test.go
package api

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/PageXpect/pkg/expect"
	"github.com/valpere/PageXpect/pkg/htmldoc"
)

const fixturePage = `<html><body>
	<h1 id="title" class="headline major">Checkout</h1>
	<button id="pay" class="btn primary" disabled>Pay now</button>
	<div id="banner" style="display: none">Offer expired</div>
</body></html>`

func offlineConfig(t *testing.T) *SuiteConfig {
	t.Helper()
	return &SuiteConfig{
		Name:    "checkout",
		BaseURL: "https://shop.example.com/checkout",
		Report: ReportConfig{
			Format: "json",
			Path:   filepath.Join(t.TempDir(), "report.json"),
		},
		LogLevel: "error",
	}
}

func parseFixture(t *testing.T) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.Parse(fixturePage)
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *SuiteConfig
	}{
		{"nil config", nil},
		{"missing name", &SuiteConfig{
			Report: ReportConfig{Format: "json"},
		}},
		{"unsupported report format", &SuiteConfig{
			Name:   "suite",
			Report: ReportConfig{Format: "parquet"},
		}},
		{"sqlite without path", &SuiteConfig{
			Name:   "suite",
			Report: ReportConfig{Format: "sqlite"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)
			if err == nil {
				client.Close()
				t.Fatal("expected an error")
			}
		})
	}
}

func TestOfflineSuiteCollectsFailures(t *testing.T) {
	client, err := New(offlineConfig(t))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	defer client.Close()

	doc := parseFixture(t)

	client.ExpectDoc(doc, "#title").HasClass("headline")
	client.ExpectDoc(doc, "#title").Text().Equals("Checkout")
	client.ExpectDoc(doc, "#pay").IsDisabled()
	client.ExpectDoc(doc, "#banner").IsNotDisplayed()

	if err := client.Err(); err != nil {
		t.Fatalf("expected no failures yet, got %v", err)
	}

	client.ExpectDoc(doc, "#title").HasClass("missing")

	failures := client.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d: %v", len(failures), failures)
	}
	want := "Expected #title to have class 'missing'."
	if failures[0] != want {
		t.Errorf("expected %q, got %q", want, failures[0])
	}
	if client.Err() == nil {
		t.Error("expected Err to report the failure")
	}
}

func TestExpectWithoutSessionPanics(t *testing.T) {
	client, err := New(offlineConfig(t))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	defer client.Close()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		if _, ok := r.(*expect.MisuseError); !ok {
			t.Errorf("expected *expect.MisuseError, got %T", r)
		}
	}()
	client.Expect("#title")
}

func TestExpectDocNilDocumentPanics(t *testing.T) {
	client, err := New(offlineConfig(t))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	defer client.Close()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		if _, ok := r.(*expect.MisuseError); !ok {
			t.Errorf("expected *expect.MisuseError, got %T", r)
		}
	}()
	client.ExpectDoc(nil, "#title")
}

func TestPageValidation(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.AllowedHosts = []string{"shop.example.com"}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	if err := client.Page(ctx, "ftp://shop.example.com/"); err == nil {
		t.Error("expected an error for a disallowed scheme")
	}
	if err := client.Page(ctx, "https://evil.example.org/"); err == nil {
		t.Error("expected an error for a disallowed host")
	}

	err = client.Page(ctx, "https://shop.example.com/checkout")
	if err == nil {
		t.Fatal("expected an error without a browser session")
	}
	if !strings.Contains(err.Error(), "no browser session") {
		t.Errorf("expected the no-session error, got %v", err)
	}
}

type reportRow struct {
	Suite   string `json:"suite"`
	Page    string `json:"page"`
	Check   string `json:"check"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func readReport(t *testing.T, path string) []reportRow {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var rows []reportRow
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("failed to decode report %s: %v", data, err)
	}
	return rows
}

func TestWriteReportWritesFailures(t *testing.T) {
	cfg := offlineConfig(t)
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	doc := parseFixture(t)
	client.ExpectDoc(doc, "#title").HasClass("missing")
	client.ExpectDoc(doc, "#missing").Text().Equals("anything")

	if err := client.WriteReport(context.Background()); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("failed to close client: %v", err)
	}

	rows := readReport(t, cfg.Report.Path)
	if len(rows) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rows))
	}

	if rows[0].Suite != "checkout" {
		t.Errorf("expected suite checkout, got %q", rows[0].Suite)
	}
	if rows[0].Page != cfg.BaseURL {
		t.Errorf("expected page %q, got %q", cfg.BaseURL, rows[0].Page)
	}
	if rows[0].Status != "fail" {
		t.Errorf("expected a fail record, got %q", rows[0].Status)
	}
	if rows[1].Status != "error" {
		t.Errorf("expected an error record for the access failure, got %q", rows[1].Status)
	}
	if !strings.HasPrefix(rows[1].Message, "Failed to access text of #missing") {
		t.Errorf("unexpected access failure message %q", rows[1].Message)
	}
}

func TestWriteReportWithoutFailures(t *testing.T) {
	cfg := offlineConfig(t)
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	doc := parseFixture(t)
	client.ExpectDoc(doc, "#pay").HasClass("btn")

	if err := client.WriteReport(context.Background()); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("failed to close client: %v", err)
	}

	if rows := readReport(t, cfg.Report.Path); len(rows) != 0 {
		t.Errorf("expected an empty report, got %d records", len(rows))
	}
}

func TestResetDiscardsFailures(t *testing.T) {
	cfg := offlineConfig(t)
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	doc := parseFixture(t)
	client.ExpectDoc(doc, "#title").HasClass("missing")
	client.Reset()

	if n := len(client.Failures()); n != 0 {
		t.Fatalf("expected no failures after reset, got %d", n)
	}
	if err := client.WriteReport(context.Background()); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("failed to close client: %v", err)
	}

	if rows := readReport(t, cfg.Report.Path); len(rows) != 0 {
		t.Errorf("expected an empty report after reset, got %d records", len(rows))
	}
}

func TestMetricsReporterStillCollects(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Monitoring = MonitoringConfig{Enabled: true}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	defer client.Close()

	if client.Reporter() == nil {
		t.Fatal("expected a reporter")
	}

	doc := parseFixture(t)
	client.ExpectDoc(doc, "#title").HasClass("missing")

	if n := len(client.Failures()); n != 1 {
		t.Errorf("expected the wrapped reporter to forward the failure, got %d", n)
	}
}

func TestExternalSubjectsShareReporter(t *testing.T) {
	client, err := New(offlineConfig(t))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	defer client.Close()

	expect.String(client.Reporter(), "total: 42").Named("summary").Contains("43")

	failures := client.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if !strings.Contains(failures[0], "summary") {
		t.Errorf("expected the failure to name the subject, got %q", failures[0])
	}
}

func TestMonitoringLifecycle(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Monitoring = MonitoringConfig{Enabled: true, Listen: "127.0.0.1:0"}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("failed to close client: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("expected idempotent close, got %v", err)
	}
}
