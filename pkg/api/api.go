// pkg/api/api.go

// Package api is the high-level facade over the assertion stack. A
// Client wires the suite configuration, the browser session, the
// failure collector, metrics and the report sink together, so a suite
// reads as: open, navigate, expect, drain, report, close.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/valpere/PageXpect/internal/config"
	"github.com/valpere/PageXpect/internal/monitoring"
	"github.com/valpere/PageXpect/internal/report"
	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/browser"
	"github.com/valpere/PageXpect/pkg/expect"
	"github.com/valpere/PageXpect/pkg/htmldoc"
)

// Re-export types from internal packages for public API
type SuiteConfig = config.SuiteConfig
type ReportConfig = config.ReportConfig
type RetryConfig = config.RetryConfig
type MonitoringConfig = config.MonitoringConfig
type BrowserConfig = browser.Config

// LoadConfig reads a suite configuration from a YAML file, with
// environment variable expansion and defaults applied.
func LoadConfig(filename string) (*SuiteConfig, error) {
	return config.LoadFromFile(filename)
}

// Client runs one assertion suite. It owns the shared failure
// collector, the optional browser session and the report sink; every
// subject created through it reports into the same collector, so
// failures from all chains land in one place.
type Client struct {
	cfg       *SuiteConfig
	log       utils.Logger
	collector *expect.Collector
	reporter  expect.Reporter
	session   *browser.Session
	metrics   *monitoring.MetricsManager
	health    *monitoring.HealthManager
	dashboard *monitoring.Dashboard
	reports   *report.Manager
	urls      *utils.URLValidator

	monStop context.CancelFunc
	runID   string

	mu        sync.Mutex
	page      string
	closeOnce sync.Once
	closeErr  error
}

// New builds a client from cfg. The configuration is validated first.
// A browser starts only when cfg.Browser is present and enabled, so
// offline suites over parsed documents need no browser at all. When
// monitoring is enabled with a listen address, the client also serves
// the dashboard until Close.
func New(cfg *SuiteConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("suite configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite configuration: %w", err)
	}

	log := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel)).WithField("suite", cfg.Name)

	c := &Client{
		cfg:       cfg,
		log:       log,
		collector: expect.NewCollector(),
		urls: &utils.URLValidator{
			Required:       true,
			AllowedSchemes: []string{"http", "https"},
			AllowedHosts:   cfg.AllowedHosts,
		},
	}
	c.reporter = c.collector

	if cfg.Monitoring.Enabled {
		c.metrics = monitoring.NewMetricsManager(monitoring.MetricsConfig{
			Namespace: cfg.Monitoring.Namespace,
		})
		c.reporter = c.metrics.WrapReporter(cfg.Name, c.collector)
	}

	reports, err := report.NewManager(&cfg.Report, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build report sink: %w", err)
	}
	c.reports = reports

	if cfg.Browser != nil && cfg.Browser.Enabled {
		session, err := browser.NewSession(cfg.Browser)
		if err != nil {
			reports.Close()
			return nil, fmt.Errorf("failed to start browser session: %w", err)
		}
		session.SetLogger(log)
		if c.metrics != nil {
			session.SetObserver(c.metrics)
			c.metrics.IncActiveSessions()
		}
		c.session = session
	}

	if cfg.Monitoring.Enabled && cfg.Monitoring.Listen != "" {
		c.startMonitoring(cfg.Monitoring.Listen)
	}

	log.Infof("suite client ready, report format %s", cfg.Report.Format)
	return c, nil
}

// startMonitoring registers the health checks and serves the dashboard
// on addr until the client closes.
func (c *Client) startMonitoring(addr string) {
	c.health = monitoring.NewHealthManager(monitoring.HealthConfig{
		DetailedResponse: true,
	})
	if c.session != nil {
		c.health.RegisterCheck(monitoring.BrowserHealthCheck("browser", c.session.Drain))
	}
	c.health.RegisterCheck(monitoring.ReportSinkHealthCheck(c.reports.Stats))
	if c.cfg.BaseURL != "" {
		c.health.RegisterCheck(monitoring.PageHealthCheck("page", c.cfg.BaseURL, 10*time.Second))
	}

	c.dashboard = monitoring.NewDashboard(c.metrics, c.health, monitoring.DashboardConfig{
		Listen: addr,
	})

	run := &monitoring.RunStatus{Suite: c.cfg.Name, Page: c.cfg.BaseURL}
	c.dashboard.Runs().StartRun(run)
	c.runID = run.ID

	ctx, cancel := context.WithCancel(context.Background())
	c.monStop = cancel
	c.health.Start(ctx)

	go func() {
		if err := c.dashboard.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Errorf("dashboard server stopped: %v", err)
		}
	}()
}

// Page navigates the browser session to url and blocks until the page
// is ready or ctx is done. The URL must pass the scheme and host
// checks configured for the suite.
func (c *Client) Page(ctx context.Context, url string) error {
	if verr := c.urls.Validate(url); verr != nil {
		return fmt.Errorf("invalid page URL %q: %w", url, verr)
	}
	if c.session == nil {
		return fmt.Errorf("no browser session, enable the browser in the suite configuration")
	}
	if normalized, err := utils.NormalizeURL(url); err == nil {
		url = normalized
	}

	err := c.session.Navigate(ctx, url)
	if c.metrics != nil {
		c.metrics.RecordNavigation(err)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.page = url
	c.mu.Unlock()
	return nil
}

// Expect returns a subject for the first element matching selector on
// the current page, named after the selector. It requires a browser
// session; offline suites assert through ExpectDoc. Calling it without
// a session panics with *expect.MisuseError, the package's convention
// for programming errors.
func (c *Client) Expect(selector string) *expect.ElementSubject {
	if c.session == nil {
		panic(&expect.MisuseError{Reason: "no browser session, use ExpectDoc for offline documents"})
	}
	selector = utils.SanitizeSelector(selector)
	return expect.Element(c.reporter, c.session.Element(selector)).Named(selector)
}

// ExpectDoc returns a subject for the first element matching selector
// in a parsed offline document, named after the selector.
func (c *Client) ExpectDoc(doc *htmldoc.Document, selector string) *expect.ElementSubject {
	if doc == nil {
		panic(&expect.MisuseError{Reason: "nil document"})
	}
	selector = utils.SanitizeSelector(selector)
	return expect.Element(c.reporter, doc.Element(selector)).Named(selector)
}

// Reporter returns the failure target subjects created through this
// client report into. Hand it to expect.That or expect.Element to let
// externally built subjects join the suite.
func (c *Client) Reporter() expect.Reporter {
	return c.reporter
}

// Drain blocks until every driver operation submitted so far has
// settled, or ctx is done. Offline fetches settle immediately, so a
// client without a browser session has nothing to wait for.
func (c *Client) Drain(ctx context.Context) error {
	if c.session == nil {
		return nil
	}
	return c.session.Drain(ctx)
}

// Failures returns the failure messages collected so far, in report
// order.
func (c *Client) Failures() []string {
	return c.collector.Failures()
}

// Err returns nil when no failures were collected, otherwise an error
// joining every failure message.
func (c *Client) Err() error {
	return c.collector.Err()
}

// Reset discards collected failures so the client can run another
// round against the same page. Failures already written by WriteReport
// stay in the sink.
func (c *Client) Reset() {
	c.collector.Reset()
}

// WriteReport drains the session and writes every collected failure to
// the configured report sink. Failures stay collected afterwards, so a
// second call without Reset writes them again.
func (c *Client) WriteReport(ctx context.Context) error {
	if err := c.Drain(ctx); err != nil {
		return fmt.Errorf("failed to drain session: %w", err)
	}

	records := report.FromCollector(c.cfg.Name, c.currentPage(), c.collector)
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	err := c.reports.Write(records)
	if err == nil {
		err = c.reports.Flush()
	}
	if c.metrics != nil {
		c.metrics.RecordReportWrite(c.cfg.Report.Format, len(records), time.Since(start), err)
	}
	if err != nil {
		c.log.Errorf("report delivery failed: %s", utils.GetUserFriendlyMessage(err))
		return fmt.Errorf("failed to write report: %w", err)
	}

	c.log.Infof("wrote %d failure records", len(records))
	return nil
}

func (c *Client) currentPage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page != "" {
		return c.page
	}
	return c.cfg.BaseURL
}

// Close shuts the client down: the dashboard stops serving, the
// browser closes after finishing queued work, and the report sink
// flushes and closes. Close is idempotent and returns the first error
// from any stage.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error

		if c.dashboard != nil {
			c.dashboard.Runs().CompleteRun(c.runID, !c.collector.HasFailures())
		}
		if c.monStop != nil {
			c.monStop()
		}
		if c.health != nil {
			c.health.Stop()
		}

		if c.session != nil {
			if err := c.session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close browser session: %w", err))
			}
			if c.metrics != nil {
				c.metrics.DecActiveSessions()
			}
		}

		if err := c.reports.Close(); err != nil {
			errs = append(errs, err)
		}

		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
