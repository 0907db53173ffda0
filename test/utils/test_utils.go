// test/utils/test_utils.go
package utils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/valpere/PageXpect/internal/config"
)

// TestServer wraps httptest.Server and records the requests it served.
type TestServer struct {
	*httptest.Server

	mu           sync.Mutex
	requestCount int
	lastRequest  *http.Request
}

// NewTestServer creates a test server that serves the given HTML content
func NewTestServer(html string) *TestServer {
	return NewTestServerWithHandler(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	})
}

// NewTestServerWithHandler creates a test server with a custom handler
func NewTestServerWithHandler(handler http.HandlerFunc) *TestServer {
	ts := &TestServer{}

	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.requestCount++
		ts.lastRequest = r
		ts.mu.Unlock()
		handler(w, r)
	}))

	return ts
}

// RequestCount returns how many requests the server has handled.
func (ts *TestServer) RequestCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.requestCount
}

// LastRequest returns the most recently handled request.
func (ts *TestServer) LastRequest() *http.Request {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastRequest
}

// PageTemplates provides common HTML fixtures for assertion suites
type PageTemplates struct{}

// CheckoutPage returns HTML for a mock checkout page
func (p PageTemplates) CheckoutPage() string {
	return `
	<html>
		<head><title>Checkout</title></head>
		<body>
			<h1 id="title" class="headline major">Checkout</h1>
			<p id="summary">Order total: $149.50</p>
			<button id="pay" class="btn primary" disabled>Pay now</button>
			<div id="banner" class="promo" style="display: none">Offer expired</div>
			<a id="help" href="/support" title="Get help">Need help?</a>
		</body>
	</html>
	`
}

// LoginForm returns HTML for a mock login form
func (p PageTemplates) LoginForm() string {
	return `
	<html>
		<body>
			<form id="login" action="/session" method="post">
				<input id="email" type="email" name="email" placeholder="you@example.com" required>
				<input id="password" type="password" name="password">
				<button id="submit" type="submit" class="btn">Sign in</button>
			</form>
		</body>
	</html>
	`
}

// ProductListing returns HTML with a product list structure
func (p PageTemplates) ProductListing() string {
	return `
	<html>
		<body>
			<ul class="items">
				<li class="item featured" data-sku="A100">
					Laptop
					<span class="stock">In stock</span>
				</li>
				<li class="item" data-sku="B200">Monitor <span class="stock">In stock</span></li>
				<li class="item sold-out" data-sku="C300">Dock <span class="stock">Sold out</span></li>
			</ul>
		</body>
	</html>
	`
}

// GetPageTemplates returns a PageTemplates instance
func GetPageTemplates() PageTemplates {
	return PageTemplates{}
}

// CreateBasicSuiteConfig creates an offline suite configuration writing
// a JSON report to reportPath
func CreateBasicSuiteConfig(name, reportPath string) *config.SuiteConfig {
	return &config.SuiteConfig{
		Name: name,
		Report: config.ReportConfig{
			Format: "json",
			Path:   reportPath,
		},
		LogLevel: "error",
	}
}

// AssertNoFailures checks that the suite collected no failures
func AssertNoFailures(failures []string) error {
	if len(failures) > 0 {
		return fmt.Errorf("unexpected failures: %v", failures)
	}
	return nil
}

// AssertFailureCount checks the number of collected failures
func AssertFailureCount(failures []string, want int) error {
	if len(failures) != want {
		return fmt.Errorf("expected %d failures, got %d: %v", want, len(failures), failures)
	}
	return nil
}

// AssertFailureContains checks that some collected failure mentions substr
func AssertFailureContains(failures []string, substr string) error {
	for _, f := range failures {
		if strings.Contains(f, substr) {
			return nil
		}
	}
	return fmt.Errorf("no failure contains %q: %v", substr, failures)
}

// CreateErrorServer creates a server that returns HTTP errors
func CreateErrorServer(statusCode int) *TestServer {
	return NewTestServerWithHandler(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, "HTTP Error %d", statusCode)
	})
}

// CleanString removes extra whitespace and normalizes strings for comparison
func CleanString(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
