// pkg/browser/browser_test.go
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valpere/PageXpect/internal/utils"
)

// fakeEval scripts the session's evaluate seam: it records every script
// it sees and answers with canned JSON replies in order.
type fakeEval struct {
	mu      sync.Mutex
	scripts []string
	replies []string
	errs    []error
	delay   time.Duration
}

func (f *fakeEval) eval(ctx context.Context, script string, out interface{}) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	idx := len(f.scripts) - 1
	reply := ""
	if idx < len(f.replies) {
		reply = f.replies[idx]
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if reply == "" {
		reply = `{"found": true}`
	}
	return json.Unmarshal([]byte(reply), out)
}

func (f *fakeEval) seenScripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

// newTestSession builds a session whose worker runs against the fake
// evaluate seam instead of a browser.
func newTestSession(evalFn func(context.Context, string, interface{}) error) *Session {
	s := &Session{
		cfg:    DefaultConfig(),
		tabCtx: context.Background(),
		ops:    make(chan op, 64),
		done:   make(chan struct{}),
		log:    utils.NewNopLogger(),
	}
	s.eval = evalFn
	s.nav = func(context.Context, string) error { return nil }
	s.navigated = true

	go s.loop()
	return s
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("Expected non-nil config")
	}

	if config.Enabled {
		t.Error("Expected browser to be disabled by default")
	}

	if !config.Headless {
		t.Error("Expected headless mode by default")
	}

	if config.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", config.Timeout)
	}

	if config.ViewportWidth != 1920 {
		t.Errorf("Expected viewport width 1920, got %d", config.ViewportWidth)
	}

	if config.ViewportHeight != 1080 {
		t.Errorf("Expected viewport height 1080, got %d", config.ViewportHeight)
	}

	if !config.DisableImages {
		t.Error("Expected images to be disabled by default")
	}

	if config.RateLimit != 0 {
		t.Error("Expected rate limiting to be disabled by default")
	}
}

func TestSessionRunsFetchesInSubmissionOrder(t *testing.T) {
	fake := &fakeEval{replies: []string{
		`{"found": true, "value": "hello"}`,
		`{"found": true, "value": "div"}`,
		`{"found": true, "flag": true}`,
		`{"found": true, "present": true, "value": "primary"}`,
	}}
	s := newTestSession(fake.eval)
	defer s.Close()

	el := s.Element("#login")
	el.Text()
	el.TagName()
	el.Visible()
	el.Attribute("class")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	scripts := fake.seenScripts()
	if len(scripts) != 4 {
		t.Fatalf("Expected 4 evaluated scripts, got %d", len(scripts))
	}

	wantParts := []string{"textContent", "tagName", "getClientRects", "getAttribute"}
	for i, part := range wantParts {
		if !strings.Contains(scripts[i], part) {
			t.Errorf("Script %d should contain %q, got: %s", i, part, scripts[i])
		}
	}
}

func TestElementTextFetch(t *testing.T) {
	fake := &fakeEval{replies: []string{`{"found": true, "value": "Sign in"}`}}
	s := newTestSession(fake.eval)
	defer s.Close()

	text, err := s.Element("#login").Text().Wait(context.Background())
	if err != nil {
		t.Fatalf("Text fetch failed: %v", err)
	}
	if text != "Sign in" {
		t.Errorf("Expected text 'Sign in', got %q", text)
	}
}

func TestElementAttributeFetch(t *testing.T) {
	fake := &fakeEval{replies: []string{
		`{"found": true, "present": true, "value": "btn primary"}`,
		`{"found": true, "present": false, "value": ""}`,
	}}
	s := newTestSession(fake.eval)
	defer s.Close()

	el := s.Element("button")

	attr, err := el.Attribute("class").Wait(context.Background())
	if err != nil {
		t.Fatalf("Attribute fetch failed: %v", err)
	}
	if !attr.Present || attr.Value != "btn primary" {
		t.Errorf("Unexpected attribute result: %+v", attr)
	}

	attr, err = el.Attribute("disabled").Wait(context.Background())
	if err != nil {
		t.Fatalf("Attribute fetch failed: %v", err)
	}
	if attr.Present {
		t.Errorf("Expected absent attribute, got %+v", attr)
	}
}

func TestElementVisibleFetch(t *testing.T) {
	fake := &fakeEval{replies: []string{`{"found": true, "flag": false}`}}
	s := newTestSession(fake.eval)
	defer s.Close()

	visible, err := s.Element(".banner").Visible().Wait(context.Background())
	if err != nil {
		t.Fatalf("Visible fetch failed: %v", err)
	}
	if visible {
		t.Error("Expected element to be reported hidden")
	}
}

func TestNoSuchElementRejectsFetch(t *testing.T) {
	fake := &fakeEval{replies: []string{`{"found": false}`}}
	s := newTestSession(fake.eval)
	defer s.Close()

	_, err := s.Element("#missing").Text().Wait(context.Background())
	if err == nil {
		t.Fatal("Expected fetch to fail for unmatched selector")
	}
	if !errors.Is(err, ErrNoSuchElement) {
		t.Errorf("Expected ErrNoSuchElement, got %v", err)
	}
	if !strings.Contains(err.Error(), "#missing") {
		t.Errorf("Error should name the selector: %v", err)
	}
}

func TestEvalErrorPropagates(t *testing.T) {
	fake := &fakeEval{errs: []error{errors.New("tab crashed")}}
	s := newTestSession(fake.eval)
	defer s.Close()

	_, err := s.Element("#login").Text().Wait(context.Background())
	if err == nil {
		t.Fatal("Expected fetch to fail")
	}
	if !strings.Contains(err.Error(), "tab crashed") {
		t.Errorf("Expected underlying eval error, got %v", err)
	}
}

func TestFetchBeforeNavigationFails(t *testing.T) {
	fake := &fakeEval{}
	s := newTestSession(fake.eval)
	defer s.Close()
	s.setNavigated(false)

	_, err := s.Element("#login").Text().Wait(context.Background())
	if !errors.Is(err, ErrNotNavigated) {
		t.Errorf("Expected ErrNotNavigated, got %v", err)
	}

	if len(fake.seenScripts()) != 0 {
		t.Error("No script should be evaluated before navigation")
	}
}

func TestInvalidSelectorRejectsFetch(t *testing.T) {
	fake := &fakeEval{}
	s := newTestSession(fake.eval)
	defer s.Close()

	_, err := s.Element("div{color:red;}").Text().Wait(context.Background())
	if !errors.Is(err, ErrInvalidSelector) {
		t.Errorf("Expected ErrInvalidSelector, got %v", err)
	}
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	fake := &fakeEval{}
	s := newTestSession(fake.eval)
	s.Close()

	_, err := s.Element("#login").Text().Wait(context.Background())
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed from fetch, got %v", err)
	}

	if err := s.Navigate(context.Background(), "https://example.com"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed from Navigate, got %v", err)
	}

	if err := s.Drain(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed from Drain, got %v", err)
	}
}

func TestCloseWaitsForSubmittedFetches(t *testing.T) {
	fake := &fakeEval{
		replies: []string{`{"found": true, "value": "late"}`},
		delay:   20 * time.Millisecond,
	}
	s := newTestSession(fake.eval)

	p := s.Element("#login").Text()
	s.Close()

	if !p.Settled() {
		t.Fatal("Close should wait for submitted fetches to settle")
	}
	value, err, _ := p.Result()
	if err != nil || value != "late" {
		t.Errorf("Unexpected fetch result after Close: %q, %v", value, err)
	}
}

func TestDrainWaitsForSubmitted(t *testing.T) {
	fake := &fakeEval{
		replies: []string{`{"found": true, "value": "x"}`},
		delay:   20 * time.Millisecond,
	}
	s := newTestSession(fake.eval)
	defer s.Close()

	p := s.Element("#login").Text()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if !p.Settled() {
		t.Error("Fetch submitted before Drain should be settled when Drain returns")
	}
}

func TestNavigateRecordsStats(t *testing.T) {
	fake := &fakeEval{}
	s := newTestSession(fake.eval)
	defer s.Close()
	s.setNavigated(false)

	if err := s.Navigate(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	if !s.hasNavigated() {
		t.Error("Session should be marked navigated after success")
	}

	stats := s.Stats()
	if stats.PagesLoaded != 1 {
		t.Errorf("Expected 1 page loaded, got %d", stats.PagesLoaded)
	}
}

func TestNavigateFailureBlocksFetches(t *testing.T) {
	fake := &fakeEval{}
	s := newTestSession(fake.eval)
	defer s.Close()
	s.setNavigated(false)
	s.nav = func(context.Context, string) error {
		return errors.New("dns lookup failed")
	}

	err := s.Navigate(context.Background(), "https://bad.invalid")
	if err == nil || !strings.Contains(err.Error(), "navigation failed") {
		t.Fatalf("Expected navigation failure, got %v", err)
	}

	if s.hasNavigated() {
		t.Error("Session should not be marked navigated after failure")
	}

	if s.Stats().NavigationErrors != 1 {
		t.Errorf("Expected 1 navigation error, got %d", s.Stats().NavigationErrors)
	}

	_, err = s.Element("#login").Text().Wait(context.Background())
	if !errors.Is(err, ErrNotNavigated) {
		t.Errorf("Expected ErrNotNavigated after failed navigation, got %v", err)
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	kinds []string
	errs  []error
}

func (o *recordingObserver) ObserveFetch(kind string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
	o.errs = append(o.errs, err)
}

func TestObserverSeesFetchOutcomes(t *testing.T) {
	fake := &fakeEval{replies: []string{
		`{"found": true, "value": "ok"}`,
		`{"found": false}`,
	}}
	s := newTestSession(fake.eval)
	defer s.Close()

	obs := &recordingObserver{}
	s.SetObserver(obs)

	el := s.Element("#login")
	el.Text()
	el.Text()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.kinds) != 2 || obs.kinds[0] != "text" || obs.kinds[1] != "text" {
		t.Errorf("Unexpected observed kinds: %v", obs.kinds)
	}
	if obs.errs[0] != nil {
		t.Errorf("First fetch should succeed, got %v", obs.errs[0])
	}
	if obs.errs[1] == nil {
		t.Error("Second fetch should report an error")
	}

	stats := s.Stats()
	if stats.Fetches != 2 || stats.FetchErrors != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSessionPool(t *testing.T) {
	pool, err := NewSessionPool(DefaultConfig(), 2)
	if err != nil {
		t.Fatalf("Failed to create session pool: %v", err)
	}
	pool.newSession = func(cfg *Config) (*Session, error) {
		fake := &fakeEval{}
		return newTestSession(fake.eval), nil
	}

	if pool.Size() != 0 {
		t.Errorf("Expected empty pool, got size %d", pool.Size())
	}
	if pool.TotalSize() != 0 {
		t.Errorf("Expected total size 0, got %d", pool.TotalSize())
	}

	ctx := context.Background()
	s1, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if pool.TotalSize() != 1 {
		t.Errorf("Expected total size 1, got %d", pool.TotalSize())
	}

	if err := pool.Put(s1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if pool.Size() != 1 {
		t.Errorf("Expected 1 idle session, got %d", pool.Size())
	}

	s2, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s2 != s1 {
		t.Error("Expected pooled session to be reused")
	}
	if err := pool.Put(s2); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := pool.Get(ctx); err == nil {
		t.Error("Expected Get to fail on closed pool")
	}

	extra := newTestSession((&fakeEval{}).eval)
	if err := pool.Put(extra); err == nil {
		t.Error("Expected Put to fail on closed pool")
	}

	snapshot := pool.StatsSnapshot()
	if snapshot["pool_closed"] != true {
		t.Errorf("Expected pool_closed true, got %v", snapshot["pool_closed"])
	}
}
