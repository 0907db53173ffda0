// pkg/browser/session.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"

	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/promise"
)

// op is one queued driver operation. The worker runs ops strictly in
// submission order, one at a time.
type op struct {
	name string
	run  func(ctx context.Context)
}

// Session drives a single browser tab through chromedp. All driver
// operations submitted on a session execute on one worker goroutine in
// the order they were submitted, so fetches started by assertion chains
// observe the page in a deterministic sequence.
type Session struct {
	cfg       *Config
	allocStop context.CancelFunc
	tabCtx    context.Context
	tabStop   context.CancelFunc

	ops    chan op
	done   chan struct{}
	mu     sync.RWMutex
	closed bool

	limiter *utils.RateLimiter
	log     utils.Logger

	navMu     sync.RWMutex
	navigated bool

	stats   Stats
	statsMu sync.Mutex
	obs     Observer

	closeOnce sync.Once

	// eval and nav are swapped out by tests; the defaults run chromedp.
	eval func(ctx context.Context, script string, out interface{}) error
	nav  func(ctx context.Context, url string) error
}

// NewSession starts a browser and returns a session bound to one tab.
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	if cfg.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)

	tabCtx, tabStop := chromedp.NewContext(allocCtx)
	stop := tabStop
	if cfg.Timeout > 0 {
		var timeoutStop context.CancelFunc
		tabCtx, timeoutStop = context.WithTimeout(tabCtx, cfg.Timeout)
		inner := stop
		stop = func() {
			timeoutStop()
			inner()
		}
	}

	s := &Session{
		cfg:       cfg,
		allocStop: allocStop,
		tabCtx:    tabCtx,
		tabStop:   stop,
		ops:       make(chan op, 64),
		done:      make(chan struct{}),
		log:       utils.NewNopLogger(),
	}
	s.eval = s.chromedpEval
	s.nav = s.chromedpNavigate

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = utils.NewRateLimiterWithBurst(cfg.RateLimit, burst)
	}

	if err := s.initialize(); err != nil {
		stop()
		allocStop()
		return nil, utils.WrapError(err, utils.ErrCodeDriverFailed, "failed to initialize browser")
	}

	go s.loop()

	return s, nil
}

// SetLogger replaces the session logger. Call before submitting work.
func (s *Session) SetLogger(log utils.Logger) {
	if log != nil {
		s.log = log
	}
}

// SetObserver attaches a fetch observer. Call before submitting work.
func (s *Session) SetObserver(obs Observer) {
	s.statsMu.Lock()
	s.obs = obs
	s.statsMu.Unlock()
}

// initialize sets up the tab with the configured viewport
func (s *Session) initialize() error {
	tasks := []chromedp.Action{
		chromedp.EmulateViewport(int64(s.cfg.ViewportWidth), int64(s.cfg.ViewportHeight)),
	}

	// Narrow viewports emulate a mobile device
	if s.cfg.ViewportWidth > 0 && s.cfg.ViewportWidth < 768 {
		tasks = append(tasks, chromedp.Emulate(device.IPhone8))
	}

	return chromedp.Run(s.tabCtx, tasks...)
}

// loop is the session worker. It drains the op queue in submission
// order, pacing starts through the rate limiter when one is configured.
func (s *Session) loop() {
	defer close(s.done)
	for o := range s.ops {
		if s.limiter != nil {
			if err := s.limiter.Wait(s.tabCtx); err != nil {
				s.log.Debugf("rate limiter wait interrupted: %v", err)
			}
		}
		s.log.Debugf("running op %s", o.name)
		o.run(s.tabCtx)
	}
}

// submit queues fn on the worker. It returns ErrSessionClosed once
// Close has been called.
func (s *Session) submit(name string, fn func(ctx context.Context)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.ops <- op{name: name, run: fn}
	return nil
}

// Navigate loads url in the session tab and blocks until the page is
// ready or ctx is done. The navigation occupies one queue slot, so
// fetches submitted afterwards observe the loaded page.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p, resolve, reject := promise.New[struct{}]()

	err := s.submit("navigate", func(opCtx context.Context) {
		start := time.Now()
		navErr := s.nav(opCtx, url)
		loadTime := time.Since(start)

		s.setNavigated(navErr == nil)
		s.recordNavigation(loadTime, navErr)

		if navErr != nil {
			reject(utils.WrapError(navErr, utils.ErrCodeNavigationFailed, "navigation failed").
				WithContext("url", url))
			return
		}
		resolve(struct{}{})
	})
	if err != nil {
		return err
	}

	_, err = p.Wait(ctx)
	return err
}

// chromedpNavigate runs the navigation task list against the tab.
func (s *Session) chromedpNavigate(ctx context.Context, url string) error {
	tasks := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}

	if s.cfg.WaitForSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(s.cfg.WaitForSelector))
	}

	if s.cfg.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(s.cfg.WaitDelay))
	}

	return chromedp.Run(ctx, tasks...)
}

// chromedpEval evaluates script in the tab and decodes the result.
func (s *Session) chromedpEval(ctx context.Context, script string, out interface{}) error {
	return chromedp.Run(ctx, chromedp.Evaluate(script, out))
}

// Element returns a handle that fetches state for the first element
// matching selector. Lookup happens per fetch, not at handle creation.
func (s *Session) Element(selector string) *Element {
	return &Element{s: s, selector: selector}
}

// Drain blocks until every operation submitted before the call has
// finished, or ctx is done.
func (s *Session) Drain(ctx context.Context) error {
	p, resolve, _ := promise.New[struct{}]()

	err := s.submit("drain", func(context.Context) {
		resolve(struct{}{})
	})
	if err != nil {
		return err
	}

	_, err = p.Wait(ctx)
	return err
}

func (s *Session) setNavigated(ok bool) {
	s.navMu.Lock()
	s.navigated = ok
	s.navMu.Unlock()
}

func (s *Session) hasNavigated() bool {
	s.navMu.RLock()
	defer s.navMu.RUnlock()
	return s.navigated
}

func (s *Session) recordNavigation(loadTime time.Duration, err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	if err != nil {
		s.stats.NavigationErrors++
		return
	}

	s.stats.PagesLoaded++
	if s.stats.PagesLoaded == 1 {
		s.stats.AverageLoadTime = loadTime
	} else {
		s.stats.AverageLoadTime = (s.stats.AverageLoadTime + loadTime) / 2
	}
}

func (s *Session) recordFetch(kind string, duration time.Duration, err error) {
	s.statsMu.Lock()
	s.stats.Fetches++
	if err != nil {
		s.stats.FetchErrors++
	}
	obs := s.obs
	s.statsMu.Unlock()

	if obs != nil {
		obs.ObserveFetch(kind, duration, err)
	}
}

// Stats returns a snapshot of session statistics.
func (s *Session) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// Close stops accepting new operations, waits for everything already
// submitted to finish, then shuts the browser down.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.ops)
		<-s.done

		if s.tabStop != nil {
			s.tabStop()
		}
		if s.allocStop != nil {
			s.allocStop()
		}
	})
	return nil
}
