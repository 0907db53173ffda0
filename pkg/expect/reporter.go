// pkg/expect/reporter.go
package expect

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// Reporter is the failure target for assertions. Fail is called once per
// failed check with a complete, human-readable message. Implementations
// must be safe for concurrent use and must not panic; reporting a
// failure never aborts the assertion chain.
type Reporter interface {
	Fail(message string)
}

// Collector is a Reporter that accumulates failures for soft-assertion
// flows: all checks run, failures are inspected at the end.
type Collector struct {
	mu       sync.Mutex
	failures []string
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Fail records the failure message.
func (c *Collector) Fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, message)
}

// Failures returns a copy of the recorded failure messages in the order
// they were reported.
func (c *Collector) Failures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.failures))
	copy(out, c.failures)
	return out
}

// FailureCount returns the number of recorded failures.
func (c *Collector) FailureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures)
}

// HasFailures reports whether any failure has been recorded.
func (c *Collector) HasFailures() bool {
	return c.FailureCount() > 0
}

// Err returns nil when no failures were recorded, otherwise an error
// joining every failure message.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failures) == 0 {
		return nil
	}
	errs := make([]error, len(c.failures))
	for i, msg := range c.failures {
		errs[i] = errors.New(msg)
	}
	return fmt.Errorf("%d assertion failure(s): %w", len(c.failures), errors.Join(errs...))
}

// Reset discards recorded failures so the Collector can be reused.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
}

type testingReporter struct {
	tb testing.TB
}

// TestingReporter adapts a testing.TB into a Reporter. Failures are
// reported through tb.Errorf, so the test continues running and later
// checks still execute.
func TestingReporter(tb testing.TB) Reporter {
	return testingReporter{tb: tb}
}

func (r testingReporter) Fail(message string) {
	r.tb.Errorf("%s", message)
}
