// internal/errors/recovery.go

// Package errors provides the recovery layer for report sink writes:
// bounded retries with exponential backoff, and a circuit breaker that
// sheds writes while a sink keeps failing.
package errors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/valpere/PageXpect/internal/utils"
)

// ErrCircuitOpen reports a write shed by an open circuit breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	// MaxRetries is the number of tries after the first attempt.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`

	// BackoffFactor multiplies the delay after every retry.
	BackoffFactor float64 `yaml:"backoff_factor" json:"backoff_factor"`

	// MaxDelay caps the per-retry wait. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// DefaultRetryPolicy returns the sink write defaults: three retries
// starting at one second, doubling up to thirty seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      30 * time.Second,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Retry runs op until it succeeds, the error is not retryable, the
// attempts are exhausted or ctx is done.
func Retry(ctx context.Context, op func() error, policy RetryPolicy) error {
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.BackoffFactor < 1 {
		policy.BackoffFactor = 2.0
	}

	var lastErr error
	attempts := 0
	for attempt := 0; ; attempt++ {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= policy.MaxRetries || !utils.IsRetryableError(err) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements the circuit breaker pattern. It opens
// after maxFailures consecutive failures, sheds executions while open,
// and lets a probe through once the reset timeout passes.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu              sync.Mutex
	state           CircuitBreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments
// fall back to five failures and a sixty second reset.
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
	}
}

// Execute runs op through the breaker with the given retry policy.
// Shed executions return ErrCircuitOpen without invoking op.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func() error, policy RetryPolicy) error {
	if !cb.CanExecute() {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}

	if err := Retry(ctx, op, policy); err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// CanExecute checks whether the breaker allows execution. An open
// breaker transitions to half-open once the reset timeout passes.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Now().After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess resets the failure count and closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure and opens the breaker when the
// threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
		cb.nextAttemptTime = time.Now().Add(cb.resetTimeout)
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns breaker statistics for the monitoring surface.
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"name":              cb.name,
		"state":             cb.state.String(),
		"failures":          cb.failures,
		"max_failures":      cb.maxFailures,
		"last_failure_time": cb.lastFailureTime,
		"next_attempt_time": cb.nextAttemptTime,
		"reset_timeout":     cb.resetTimeout,
	}
}

// Reset manually closes the breaker and clears its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}
