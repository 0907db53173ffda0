// pkg/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionPool hands out browser sessions up to a size limit, creating
// them lazily. Sessions are reused across checkouts; a full pool closes
// returned sessions instead of stacking them.
type SessionPool struct {
	cfg         *Config
	sessions    chan *Session
	maxSize     int
	currentSize int
	mu          sync.RWMutex
	closed      bool

	// newSession is swapped out by tests.
	newSession func(cfg *Config) (*Session, error)
}

// NewSessionPool creates a session pool with at most maxSize sessions.
func NewSessionPool(cfg *Config, maxSize int) (*SessionPool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if maxSize <= 0 {
		maxSize = 5 // Default pool size
	}

	pool := &SessionPool{
		cfg:        cfg,
		sessions:   make(chan *Session, maxSize),
		maxSize:    maxSize,
		newSession: NewSession,
	}

	return pool, nil
}

// Get retrieves a session from the pool or creates a new one.
func (p *SessionPool) Get(ctx context.Context) (*Session, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("pool is closed")
	}
	p.mu.RUnlock()

	select {
	case s := <-p.sessions:
		return s, nil
	default:
		// No idle session, create one if under the limit
		p.mu.Lock()
		if p.currentSize < p.maxSize {
			defer p.mu.Unlock()

			s, err := p.newSession(p.cfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create session: %w", err)
			}
			p.currentSize++
			return s, nil
		}
		p.mu.Unlock()

		// Wait for a session to come back (with timeout)
		select {
		case s := <-p.sessions:
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(30 * time.Second):
			return nil, fmt.Errorf("timeout waiting for available session")
		}
	}
}

// Put returns a session to the pool.
func (p *SessionPool) Put(s *Session) error {
	if s == nil {
		return fmt.Errorf("cannot put nil session in pool")
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		s.Close()
		return fmt.Errorf("pool is closed")
	}

	// Send under the read lock so Close cannot shut the channel mid-put.
	select {
	case p.sessions <- s:
		p.mu.RUnlock()
		return nil
	default:
	}
	p.mu.RUnlock()

	// Pool is full, close the session
	s.Close()
	p.mu.Lock()
	p.currentSize--
	p.mu.Unlock()
	return nil
}

// Size returns the number of idle sessions in the pool.
func (p *SessionPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// TotalSize returns the total number of sessions created.
func (p *SessionPool) TotalSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentSize
}

// Close closes every pooled session and rejects further use.
func (p *SessionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	close(p.sessions)
	for s := range p.sessions {
		s.Close()
	}

	p.currentSize = 0
	return nil
}

// StatsSnapshot reports pool occupancy for the monitoring dashboard.
func (p *SessionPool) StatsSnapshot() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"idle_sessions":  len(p.sessions),
		"total_sessions": p.currentSize,
		"max_pool_size":  p.maxSize,
		"pool_closed":    p.closed,
	}
}
