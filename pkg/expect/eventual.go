// pkg/expect/eventual.go
package expect

import (
	"context"
	"fmt"
	"sync"

	"github.com/valpere/PageXpect/pkg/promise"
)

const (
	eventualPending = iota
	eventualResolved
	eventualFailed
)

// Eventual is an assertion subject for a value that is still being
// fetched. Checks chained while the fetch is pending are recorded in
// call order and applied exactly once against the resolved value. After
// a successful fetch the adapter stands in for the resolved subject and
// further checks apply immediately. A failed fetch reports exactly one
// failure, "Failed to access <description> with error: <reason>.", and
// every check recorded or chained afterwards is dropped: they describe a
// value that never existed.
type Eventual struct {
	mu         sync.Mutex
	r          Reporter
	desc       string
	message    string
	rec        callRecorder
	state      int
	built      interface{}
	target     CheckTarget
	whatTarget string
	p          *promise.Promise[interface{}]
}

// NewEventual wraps a pending fetch in an assertion subject. desc names
// the awaited value inside failure messages, so it should read like
// "text of element" or "attribute 'href' of login link".
func NewEventual(r Reporter, desc string, p *promise.Promise[interface{}]) *Eventual {
	return newEventual(r, desc, "", p)
}

func newEventual(r Reporter, desc, message string, p *promise.Promise[interface{}]) *Eventual {
	if r == nil {
		misuse("nil Reporter")
	}
	if p == nil {
		misuse("nil promise for %s", desc)
	}
	e := &Eventual{r: r, desc: desc, message: message, p: p}
	p.OnSettled(e.onSettled)
	return e
}

func (e *Eventual) onSettled(v interface{}, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = eventualFailed
		e.rec.discard()
		e.fail(accessFailure(e.desc, err))
		return
	}
	e.state = eventualResolved
	built := That(e.r, v)
	if id, ok := built.(identitySetter); ok {
		id.setIdentity(e.desc, e.message)
	}
	e.built = built
	e.target, _ = built.(CheckTarget)
	e.whatTarget = fmt.Sprintf("value of type %T", v)
	e.rec.replay(e.target, e.whatTarget)
}

func (e *Eventual) fail(msg string) {
	if e.message != "" {
		msg = e.message + ": " + msg
	}
	e.r.Fail(msg)
}

// apply routes one check according to the adapter's state: record while
// pending, run directly once resolved, drop after a fetch failure.
func (e *Eventual) apply(c Check) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case eventualPending:
		e.rec.record(c)
	case eventualResolved:
		runCheckOn(e.target, c, e.whatTarget)
	case eventualFailed:
		// Access failure already reported for this chain.
	}
}

// Equals checks exact equality with want.
func (e *Eventual) Equals(want string) *Eventual {
	e.apply(Check{Op: OpEquals, Args: []interface{}{want}})
	return e
}

// NotEquals checks the value differs from want.
func (e *Eventual) NotEquals(want string) *Eventual {
	e.apply(Check{Op: OpNotEquals, Args: []interface{}{want}})
	return e
}

// EqualsNormalized checks equality after Unicode normalization, case
// folding and whitespace collapsing of both sides.
func (e *Eventual) EqualsNormalized(want string) *Eventual {
	e.apply(Check{Op: OpEqualsNormalized, Args: []interface{}{want}})
	return e
}

// Contains checks for a substring of a string value, or membership in a
// list value.
func (e *Eventual) Contains(part string) *Eventual {
	e.apply(Check{Op: OpContains, Args: []interface{}{part}})
	return e
}

// DoesNotContain is the negation of Contains.
func (e *Eventual) DoesNotContain(part string) *Eventual {
	e.apply(Check{Op: OpDoesNotContain, Args: []interface{}{part}})
	return e
}

// Matches checks a string value against a regular expression.
func (e *Eventual) Matches(pattern string) *Eventual {
	e.apply(Check{Op: OpMatches, Args: []interface{}{pattern}})
	return e
}

// HasLength checks the length of the resolved value.
func (e *Eventual) HasLength(n int) *Eventual {
	e.apply(Check{Op: OpHasLength, Args: []interface{}{n}})
	return e
}

// IsEmpty checks the resolved value is empty.
func (e *Eventual) IsEmpty() *Eventual {
	e.apply(Check{Op: OpIsEmpty})
	return e
}

// IsNotEmpty checks the resolved value is not empty.
func (e *Eventual) IsNotEmpty() *Eventual {
	e.apply(Check{Op: OpIsNotEmpty})
	return e
}

// Wait blocks until the underlying fetch settles or ctx is done. On
// success it returns the resolved value; on fetch failure it returns the
// driver's original error.
func (e *Eventual) Wait(ctx context.Context) (interface{}, error) {
	return e.p.Wait(ctx)
}

// Done returns a channel closed when the underlying fetch settles.
func (e *Eventual) Done() <-chan struct{} {
	return e.p.Done()
}

// Subject returns the assertion subject built for the resolved value,
// or nil while the fetch is pending or after it failed.
func (e *Eventual) Subject() interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != eventualResolved {
		return nil
	}
	return e.built
}
