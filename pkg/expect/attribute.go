// pkg/expect/attribute.go
package expect

import (
	"context"
	"fmt"
	"sync"

	"github.com/valpere/PageXpect/pkg/promise"
)

// EventualAttr is the assertion subject for an attribute whose presence
// is itself part of the assertion. While the fetch is pending, checks
// are recorded. If the attribute resolves present, an AttrContext is
// built for its value and the recorded checks replay onto it in order.
// If it resolves absent, exactly one failure is reported, "Expected
// <subject> to have attribute <name>.", and the recorded checks are
// dropped: without a value there is nothing for them to judge. A fetch
// failure likewise reports exactly one access failure. Absence and
// fetch failure are mutually exclusive outcomes of a single fetch.
type EventualAttr struct {
	mu      sync.Mutex
	r       Reporter
	parent  string
	message string
	name    string
	rec     callRecorder
	state   int
	attrCtx *AttrContext
	p       *promise.Promise[Attr]
}

// NewEventualAttr wraps a pending attribute fetch. parent names the
// owning subject inside failure messages.
func NewEventualAttr(r Reporter, parent, name string, p *promise.Promise[Attr]) *EventualAttr {
	return newEventualAttr(r, parent, "", name, p)
}

func newEventualAttr(r Reporter, parent, message, name string, p *promise.Promise[Attr]) *EventualAttr {
	if r == nil {
		misuse("nil Reporter")
	}
	if p == nil {
		misuse("nil promise for attribute %q", name)
	}
	a := &EventualAttr{r: r, parent: parent, message: message, name: name, p: p}
	p.OnSettled(a.onSettled)
	return a
}

func (a *EventualAttr) onSettled(attr Attr, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = eventualFailed
		a.rec.discard()
		a.fail(accessFailure(fmt.Sprintf("attribute '%s' of %s", a.name, a.describeParent()), err))
		return
	}
	if !attr.Present {
		a.state = eventualFailed
		a.rec.discard()
		a.fail(fmt.Sprintf("Expected %s to have attribute %s.", a.describeParent(), a.name))
		return
	}
	a.state = eventualResolved
	a.attrCtx = newAttrContext(a.r, a.describeParent(), a.message, a.name, attr.Value)
	a.rec.replay(a.attrCtx, fmt.Sprintf("attribute '%s'", a.name))
}

func (a *EventualAttr) describeParent() string {
	if a.parent == "" {
		return "element"
	}
	return a.parent
}

func (a *EventualAttr) fail(msg string) {
	if a.message != "" {
		msg = a.message + ": " + msg
	}
	a.r.Fail(msg)
}

// WithValue checks the attribute's value against want using loose
// equality, so numeric and boolean expectations match their string
// renderings. Chained before resolution it is recorded; after an absent
// or failed fetch it is dropped.
func (a *EventualAttr) WithValue(want interface{}) *EventualAttr {
	c := Check{Op: OpWithValue, Args: []interface{}{want}}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case eventualPending:
		a.rec.record(c)
	case eventualResolved:
		runCheckOn(a.attrCtx, c, fmt.Sprintf("attribute '%s'", a.name))
	case eventualFailed:
		// Absence or access failure already reported for this chain.
	}
	return a
}

// Wait blocks until the attribute fetch settles or ctx is done. An
// absent attribute is a successful fetch: it returns the marker with
// Present false and a nil error.
func (a *EventualAttr) Wait(ctx context.Context) (Attr, error) {
	return a.p.Wait(ctx)
}

// Done returns a channel closed when the attribute fetch settles.
func (a *EventualAttr) Done() <-chan struct{} {
	return a.p.Done()
}

// Context returns the value context built for a present attribute, or
// nil while the fetch is pending or after it resolved absent or failed.
func (a *EventualAttr) Context() *AttrContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != eventualResolved {
		return nil
	}
	return a.attrCtx
}

// AttrContext asserts on the value of an attribute known to be present.
// Its vocabulary is deliberately a single check: presence was already
// established by the owning EventualAttr, and value comparison is the
// only judgement left.
type AttrContext struct {
	subject
	attrName string
	value    string
}

func newAttrContext(r Reporter, parent, message, name, value string) *AttrContext {
	c := &AttrContext{subject: newSubject(r), attrName: name, value: value}
	c.setIdentity(parent, message)
	return c
}

// Describe returns the owning subject's display name.
func (c *AttrContext) Describe() string {
	return c.describe("element")
}

// Name returns the attribute name.
func (c *AttrContext) Name() string {
	return c.attrName
}

// Value returns the attribute's value.
func (c *AttrContext) Value() string {
	return c.value
}

// WithValue checks the attribute's value against want using loose
// equality.
func (c *AttrContext) WithValue(want interface{}) *AttrContext {
	if !looseEqual(c.value, want) {
		c.fail(fmt.Sprintf("Expected %s to have an attribute '%s' with value %s, actual value was '%s'.",
			c.Describe(), c.attrName, formatValue(want), c.value))
	}
	return c
}

// RunCheck applies a recorded check to the attribute value.
func (c *AttrContext) RunCheck(chk Check) error {
	switch chk.Op {
	case OpWithValue:
		if len(chk.Args) != 1 {
			return ErrUnsupportedCheck
		}
		c.WithValue(chk.Args[0])
	default:
		return ErrUnsupportedCheck
	}
	return nil
}
