// pkg/expect/attribute_test.go
package expect

import (
	"context"
	"errors"
	"testing"

	"github.com/valpere/PageXpect/pkg/promise"
)

func TestAttrPresentWithMatchingValue(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "data-x", p)

	a.WithValue("5")
	resolve(Attr{Value: "5", Present: true})

	expectFailures(t, c)
}

func TestAttrPresentWithMismatchedValue(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "data-x", p)

	a.WithValue("5")
	resolve(Attr{Value: "7", Present: true})

	expectFailures(t, c, "Expected element to have an attribute 'data-x' with value '5', actual value was '7'.")
}

func TestAttrLooseValueComparison(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "data-count", p)

	// A numeric expectation matches its string rendering.
	a.WithValue(5)
	resolve(Attr{Value: "05", Present: true})

	expectFailures(t, c)
}

func TestAttrNumericExpectationInMessage(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "data-count", p)

	a.WithValue(5)
	resolve(Attr{Value: "six", Present: true})

	expectFailures(t, c, "Expected element to have an attribute 'data-count' with value 5, actual value was 'six'.")
}

func TestAbsentAttributeFailsOnce(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "disabled", p)

	// Value checks queued behind a presence check that will fail must
	// not produce extra failures.
	a.WithValue("true")
	resolve(Attr{Present: false})

	expectFailures(t, c, "Expected element to have attribute disabled.")
}

func TestAbsentAttributeDropsLaterChecks(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "disabled", p)

	resolve(Attr{Present: false})
	a.WithValue("true").WithValue("false")

	expectFailures(t, c, "Expected element to have attribute disabled.")
}

func TestAttrFetchFailure(t *testing.T) {
	c := NewCollector()
	p, _, reject := promise.New[Attr]()
	a := NewEventualAttr(c, "login button", "href", p)

	a.WithValue("/login")
	reject(errors.New("stale element"))

	expectFailures(t, c, "Failed to access attribute 'href' of login button with error: stale element.")
}

func TestAttrNamedParentInMessages(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "submit button", "disabled", p)

	resolve(Attr{Present: false})
	_ = a

	expectFailures(t, c, "Expected submit button to have attribute disabled.")
}

func TestAttrWait(t *testing.T) {
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(NewCollector(), "", "data-x", p)
	resolve(Attr{Value: "5", Present: true})

	attr, err := a.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !attr.Present || attr.Value != "5" {
		t.Errorf("expected present attr with value '5', got %+v", attr)
	}
}

func TestAttrWaitAbsentIsNotAnError(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "disabled", p)

	resolve(Attr{Present: false})

	attr, err := a.Wait(context.Background())
	if err != nil {
		t.Fatalf("absence must not surface as an error, got %v", err)
	}
	if attr.Present {
		t.Error("expected absent marker")
	}
}

func TestAttrContextAccessors(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "data-x", p)

	if a.Context() != nil {
		t.Error("expected nil context while pending")
	}

	resolve(Attr{Value: "5", Present: true})

	ctx := a.Context()
	if ctx == nil {
		t.Fatal("expected context after present resolution")
	}
	if ctx.Name() != "data-x" {
		t.Errorf("expected name 'data-x', got %q", ctx.Name())
	}
	if ctx.Value() != "5" {
		t.Errorf("expected value '5', got %q", ctx.Value())
	}
}

func TestAttrContextNilAfterAbsence(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := NewEventualAttr(c, "", "disabled", p)

	resolve(Attr{Present: false})

	if a.Context() != nil {
		t.Error("expected nil context after absent resolution")
	}
}

func TestAttrContextRejectsOtherOps(t *testing.T) {
	ctx := newAttrContext(NewCollector(), "element", "", "data-x", "5")

	if err := ctx.RunCheck(Check{Op: OpEquals, Args: []interface{}{"5"}}); err != ErrUnsupportedCheck {
		t.Errorf("expected ErrUnsupportedCheck for equals, got %v", err)
	}
	if err := ctx.RunCheck(Check{Op: OpWithValue, Args: []interface{}{"5"}}); err != nil {
		t.Errorf("unexpected error for with_value: %v", err)
	}
}

func TestAttrMessagePrefix(t *testing.T) {
	c := NewCollector()
	p, resolve, _ := promise.New[Attr]()
	a := newEventualAttr(c, "", "after submit", "data-state", p)

	a.WithValue("done")
	resolve(Attr{Value: "pending", Present: true})

	expectFailures(t, c, "after submit: Expected element to have an attribute 'data-state' with value 'done', actual value was 'pending'.")
}
