// pkg/expect/element.go
package expect

import (
	"fmt"
	"strings"

	"github.com/valpere/PageXpect/pkg/promise"
)

// ElementSubject asserts on a browser element through its handle. State
// assertions (HasClass, IsDisplayed, ...) issue their own fetch and
// report directly; accessors (Text, Attribute, ...) return eventual
// subjects that record chained checks until their fetch resolves. Every
// operation issues a fresh fetch, so repeated checks observe the page as
// it is, not as it was.
type ElementSubject struct {
	subject
	h ElementHandle
}

// Element returns a subject asserting on h, reporting failures through r.
func Element(r Reporter, h ElementHandle) *ElementSubject {
	if h == nil {
		misuse("nil ElementHandle")
	}
	return &ElementSubject{subject: newSubject(r), h: h}
}

// Named assigns the display name used in failure messages, for example
// "login button".
func (s *ElementSubject) Named(name string) *ElementSubject {
	s.name = name
	return s
}

// WithMessage sets a custom prefix for every failure message of this
// subject and of the eventual subjects derived from it.
func (s *ElementSubject) WithMessage(msg string) *ElementSubject {
	s.message = msg
	return s
}

// Describe returns the display name, "element" when none was assigned.
func (s *ElementSubject) Describe() string {
	return s.describe("element")
}

// Handle returns the underlying driver handle.
func (s *ElementSubject) Handle() ElementHandle {
	return s.h
}

// HasClass checks the element's class list contains name. The returned
// promise resolves true when the check passed, false when it failed, and
// rejects when the fetch itself failed.
func (s *ElementSubject) HasClass(name string) *promise.Promise[bool] {
	d := s.Describe()
	return elementCheck(s, s.classList(), fmt.Sprintf("classes of %s", d), func(classes []string) (bool, string) {
		if containsString(classes, name) {
			return true, ""
		}
		return false, fmt.Sprintf("Expected %s to have class '%s'.", d, name)
	})
}

// DoesNotHaveClass checks the element's class list does not contain name.
func (s *ElementSubject) DoesNotHaveClass(name string) *promise.Promise[bool] {
	d := s.Describe()
	return elementCheck(s, s.classList(), fmt.Sprintf("classes of %s", d), func(classes []string) (bool, string) {
		if !containsString(classes, name) {
			return true, ""
		}
		return false, fmt.Sprintf("Expected %s to not have class '%s'.", d, name)
	})
}

// IsDisplayed checks the element is rendered visibly.
func (s *ElementSubject) IsDisplayed() *promise.Promise[bool] {
	d := s.Describe()
	return elementCheck(s, s.h.Visible(), fmt.Sprintf("visibility of %s", d), func(visible bool) (bool, string) {
		if visible {
			return true, ""
		}
		return false, fmt.Sprintf("Expected %s to be displayed.", d)
	})
}

// IsNotDisplayed checks the element is not rendered visibly.
func (s *ElementSubject) IsNotDisplayed() *promise.Promise[bool] {
	d := s.Describe()
	return elementCheck(s, s.h.Visible(), fmt.Sprintf("visibility of %s", d), func(visible bool) (bool, string) {
		if !visible {
			return true, ""
		}
		return false, fmt.Sprintf("Expected %s to not be displayed.", d)
	})
}

// IsChecked checks the element carries the boolean attribute "checked".
func (s *ElementSubject) IsChecked() *promise.Promise[bool] {
	return s.booleanState("checked", true)
}

// IsNotChecked checks the element does not carry the boolean attribute
// "checked".
func (s *ElementSubject) IsNotChecked() *promise.Promise[bool] {
	return s.booleanState("checked", false)
}

// IsDisabled checks the element carries the boolean attribute "disabled".
func (s *ElementSubject) IsDisabled() *promise.Promise[bool] {
	return s.booleanState("disabled", true)
}

// IsNotDisabled checks the element does not carry the boolean attribute
// "disabled".
func (s *ElementSubject) IsNotDisabled() *promise.Promise[bool] {
	return s.booleanState("disabled", false)
}

// booleanState asserts presence or absence of a boolean attribute such
// as "checked" or "disabled". HTML boolean attributes are true by
// presence alone, so the value is not inspected.
func (s *ElementSubject) booleanState(attr string, wantPresent bool) *promise.Promise[bool] {
	d := s.Describe()
	neg := ""
	if !wantPresent {
		neg = "not "
	}
	return elementCheck(s, s.h.Attribute(attr), fmt.Sprintf("attribute '%s' of %s", attr, d), func(a Attr) (bool, string) {
		if a.Present == wantPresent {
			return true, ""
		}
		return false, fmt.Sprintf("Expected %s to %sbe %s.", d, neg, attr)
	})
}

// HasAttribute checks the named attribute is present and returns a
// subject for asserting on its value. An absent attribute reports one
// failure and silences the value checks chained after it.
func (s *ElementSubject) HasAttribute(name string) *EventualAttr {
	return newEventualAttr(s.r, s.name, s.message, name, s.h.Attribute(name))
}

// DoesNotHaveAttribute checks the named attribute is absent.
func (s *ElementSubject) DoesNotHaveAttribute(name string) *promise.Promise[bool] {
	d := s.Describe()
	return elementCheck(s, s.h.Attribute(name), fmt.Sprintf("attribute '%s' of %s", name, d), func(a Attr) (bool, string) {
		if !a.Present {
			return true, ""
		}
		return false, fmt.Sprintf("Expected %s to not have attribute %s.", d, name)
	})
}

// Text returns an eventual subject for the element's rendered text.
func (s *ElementSubject) Text() *Eventual {
	return newEventual(s.r, fmt.Sprintf("text of %s", s.Describe()), s.message, toAnyPromise(s.h.Text()))
}

// TagName returns an eventual subject for the element's lowercased tag
// name.
func (s *ElementSubject) TagName() *Eventual {
	return newEventual(s.r, fmt.Sprintf("tag name of %s", s.Describe()), s.message, toAnyPromise(s.h.TagName()))
}

// ID returns an eventual subject for the element's id attribute value.
// An absent id resolves to the empty string; use HasAttribute to assert
// presence.
func (s *ElementSubject) ID() *Eventual {
	return newEventual(s.r, fmt.Sprintf("id of %s", s.Describe()), s.message, s.attrValue("id"))
}

// Attribute returns an eventual subject for the named attribute's value.
// An absent attribute resolves to the empty string; use HasAttribute to
// assert presence.
func (s *ElementSubject) Attribute(name string) *Eventual {
	return newEventual(s.r, fmt.Sprintf("attribute '%s' of %s", name, s.Describe()), s.message, s.attrValue(name))
}

// Classes returns an eventual subject for the element's class list. An
// absent or empty class attribute resolves to an empty list.
func (s *ElementSubject) Classes() *Eventual {
	p := promise.Transform(s.classList(), func(classes []string, err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return classes, nil
	})
	return newEventual(s.r, fmt.Sprintf("classes of %s", s.Describe()), s.message, p)
}

func (s *ElementSubject) classList() *promise.Promise[[]string] {
	return promise.Transform(s.h.Attribute("class"), func(a Attr, err error) ([]string, error) {
		if err != nil {
			return nil, err
		}
		return strings.Fields(a.Value), nil
	})
}

func (s *ElementSubject) attrValue(name string) *promise.Promise[interface{}] {
	return promise.Transform(s.h.Attribute(name), func(a Attr, err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return a.Value, nil
	})
}

// elementCheck runs one immediate assertion once its fetch settles. A
// fetch failure reports "Failed to access <what> with error: <reason>."
// and rejects the returned promise with the driver's original error;
// otherwise the promise resolves with the check's verdict after any
// failure has been reported.
func elementCheck[T any](s *ElementSubject, p *promise.Promise[T], accessWhat string, eval func(T) (bool, string)) *promise.Promise[bool] {
	out, resolve, reject := promise.New[bool]()
	p.OnSettled(func(v T, err error) {
		if err != nil {
			s.fail(accessFailure(accessWhat, err))
			reject(err)
			return
		}
		ok, msg := eval(v)
		if !ok {
			s.fail(msg)
		}
		resolve(ok)
	})
	return out
}

func toAnyPromise[T any](p *promise.Promise[T]) *promise.Promise[interface{}] {
	return promise.Transform(p, func(v T, err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}
