// pkg/browser/element.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/expect"
	"github.com/valpere/PageXpect/pkg/promise"
)

// Element fetches state for the first element matching a CSS selector.
// Every fetch submits one evaluation to the session queue and returns a
// promise that settles when the evaluation completes. A selector that
// matches nothing rejects the promise with ErrNoSuchElement.
type Element struct {
	s        *Session
	selector string
}

var _ expect.ElementHandle = (*Element)(nil)

// Selector returns the CSS selector this handle resolves against.
func (e *Element) Selector() string {
	return e.selector
}

// scriptResult is the envelope every fetch script returns.
type scriptResult struct {
	Found   bool   `json:"found"`
	Present bool   `json:"present"`
	Value   string `json:"value"`
	Flag    bool   `json:"flag"`
}

// evalScript runs one fetch script inside a queued op: it guards on
// navigation state, validates the selector, evaluates the script and
// reports the outcome to stats and the observer.
func (e *Element) evalScript(ctx context.Context, kind, script string) (scriptResult, error) {
	var res scriptResult
	start := time.Now()

	err := func() error {
		if !e.s.hasNavigated() {
			return ErrNotNavigated
		}
		if !utils.ValidSelector(e.selector) {
			return fmt.Errorf("%w %q", ErrInvalidSelector, e.selector)
		}
		if err := e.s.eval(ctx, script, &res); err != nil {
			return fmt.Errorf("evaluate failed: %w", err)
		}
		if !res.Found {
			return fmt.Errorf("%w %q", ErrNoSuchElement, e.selector)
		}
		return nil
	}()

	e.s.recordFetch(kind, time.Since(start), err)
	return res, err
}

// Text fetches the element's text content.
func (e *Element) Text() *promise.Promise[string] {
	p, resolve, reject := promise.New[string]()
	if err := e.s.submit("text", func(ctx context.Context) {
		res, err := e.evalScript(ctx, "text", textScript(e.selector))
		if err != nil {
			reject(err)
			return
		}
		resolve(res.Value)
	}); err != nil {
		reject(err)
	}
	return p
}

// TagName fetches the element's tag name, lowercased.
func (e *Element) TagName() *promise.Promise[string] {
	p, resolve, reject := promise.New[string]()
	if err := e.s.submit("tag_name", func(ctx context.Context) {
		res, err := e.evalScript(ctx, "tag_name", tagScript(e.selector))
		if err != nil {
			reject(err)
			return
		}
		resolve(res.Value)
	}); err != nil {
		reject(err)
	}
	return p
}

// Attribute fetches an attribute. An attribute the element does not
// carry resolves with Present false rather than rejecting.
func (e *Element) Attribute(name string) *promise.Promise[expect.Attr] {
	p, resolve, reject := promise.New[expect.Attr]()
	if err := e.s.submit("attribute", func(ctx context.Context) {
		res, err := e.evalScript(ctx, "attribute", attrScript(e.selector, name))
		if err != nil {
			reject(err)
			return
		}
		resolve(expect.Attr{Value: res.Value, Present: res.Present})
	}); err != nil {
		reject(err)
	}
	return p
}

// Visible fetches whether the element takes up layout space and is not
// hidden via CSS.
func (e *Element) Visible() *promise.Promise[bool] {
	p, resolve, reject := promise.New[bool]()
	if err := e.s.submit("visible", func(ctx context.Context) {
		res, err := e.evalScript(ctx, "visible", visibleScript(e.selector))
		if err != nil {
			reject(err)
			return
		}
		resolve(res.Flag)
	}); err != nil {
		reject(err)
	}
	return p
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func textScript(selector string) string {
	return fmt.Sprintf(`(function() {
	var el = document.querySelector(%s);
	if (!el) { return {found: false}; }
	return {found: true, value: el.textContent};
})()`, jsString(selector))
}

func tagScript(selector string) string {
	return fmt.Sprintf(`(function() {
	var el = document.querySelector(%s);
	if (!el) { return {found: false}; }
	return {found: true, value: el.tagName.toLowerCase()};
})()`, jsString(selector))
}

func attrScript(selector, name string) string {
	return fmt.Sprintf(`(function() {
	var el = document.querySelector(%s);
	if (!el) { return {found: false}; }
	var v = el.getAttribute(%s);
	if (v === null) { return {found: true, present: false, value: ""}; }
	return {found: true, present: true, value: String(v)};
})()`, jsString(selector), jsString(name))
}

func visibleScript(selector string) string {
	return fmt.Sprintf(`(function() {
	var el = document.querySelector(%s);
	if (!el) { return {found: false}; }
	var style = window.getComputedStyle(el);
	var visible = !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length) &&
		style.visibility !== 'hidden' && style.display !== 'none';
	return {found: true, flag: visible};
})()`, jsString(selector))
}
