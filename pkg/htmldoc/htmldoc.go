// pkg/htmldoc/htmldoc.go

// Package htmldoc provides a browserless element source backed by parsed
// HTML. Handles satisfy the same contract as live browser elements, with
// promises that settle immediately, so assertion chains behave the same
// against fixtures as against a running page.
package htmldoc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/expect"
	"github.com/valpere/PageXpect/pkg/promise"
)

// Sentinel errors returned through fetch promises.
var (
	// ErrNoSuchElement is returned when a selector matches no element.
	ErrNoSuchElement = errors.New("no element matches selector")

	// ErrInvalidSelector is returned for selectors that fail validation.
	ErrInvalidSelector = errors.New("invalid selector")
)

// Document is a parsed HTML document.
type Document struct {
	doc *goquery.Document
}

// Parse parses an HTML string into a document.
func Parse(html string) (*Document, error) {
	return Load(strings.NewReader(html))
}

// Load parses HTML read from r into a document.
func Load(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Element returns a handle for the first element matching selector.
// Lookup happens per fetch, not at handle creation.
func (d *Document) Element(selector string) *Element {
	return &Element{d: d, selector: selector}
}

// Element fetches state for the first element matching a CSS selector.
type Element struct {
	d        *Document
	selector string
}

var _ expect.ElementHandle = (*Element)(nil)

// Selector returns the CSS selector this handle resolves against.
func (e *Element) Selector() string {
	return e.selector
}

// find resolves the selector against the document.
func (e *Element) find() (*goquery.Selection, error) {
	if !utils.ValidSelector(e.selector) {
		return nil, fmt.Errorf("%w %q", ErrInvalidSelector, e.selector)
	}
	sel := e.d.doc.Find(e.selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoSuchElement, e.selector)
	}
	return sel.First(), nil
}

// Text fetches the element's text content.
func (e *Element) Text() *promise.Promise[string] {
	sel, err := e.find()
	if err != nil {
		return promise.Rejected[string](err)
	}
	return promise.Resolved(sel.Text())
}

// TagName fetches the element's tag name, lowercased.
func (e *Element) TagName() *promise.Promise[string] {
	sel, err := e.find()
	if err != nil {
		return promise.Rejected[string](err)
	}
	return promise.Resolved(goquery.NodeName(sel))
}

// Attribute fetches an attribute. An attribute the element does not
// carry resolves with Present false rather than rejecting.
func (e *Element) Attribute(name string) *promise.Promise[expect.Attr] {
	sel, err := e.find()
	if err != nil {
		return promise.Rejected[expect.Attr](err)
	}
	value, present := sel.Attr(name)
	return promise.Resolved(expect.Attr{Value: value, Present: present})
}

// Visible reports visibility as far as static markup can tell: the
// hidden attribute, input type="hidden" and inline display/visibility
// styles, on the element or any ancestor.
func (e *Element) Visible() *promise.Promise[bool] {
	sel, err := e.find()
	if err != nil {
		return promise.Rejected[bool](err)
	}

	if hiddenByMarkup(sel) {
		return promise.Resolved(false)
	}

	hidden := false
	sel.Parents().Each(func(_ int, p *goquery.Selection) {
		if hiddenByMarkup(p) {
			hidden = true
		}
	})
	return promise.Resolved(!hidden)
}

func hiddenByMarkup(sel *goquery.Selection) bool {
	if _, ok := sel.Attr("hidden"); ok {
		return true
	}

	if goquery.NodeName(sel) == "input" {
		if typ, ok := sel.Attr("type"); ok && strings.EqualFold(typ, "hidden") {
			return true
		}
	}

	style, ok := sel.Attr("style")
	if !ok {
		return false
	}
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
