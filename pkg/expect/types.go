// pkg/expect/types.go

// Package expect provides fluent assertions over browser-automation
// element handles. Element state lives on the other side of a driver
// round trip, so accessors return eventual subjects: checks chained
// before the fetch completes are recorded in order and applied exactly
// once against the resolved value, and checks chained after a successful
// fetch apply immediately. Assertion failures and fetch failures are
// reported through a Reporter and never abort the chain; misuse of the
// package itself panics with *MisuseError.
package expect

import (
	"github.com/valpere/PageXpect/pkg/promise"
)

// ElementHandle is the narrow driver contract the assertion layer
// consumes. Implementations return a fresh promise per call and settle
// it exactly once. Handles obtained from the same driver session must
// settle fetches in submission order; the assertion layer relies on
// that ordering and performs no reordering, retrying or cancellation of
// its own.
type ElementHandle interface {
	// Text resolves the rendered text content of the element.
	Text() *promise.Promise[string]

	// TagName resolves the lowercased tag name of the element.
	TagName() *promise.Promise[string]

	// Attribute resolves the named attribute. An attribute that is not
	// present on the element resolves with Present false rather than
	// rejecting; rejection is reserved for fetch failures.
	Attribute(name string) *promise.Promise[Attr]

	// Visible resolves whether the element is rendered visibly.
	Visible() *promise.Promise[bool]
}

// Attr is the result of an attribute fetch. Present distinguishes an
// attribute that exists with an empty value from one that is absent.
type Attr struct {
	Value   string
	Present bool
}
