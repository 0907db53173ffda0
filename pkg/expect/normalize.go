// pkg/expect/normalize.go
package expect

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeText prepares rendered text for tolerant comparison: Unicode
// NFC normalization, case folding, and whitespace runs collapsed to a
// single space with the ends trimmed. Browser text nodes frequently
// differ from the authored markup in exactly these ways.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	// cases.Caser is stateful, so build one per call.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
