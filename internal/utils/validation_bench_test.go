package utils

import (
	"testing"
)

// Representative selectors taken from suite configurations.
var benchSelectors = []struct {
	name string
	sel  string
}{
	{"Element", "div"},
	{"Class", ".login-button"},
	{"ID", "#submit"},
	{"Attribute", "input[type='text']"},
	{"Compound", "button.primary#go[disabled]:hover"},
	{"Descendant", "form .field input"},
	{"Child", "nav > ul > li > a"},
	{"Multiple", "div, span, p, a.link"},
}

// BenchmarkSelectorValidator measures full selector validation across
// selector shapes commonly found in suite configs.
func BenchmarkSelectorValidator(b *testing.B) {
	v := &SelectorValidator{Required: true}
	for _, tc := range benchSelectors {
		b.Run(tc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				v.Validate(tc.sel)
			}
		})
	}
}

// BenchmarkValidSelector measures the convenience wrapper, which allocates a
// validator per call.
func BenchmarkValidSelector(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidSelector("form .field input[name='user']")
	}
}

// BenchmarkSanitizeFieldName measures identifier sanitization for report
// sink column names.
func BenchmarkSanitizeFieldName(b *testing.B) {
	inputs := []string{"status_code", "page title", "price($)", "2nd_attempt"}
	for i := 0; i < b.N; i++ {
		SanitizeFieldName(inputs[i%len(inputs)])
	}
}

// BenchmarkURLValidator measures URL validation with scheme and host checks
// enabled, the shape used when loading suite configs.
func BenchmarkURLValidator(b *testing.B) {
	v := &URLValidator{
		Required:       true,
		AllowedSchemes: []string{"http", "https"},
		AllowedHosts:   []string{"*.example.com"},
	}
	for i := 0; i < b.N; i++ {
		v.Validate("https://staging.example.com/login")
	}
}
