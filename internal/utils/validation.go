// internal/utils/validation.go
package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pre-compiled patterns for selector and name validation.
var (
	// Compound selector components, concatenated into compoundSelectorPattern:
	// an optional element or universal part followed by any number of class,
	// id, attribute, pseudo-class and pseudo-element parts.
	elementComponent     = `(?:[a-zA-Z][a-zA-Z0-9-]*|\*)?`
	classComponent       = `(?:\.[a-zA-Z_-][a-zA-Z0-9_-]*)*`
	idComponent          = `(?:#[a-zA-Z_-][a-zA-Z0-9_-]*)?`
	attrComponent        = `(?:\[[^\]]+\])*`
	pseudoClassComponent = `(?:\:[a-zA-Z-]+(?:\([^)]*\))?)*`
	pseudoElemComponent  = `(?:\:\:[a-zA-Z-]+)*`

	compoundSelectorPattern = regexp.MustCompile(
		`^` +
			elementComponent +
			classComponent +
			idComponent +
			attrComponent +
			pseudoClassComponent +
			pseudoElemComponent +
			`$`)

	combinatorPattern        = regexp.MustCompile(`\s*[>+~]\s*`)
	normalizeSpacePattern    = regexp.MustCompile(`\s+`)
	fieldNameSanitizePattern = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// Validation limits for suite configuration input.
const (
	// MaxSelectorLength caps CSS selector length in suite configs.
	MaxSelectorLength = 1000

	// MaxNestingDepth caps combinator nesting in a single selector.
	MaxNestingDepth = 20
)

// ValidationError represents a structured validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// ValidationResult represents the result of a validation operation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, value, message, code string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// FirstError returns the first validation error if any
func (vr *ValidationResult) FirstError() *ValidationError {
	if len(vr.Errors) > 0 {
		return &vr.Errors[0]
	}
	return nil
}

// Validator interface for creating custom validators
type Validator interface {
	Validate(value interface{}) *ValidationError
}

// StringValidator validates string fields such as suite and check names
type StringValidator struct {
	MinLength     int
	MaxLength     int
	Required      bool
	Pattern       *regexp.Regexp
	AllowedValues []string
}

// Validate implements the Validator interface for strings
func (sv *StringValidator) Validate(value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{
			Message: "value must be a string",
			Code:    "INVALID_TYPE",
		}
	}

	if sv.Required && strings.TrimSpace(str) == "" {
		return &ValidationError{
			Message: "field is required",
			Code:    "REQUIRED",
		}
	}

	// Skip other validations if empty and not required
	if !sv.Required && strings.TrimSpace(str) == "" {
		return nil
	}

	charCount := utf8.RuneCountInString(str)
	if sv.MinLength > 0 && charCount < sv.MinLength {
		return &ValidationError{
			Message: fmt.Sprintf("must be at least %d characters long", sv.MinLength),
			Code:    "MIN_LENGTH",
		}
	}

	if sv.MaxLength > 0 && charCount > sv.MaxLength {
		return &ValidationError{
			Message: fmt.Sprintf("must not exceed %d characters", sv.MaxLength),
			Code:    "MAX_LENGTH",
		}
	}

	if sv.Pattern != nil && !sv.Pattern.MatchString(str) {
		return &ValidationError{
			Message: "does not match required pattern",
			Code:    "PATTERN_MISMATCH",
		}
	}

	if len(sv.AllowedValues) > 0 {
		for _, allowed := range sv.AllowedValues {
			if str == allowed {
				return nil
			}
		}
		return &ValidationError{
			Message: fmt.Sprintf("must be one of: %s", strings.Join(sv.AllowedValues, ", ")),
			Code:    "INVALID_VALUE",
		}
	}

	return nil
}

// URLValidator validates page URLs before navigation
type URLValidator struct {
	Required       bool
	AllowedSchemes []string // e.g., ["http", "https"]
	AllowedHosts   []string // e.g., ["example.com", "*.example.com"]
}

// Validate implements the Validator interface for URLs
func (uv *URLValidator) Validate(value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{
			Message: "value must be a string",
			Code:    "INVALID_TYPE",
		}
	}

	if uv.Required && strings.TrimSpace(str) == "" {
		return &ValidationError{
			Message: "URL is required",
			Code:    "REQUIRED",
		}
	}

	if !uv.Required && strings.TrimSpace(str) == "" {
		return nil
	}

	parsedURL, err := url.Parse(str)
	if err != nil {
		return &ValidationError{
			Message: fmt.Sprintf("invalid URL format: %v", err),
			Code:    "INVALID_FORMAT",
		}
	}

	if len(uv.AllowedSchemes) > 0 {
		schemeAllowed := false
		for _, allowed := range uv.AllowedSchemes {
			if parsedURL.Scheme == allowed {
				schemeAllowed = true
				break
			}
		}
		if !schemeAllowed {
			return &ValidationError{
				Message: fmt.Sprintf("scheme must be one of: %s", strings.Join(uv.AllowedSchemes, ", ")),
				Code:    "INVALID_SCHEME",
			}
		}
	}

	if len(uv.AllowedHosts) > 0 {
		hostAllowed := false
		for _, allowed := range uv.AllowedHosts {
			if parsedURL.Host == allowed {
				hostAllowed = true
				break
			}
			// Wildcard support for subdomains
			if strings.HasPrefix(allowed, "*.") {
				domain := allowed[2:]
				if strings.HasSuffix(parsedURL.Host, "."+domain) || parsedURL.Host == domain {
					hostAllowed = true
					break
				}
			}
		}
		if !hostAllowed {
			return &ValidationError{
				Message: fmt.Sprintf("host must be one of: %s", strings.Join(uv.AllowedHosts, ", ")),
				Code:    "INVALID_HOST",
			}
		}
	}

	return nil
}

// SelectorValidator validates CSS selectors used to locate elements
type SelectorValidator struct {
	Required bool
}

// Validate implements the Validator interface for CSS selectors
func (sv *SelectorValidator) Validate(value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{
			Message: "selector must be a string",
			Code:    "INVALID_TYPE",
		}
	}

	if sv.Required && strings.TrimSpace(str) == "" {
		return &ValidationError{
			Message: "selector is required",
			Code:    "REQUIRED",
		}
	}

	if !sv.Required && strings.TrimSpace(str) == "" {
		return nil
	}

	if strings.ContainsAny(str, "@{};\\`<") {
		return &ValidationError{
			Message: "selector contains invalid characters",
			Code:    "INVALID_CHARACTERS",
		}
	}

	if len(str) > MaxSelectorLength {
		return &ValidationError{
			Message: fmt.Sprintf("selector is too long (max %d characters)", MaxSelectorLength),
			Code:    "SELECTOR_TOO_LONG",
		}
	}

	depth := strings.Count(str, " ") + strings.Count(str, ">") +
		strings.Count(str, "+") + strings.Count(str, "~")
	if depth > MaxNestingDepth {
		return &ValidationError{
			Message: fmt.Sprintf("selector has too many nested levels (max %d)", MaxNestingDepth),
			Code:    "EXCESSIVE_NESTING",
		}
	}

	if !isValidSelectorPattern(str) {
		return &ValidationError{
			Message: "selector does not match valid CSS selector syntax",
			Code:    "INVALID_SYNTAX",
		}
	}

	return nil
}

// isValidSelectorPattern validates each comma-separated selector by splitting
// it on combinators and matching every simple selector against the compound
// selector grammar.
func isValidSelectorPattern(selector string) bool {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return false
	}

	for _, sel := range strings.Split(trimmed, ",") {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			return false
		}

		// Normalize combinators to single spaces so descendant and
		// child/sibling combinators split identically.
		normalized := combinatorPattern.ReplaceAllString(sel, " ")
		normalized = normalizeSpacePattern.ReplaceAllString(normalized, " ")

		for _, part := range strings.Fields(normalized) {
			if !compoundSelectorPattern.MatchString(part) {
				return false
			}
		}
	}

	return true
}

// ValidSelector reports whether s is an acceptable CSS selector for
// element lookups. Convenience wrapper around SelectorValidator.
func ValidSelector(s string) bool {
	v := &SelectorValidator{Required: true}
	return v.Validate(s) == nil
}

// ValidReportFormat reports whether format names a supported report sink.
func ValidReportFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "csv", "yaml", "xml", "sqlite", "postgres", "mysql", "mongodb", "excel":
		return true
	default:
		return false
	}
}

// SanitizeFieldName converts a check or column name into a safe identifier
// for report sinks that require one.
func SanitizeFieldName(name string) string {
	sanitized := fieldNameSanitizePattern.ReplaceAllString(name, "_")
	if sanitized == "" || (sanitized[0] >= '0' && sanitized[0] <= '9') {
		sanitized = "field_" + sanitized
	}
	return strings.Trim(sanitized, "_")
}
