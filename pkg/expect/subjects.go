// pkg/expect/subjects.go
package expect

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

// StringSubject asserts on a string value, typically the resolved text,
// tag name or attribute value of an element.
type StringSubject struct {
	subject
	value string
}

// String returns a subject asserting on v, reporting failures through r.
func String(r Reporter, v string) *StringSubject {
	return &StringSubject{subject: newSubject(r), value: v}
}

// Named assigns the display name used in failure messages.
func (s *StringSubject) Named(name string) *StringSubject {
	s.name = name
	return s
}

// WithMessage sets a custom prefix for every failure message of this
// subject.
func (s *StringSubject) WithMessage(msg string) *StringSubject {
	s.message = msg
	return s
}

// Describe returns the subject's display name.
func (s *StringSubject) Describe() string {
	return s.describe("value")
}

// Value returns the underlying string.
func (s *StringSubject) Value() string {
	return s.value
}

// Equals checks exact equality with want.
func (s *StringSubject) Equals(want string) *StringSubject {
	if s.value != want {
		s.fail(fmt.Sprintf("Expected %s to equal %s, actual value was '%s'.", s.Describe(), formatValue(want), s.value))
	}
	return s
}

// NotEquals checks the value differs from want.
func (s *StringSubject) NotEquals(want string) *StringSubject {
	if s.value == want {
		s.fail(fmt.Sprintf("Expected %s to not equal %s.", s.Describe(), formatValue(want)))
	}
	return s
}

// EqualsNormalized checks equality after Unicode normalization, case
// folding and whitespace collapsing of both sides.
func (s *StringSubject) EqualsNormalized(want string) *StringSubject {
	if normalizeText(s.value) != normalizeText(want) {
		s.fail(fmt.Sprintf("Expected %s to equal %s after normalization, actual value was '%s'.", s.Describe(), formatValue(want), s.value))
	}
	return s
}

// Contains checks the value contains part as a substring.
func (s *StringSubject) Contains(part string) *StringSubject {
	if !strings.Contains(s.value, part) {
		s.fail(fmt.Sprintf("Expected %s to contain %s, actual value was '%s'.", s.Describe(), formatValue(part), s.value))
	}
	return s
}

// DoesNotContain checks the value does not contain part as a substring.
func (s *StringSubject) DoesNotContain(part string) *StringSubject {
	if strings.Contains(s.value, part) {
		s.fail(fmt.Sprintf("Expected %s to not contain %s, actual value was '%s'.", s.Describe(), formatValue(part), s.value))
	}
	return s
}

// Matches checks the value against a regular expression. An invalid
// pattern is a programming error and panics.
func (s *StringSubject) Matches(pattern string) *StringSubject {
	re, err := regexp.Compile(pattern)
	if err != nil {
		misuseOp(OpMatches, "invalid pattern %q: %v", pattern, err)
	}
	if !re.MatchString(s.value) {
		s.fail(fmt.Sprintf("Expected %s to match pattern '%s', actual value was '%s'.", s.Describe(), pattern, s.value))
	}
	return s
}

// HasLength checks the value's length in bytes.
func (s *StringSubject) HasLength(n int) *StringSubject {
	if len(s.value) != n {
		s.fail(fmt.Sprintf("Expected %s to have length %d, actual length was %d.", s.Describe(), n, len(s.value)))
	}
	return s
}

// IsEmpty checks the value is the empty string.
func (s *StringSubject) IsEmpty() *StringSubject {
	if s.value != "" {
		s.fail(fmt.Sprintf("Expected %s to be empty, actual value was '%s'.", s.Describe(), s.value))
	}
	return s
}

// IsNotEmpty checks the value is not the empty string.
func (s *StringSubject) IsNotEmpty() *StringSubject {
	if s.value == "" {
		s.fail(fmt.Sprintf("Expected %s to not be empty.", s.Describe()))
	}
	return s
}

// RunCheck applies a recorded check to the string value.
func (s *StringSubject) RunCheck(c Check) error {
	switch c.Op {
	case OpEquals:
		want, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.Equals(want)
	case OpNotEquals:
		want, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.NotEquals(want)
	case OpEqualsNormalized:
		want, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.EqualsNormalized(want)
	case OpContains:
		part, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.Contains(part)
	case OpDoesNotContain:
		part, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.DoesNotContain(part)
	case OpMatches:
		pattern, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.Matches(pattern)
	case OpHasLength:
		n, ok := intArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.HasLength(n)
	case OpIsEmpty:
		s.IsEmpty()
	case OpIsNotEmpty:
		s.IsNotEmpty()
	default:
		return ErrUnsupportedCheck
	}
	return nil
}

// StringsSubject asserts on a list of strings, typically an element's
// class list.
type StringsSubject struct {
	subject
	values []string
}

// Strings returns a subject asserting on vs, reporting failures through r.
func Strings(r Reporter, vs []string) *StringsSubject {
	return &StringsSubject{subject: newSubject(r), values: vs}
}

// Named assigns the display name used in failure messages.
func (s *StringsSubject) Named(name string) *StringsSubject {
	s.name = name
	return s
}

// WithMessage sets a custom prefix for every failure message of this
// subject.
func (s *StringsSubject) WithMessage(msg string) *StringsSubject {
	s.message = msg
	return s
}

// Describe returns the subject's display name.
func (s *StringsSubject) Describe() string {
	return s.describe("values")
}

// Values returns the underlying list.
func (s *StringsSubject) Values() []string {
	return s.values
}

// Contains checks the list has member as an entry.
func (s *StringsSubject) Contains(member string) *StringsSubject {
	if !containsString(s.values, member) {
		s.fail(fmt.Sprintf("Expected %s to contain %s, actual value was %v.", s.Describe(), formatValue(member), s.values))
	}
	return s
}

// DoesNotContain checks the list does not have member as an entry.
func (s *StringsSubject) DoesNotContain(member string) *StringsSubject {
	if containsString(s.values, member) {
		s.fail(fmt.Sprintf("Expected %s to not contain %s, actual value was %v.", s.Describe(), formatValue(member), s.values))
	}
	return s
}

// HasLength checks the number of entries.
func (s *StringsSubject) HasLength(n int) *StringsSubject {
	if len(s.values) != n {
		s.fail(fmt.Sprintf("Expected %s to have length %d, actual length was %d.", s.Describe(), n, len(s.values)))
	}
	return s
}

// IsEmpty checks the list has no entries.
func (s *StringsSubject) IsEmpty() *StringsSubject {
	if len(s.values) != 0 {
		s.fail(fmt.Sprintf("Expected %s to be empty, actual value was %v.", s.Describe(), s.values))
	}
	return s
}

// IsNotEmpty checks the list has at least one entry.
func (s *StringsSubject) IsNotEmpty() *StringsSubject {
	if len(s.values) == 0 {
		s.fail(fmt.Sprintf("Expected %s to not be empty.", s.Describe()))
	}
	return s
}

// RunCheck applies a recorded check to the list.
func (s *StringsSubject) RunCheck(c Check) error {
	switch c.Op {
	case OpContains:
		member, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.Contains(member)
	case OpDoesNotContain:
		member, ok := stringArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.DoesNotContain(member)
	case OpHasLength:
		n, ok := intArg(c)
		if !ok {
			return ErrUnsupportedCheck
		}
		s.HasLength(n)
	case OpIsEmpty:
		s.IsEmpty()
	case OpIsNotEmpty:
		s.IsNotEmpty()
	default:
		return ErrUnsupportedCheck
	}
	return nil
}

// BoolSubject asserts on a boolean value.
type BoolSubject struct {
	subject
	value bool
}

// Bool returns a subject asserting on v, reporting failures through r.
func Bool(r Reporter, v bool) *BoolSubject {
	return &BoolSubject{subject: newSubject(r), value: v}
}

// Named assigns the display name used in failure messages.
func (s *BoolSubject) Named(name string) *BoolSubject {
	s.name = name
	return s
}

// WithMessage sets a custom prefix for every failure message of this
// subject.
func (s *BoolSubject) WithMessage(msg string) *BoolSubject {
	s.message = msg
	return s
}

// Describe returns the subject's display name.
func (s *BoolSubject) Describe() string {
	return s.describe("value")
}

// Value returns the underlying bool.
func (s *BoolSubject) Value() bool {
	return s.value
}

// IsTrue checks the value is true.
func (s *BoolSubject) IsTrue() *BoolSubject {
	if !s.value {
		s.fail(fmt.Sprintf("Expected %s to be true.", s.Describe()))
	}
	return s
}

// IsFalse checks the value is false.
func (s *BoolSubject) IsFalse() *BoolSubject {
	if s.value {
		s.fail(fmt.Sprintf("Expected %s to be false.", s.Describe()))
	}
	return s
}

// AnySubject asserts on a value of arbitrary type via deep equality. It
// is the fallback when no more specific subject is registered.
type AnySubject struct {
	subject
	value interface{}
}

// Value returns a subject asserting on v, reporting failures through r.
func Value(r Reporter, v interface{}) *AnySubject {
	return &AnySubject{subject: newSubject(r), value: v}
}

// Named assigns the display name used in failure messages.
func (s *AnySubject) Named(name string) *AnySubject {
	s.name = name
	return s
}

// WithMessage sets a custom prefix for every failure message of this
// subject.
func (s *AnySubject) WithMessage(msg string) *AnySubject {
	s.message = msg
	return s
}

// Describe returns the subject's display name.
func (s *AnySubject) Describe() string {
	return s.describe("value")
}

// Equals checks deep equality with want.
func (s *AnySubject) Equals(want interface{}) *AnySubject {
	if !reflect.DeepEqual(s.value, want) {
		s.fail(fmt.Sprintf("Expected %s to equal %s, actual value was %v.", s.Describe(), formatValue(want), s.value))
	}
	return s
}

// NotEquals checks the value is not deeply equal to want.
func (s *AnySubject) NotEquals(want interface{}) *AnySubject {
	if reflect.DeepEqual(s.value, want) {
		s.fail(fmt.Sprintf("Expected %s to not equal %s.", s.Describe(), formatValue(want)))
	}
	return s
}

// RunCheck applies a recorded equality check to the value.
func (s *AnySubject) RunCheck(c Check) error {
	switch c.Op {
	case OpEquals:
		if len(c.Args) != 1 {
			return ErrUnsupportedCheck
		}
		s.Equals(c.Args[0])
	case OpNotEquals:
		if len(c.Args) != 1 {
			return ErrUnsupportedCheck
		}
		s.NotEquals(c.Args[0])
	default:
		return ErrUnsupportedCheck
	}
	return nil
}

// SubjectFactory builds an assertion subject for v reporting through r.
// It returns false when it does not handle v's type.
type SubjectFactory func(r Reporter, v interface{}) (interface{}, bool)

var (
	factoryMu sync.RWMutex
	factories []SubjectFactory
)

// RegisterSubject installs a custom subject factory. Registrations are
// consulted newest first and take precedence over the built-in subjects,
// so new handle or value types can be taught to the package without
// touching it.
func RegisterSubject(f SubjectFactory) {
	if f == nil {
		misuse("nil SubjectFactory")
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories = append(factories, f)
}

// That builds the most specific subject for v: custom factories first,
// then element handles, strings, string lists and bools, and finally a
// deep-equality fallback for everything else.
func That(r Reporter, v interface{}) interface{} {
	if r == nil {
		misuse("nil Reporter")
	}
	factoryMu.RLock()
	fs := factories
	factoryMu.RUnlock()
	for i := len(fs) - 1; i >= 0; i-- {
		if s, ok := fs[i](r, v); ok {
			return s
		}
	}
	switch x := v.(type) {
	case ElementHandle:
		return Element(r, x)
	case string:
		return String(r, x)
	case []string:
		return Strings(r, x)
	case bool:
		return Bool(r, x)
	}
	return Value(r, v)
}

func containsString(vs []string, want string) bool {
	for _, v := range vs {
		if v == want {
			return true
		}
	}
	return false
}

func stringArg(c Check) (string, bool) {
	if len(c.Args) != 1 {
		return "", false
	}
	s, ok := c.Args[0].(string)
	return s, ok
}

func intArg(c Check) (int, bool) {
	if len(c.Args) != 1 {
		return 0, false
	}
	n, ok := c.Args[0].(int)
	return n, ok
}
