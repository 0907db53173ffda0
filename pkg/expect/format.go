// pkg/expect/format.go
package expect

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// AccessFailurePrefix starts every failure message produced by a
// rejected element fetch. Consumers that need to tell access errors
// apart from value mismatches match on this prefix.
const AccessFailurePrefix = "Failed to access"

// accessFailure builds the failure message for a rejected fetch.
func accessFailure(what string, err error) string {
	return fmt.Sprintf("%s %s with error: %v.", AccessFailurePrefix, what, err)
}

// formatValue renders an expected value for a failure message: strings
// are single-quoted, nil prints as <nil>, everything else uses its
// default formatting.
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return "'" + x + "'"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// looseEqual compares a fetched attribute value, always a string, with
// an expected value of any type. Equal strings match directly; otherwise
// both sides are compared numerically when they parse as numbers, and
// remaining types fall back to their string rendering. "05" therefore
// matches 5, and "true" matches true.
func looseEqual(actual string, expected interface{}) bool {
	switch x := expected.(type) {
	case string:
		if actual == x {
			return true
		}
		return numericEqual(actual, x)
	case nil:
		return actual == ""
	default:
		rv := reflect.ValueOf(expected)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return numericEqualFloat(actual, float64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return numericEqualFloat(actual, float64(rv.Uint()))
		case reflect.Float32, reflect.Float64:
			return numericEqualFloat(actual, rv.Float())
		}
		return actual == fmt.Sprintf("%v", x)
	}
}

func numericEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return false
	}
	return floatsEqual(fa, fb)
}

func numericEqualFloat(a string, b float64) bool {
	fa, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return false
	}
	return floatsEqual(fa, b)
}

func floatsEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) < 1e-9
}
