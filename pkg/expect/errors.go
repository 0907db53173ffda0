// pkg/expect/errors.go
package expect

import "fmt"

// MisuseError describes an incorrect use of the package: a check
// recorded after replay has begun, a recorder replayed twice, a check
// applied to a resolved value that cannot run it, or construction with
// a nil Reporter. These are programming errors, not assertion failures,
// so they surface as panics instead of Reporter calls.
type MisuseError struct {
	Op     CheckOp
	Reason string
}

// Error implements the error interface.
func (e *MisuseError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("expect: misuse: %s (check %q)", e.Reason, e.Op)
	}
	return fmt.Sprintf("expect: misuse: %s", e.Reason)
}

func misuse(format string, args ...interface{}) {
	panic(&MisuseError{Reason: fmt.Sprintf(format, args...)})
}

func misuseOp(op CheckOp, format string, args ...interface{}) {
	panic(&MisuseError{Op: op, Reason: fmt.Sprintf(format, args...)})
}
