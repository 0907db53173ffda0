// pkg/expect/recorder.go
package expect

import (
	"errors"
	"sync"
)

// CheckOp identifies one check in the deferred-call vocabulary. The set
// is closed: eventual subjects record only these operations, and resolved
// subjects advertise which of them they can run through CheckTarget.
type CheckOp string

// The deferred-check vocabulary.
const (
	OpEquals           CheckOp = "equals"
	OpNotEquals        CheckOp = "not_equals"
	OpEqualsNormalized CheckOp = "equals_normalized"
	OpContains         CheckOp = "contains"
	OpDoesNotContain   CheckOp = "does_not_contain"
	OpMatches          CheckOp = "matches"
	OpHasLength        CheckOp = "has_length"
	OpIsEmpty          CheckOp = "is_empty"
	OpIsNotEmpty       CheckOp = "is_not_empty"
	OpWithValue        CheckOp = "with_value"
)

// Check is one recorded assertion call: the operation plus the arguments
// it was invoked with.
type Check struct {
	Op   CheckOp
	Args []interface{}
}

// ErrUnsupportedCheck is returned by a CheckTarget that cannot run the
// given check against its value type. During replay it is escalated to a
// *MisuseError panic.
var ErrUnsupportedCheck = errors.New("check not supported for resolved value")

// CheckTarget is implemented by subjects that can run recorded checks
// against their resolved value. RunCheck reports ErrUnsupportedCheck for
// operations outside the target's vocabulary; assertion failures are
// delivered through the subject's Reporter, not the error return.
type CheckTarget interface {
	RunCheck(c Check) error
}

// callRecorder queues checks issued before a value exists. Recording and
// replay are mutually exclusive phases: once replay begins no further
// call may be recorded, and replay happens at most once. Both invariants
// are internal; a breach means a bug in this package and panics.
type callRecorder struct {
	mu       sync.Mutex
	calls    []Check
	replayed bool
}

func (r *callRecorder) record(c Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replayed {
		misuseOp(c.Op, "check recorded after replay began")
	}
	r.calls = append(r.calls, c)
}

func (r *callRecorder) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// replay applies every recorded check to target in recording order. The
// recorder is drained permanently; whatTarget names the resolved value
// in misuse messages.
func (r *callRecorder) replay(target CheckTarget, whatTarget string) {
	r.mu.Lock()
	if r.replayed {
		r.mu.Unlock()
		misuse("replay invoked twice")
	}
	r.replayed = true
	calls := r.calls
	r.calls = nil
	r.mu.Unlock()

	for _, c := range calls {
		runCheckOn(target, c, whatTarget)
	}
}

// discard drops recorded checks without running them and closes the
// recorder to further recording. Used when the awaited value never
// materializes: the single access or absence failure already stands for
// the whole chain.
func (r *callRecorder) discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replayed = true
	r.calls = nil
}

// runCheckOn applies one check to target, escalating unsupported
// operations to a misuse panic. target may be nil when the resolved
// value produced no check-capable subject.
func runCheckOn(target CheckTarget, c Check, whatTarget string) {
	if target == nil {
		misuseOp(c.Op, "resolved %s cannot run recorded checks", whatTarget)
	}
	if err := target.RunCheck(c); err != nil {
		misuseOp(c.Op, "resolved %s: %v", whatTarget, err)
	}
}
