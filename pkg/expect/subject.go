// pkg/expect/subject.go
package expect

// subject carries the state shared by every assertion subject: the
// failure target, a display name for messages and an optional custom
// message prefix.
type subject struct {
	r       Reporter
	name    string
	message string
}

func newSubject(r Reporter) subject {
	if r == nil {
		misuse("nil Reporter")
	}
	return subject{r: r}
}

// describe returns the display name, falling back to fallback when none
// was assigned.
func (s *subject) describe(fallback string) string {
	if s.name == "" {
		return fallback
	}
	return s.name
}

// fail reports one failure through the Reporter, applying the custom
// message prefix when set.
func (s *subject) fail(msg string) {
	if s.message != "" {
		msg = s.message + ": " + msg
	}
	s.r.Fail(msg)
}

// setIdentity is used when a subject is built for a resolved value: the
// new subject inherits the awaiting chain's description and custom
// message so its failures read the same as pre-resolution ones.
func (s *subject) setIdentity(name, message string) {
	s.name = name
	s.message = message
}

type identitySetter interface {
	setIdentity(name, message string)
}
