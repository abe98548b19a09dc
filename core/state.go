package core

// State is the outbox lifecycle. The only transitions are
// Uninitialized -> Active (once, via Initialize) and Active -> Failed (once,
// via Fail). Failed is terminal: it is the fraud circuit breaker, and no
// recovery transition exists.
type State uint8

const (
	StateUninitialized State = iota
	StateActive
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
