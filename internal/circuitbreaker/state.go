package circuitbreaker

import "fmt"

// State is the circuit breaker state machine position.
type State int

const (
	StateClosed   State = iota // calls pass through normally
	StateOpen                  // calls short-circuit to fallback
	StateHalfOpen              // a trial call is permitted to test recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ParseState decodes a state from its storage representation.
// Free-form strings exist only at the storage boundary; everywhere
// else the closed enum is used.
func ParseState(s string) (State, error) {
	switch s {
	case "closed":
		return StateClosed, nil
	case "open":
		return StateOpen, nil
	case "half_open":
		return StateHalfOpen, nil
	default:
		return StateClosed, fmt.Errorf("unknown circuit state %q", s)
	}
}
