package fault

import (
	"errors"
	"fmt"
)

// Kind tags an error with the failure category a circuit breaker
// accounts against. The set is closed: breakers classify errors by
// set membership on the tag, never by inspecting concrete error types.
type Kind int

const (
	KindNone Kind = iota // untagged, never counted by any breaker
	KindDataAccess
	KindValidation
	KindConnection
	KindTimeout
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindDataAccess:
		return "data_access"
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindValue:
		return "value"
	default:
		return "none"
	}
}

// Error wraps a cause with its failure kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error with a kind. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// ParseKind decodes a kind from its string form. Unrecognized strings
// yield KindNone.
func ParseKind(s string) Kind {
	switch s {
	case "data_access":
		return KindDataAccess
	case "validation":
		return KindValidation
	case "connection":
		return KindConnection
	case "timeout":
		return KindTimeout
	case "value":
		return KindValue
	default:
		return KindNone
	}
}

// KindOf extracts the failure kind from an error chain.
// Errors that carry no tag report KindNone.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNone
}
