package cookieapi

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *DecodeError through errors.Is.
	ErrDecode = errors.New("malformed host response")

	ErrNotObject       = errors.New("not an object")
	ErrMissingField    = errors.New("missing required field")
	ErrWrongType       = errors.New("wrong field type")
	ErrInvalidSameSite = errors.New("invalid sameSite status")
	ErrSessionMismatch = errors.New("session flag disagrees with expirationDate")
	ErrMalformed       = errors.New("malformed JSON")

	ErrNoHost = errors.New("no cookies host configured")
)

// DecodeError reports a host response that does not have the Cookie shape.
type DecodeError struct {
	// Op is the gateway method that received the response ("get" or "set").
	Op string
	// Field is the camelCase key at fault, empty for whole-payload failures.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	op := e.Op
	if op == "" {
		op = "decode"
	}
	if e.Field == "" {
		return fmt.Sprintf("cookies.%s: %s: %v", op, ErrDecode, e.Err)
	}
	return fmt.Sprintf("cookies.%s: %s: %s: %v", op, ErrDecode, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// HostError wraps a failure raised by the host itself: an exception, a
// rejected promise, a broken transport or an expired context.
type HostError struct {
	Op  string
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("cookies.%s: host call failed: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}
