package registry

import (
	"errors"
	"fmt"
)

// Error kinds reported by the registry.
var (
	ErrNotInitialized    = errors.New("registry not initialized")
	ErrBadArgument       = errors.New("bad argument")
	ErrRouteRegistration = errors.New("route registration failed")
	ErrFileLoad          = errors.New("file load failed")
	ErrConfigParse       = errors.New("config parse failed")
	ErrAPINotFound       = errors.New("api not found")
)

// Error is returned by registry operations. It matches its Kind with errors.Is and
// unwraps to its Cause.
type Error struct {
	Kind   error
	Reason string
	Cause  error
}

func newError(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}
