package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a stable error category for programmatic handling.
type Code string

const (
	// CodeInvalidRelation rejects self-referencing derivation edges.
	CodeInvalidRelation Code = "invalid_relation"
	// CodeForbidden rejects references to another user's data.
	CodeForbidden Code = "forbidden"
	// CodeCycleDetected rejects edges that would close a derivation cycle.
	CodeCycleDetected Code = "cycle_detected"
	// CodeEmptyPlan rejects aggregation over a missing or empty meal plan.
	CodeEmptyPlan Code = "empty_plan"
	// CodeNotFound reports a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeInfrastructure wraps storage-layer faults. These are the only
	// errors that are safe to retry: no mutating operation commits
	// partial state, so a failed call leaves everything as it was.
	CodeInfrastructure Code = "infrastructure"
)

// Error is a code-carrying error. Business codes are terminal rejections
// and must not be retried; see CodeInfrastructure for the exception.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Infra wraps a storage-layer error.
func Infra(err error, message string) *Error {
	return Wrap(err, CodeInfrastructure, message)
}

// IsCode reports whether err carries the given code, unwrapping as needed.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInfrastructure when err
// is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInfrastructure
}
