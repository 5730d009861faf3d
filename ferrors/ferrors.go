// Package ferrors defines the closed error taxonomy the Job Engine uses
// to classify failures for callers that need to branch on the kind of
// error (e.g. a REST layer mapping to an HTTP status).
//
// Package-level sentinel errors, as the rest of the engine's ambient
// error handling uses, are not expressive
// enough here because the REST contract needs to discriminate an
// exhaustive, closed set of kinds rather than match one specific cause.
// [Code] fills that role while [Error] still composes with errors.Is
// and errors.As the normal way.
package ferrors

import (
	"errors"
	"fmt"
)

// Code enumerates the error kinds the Job Engine can report.
type Code int

const (
	// Success is a sentinel, not an error. It is never wrapped in an
	// [Error] value; it exists so callers can compare a recorded status
	// code against "no error" without a separate boolean.
	Success Code = iota

	// NullPointer is raised when a required argument (e.g. a Job to
	// submit) was nil.
	NullPointer

	// ParameterOutOfRange is raised when a numeric argument is outside
	// its valid domain (progress outside [0,1]) or an id does not name
	// any handler known to the registry.
	ParameterOutOfRange

	// BadSequenceOfCalls is raised when an operation is attempted from a
	// state that does not permit it (e.g. committing a retry outcome for
	// a handler that is not Running).
	BadSequenceOfCalls

	// BadFileFormat is raised when a submission body or step input could
	// not be parsed.
	BadFileFormat

	// InternalError is the catch-all for an unexpected panic or error
	// surfacing from a job's ExecuteStep.
	InternalError
)

// String renders the code the way it would appear in a status document.
func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case NullPointer:
		return "NullPointer"
	case ParameterOutOfRange:
		return "ParameterOutOfRange"
	case BadSequenceOfCalls:
		return "BadSequenceOfCalls"
	case BadFileFormat:
		return "BadFileFormat"
	case InternalError:
		return "InternalError"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error pairs a [Code] with the underlying cause, if any.
type Error struct {
	Code Code
	msg  string
	err  error
}

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

// Wrap creates an Error with the given code that also carries an
// underlying cause, preserved for errors.Is/errors.As/errors.Unwrap.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, msg: msg, err: cause}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is allows errors.Is(err, ferrors.New(SomeCode, "")) to match purely on
// code, ignoring message and cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the Code carried by err, or InternalError if err does
// not wrap a *Error.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return InternalError
}
