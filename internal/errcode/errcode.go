// Package errcode defines the error taxonomy shared by every layer of simi:
// parsing, protocol I/O, serialization, the filesystem, and fatal startup
// failures all report through the same small set of codes so callers can
// switch on them without string matching.
package errcode

import (
	"errors"
	"fmt"
)

// Code classifies an AppError. The zero value, Ok, is a sentinel and is
// never attached to a returned error.
type Code int

const (
	Ok Code = iota
	EmptyLine
	WrongArgs
	UnknownCommand
	Network
	Serial
	Filesys
	Fatal
)

// String returns a human-readable name for the code.
func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case EmptyLine:
		return "empty line"
	case WrongArgs:
		return "wrong args"
	case UnknownCommand:
		return "unknown command"
	case Network:
		return "network"
	case Serial:
		return "serial"
	case Filesys:
		return "filesys"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// AppError is the error type returned by every simi package. It carries a
// Code for policy dispatch (spec error-handling table) plus a human
// description, and optionally wraps an underlying cause.
type AppError struct {
	Code Code
	Msg  string
	Err  error
}

// New creates an AppError with no wrapped cause.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Msg: msg}
}

// Wrap creates an AppError that wraps an existing error.
func Wrap(code Code, msg string, err error) *AppError {
	return &AppError{Code: code, Msg: msg, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError with the same Code. This lets
// callers write errors.Is(err, errcode.New(errcode.Network, "")) style
// checks, matching on code alone.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Describe renders the error the way the terminal sink presents it to the
// user: just the message, no code prefix (the code is for program logic).
func Describe(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return err.Error()
}
