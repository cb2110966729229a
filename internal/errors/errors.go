// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorType represents the type of error
type ErrorType string

const (
	LexicalWarning ErrorType = "LexicalWarning"
	SyntaxError    ErrorType = "SyntaxError"
	CapacityError  ErrorType = "CapacityError"
	DecodeError    ErrorType = "DecodeError"
	RuntimeError   ErrorType = "RuntimeError"
	InputError     ErrorType = "InputError"
)

// NoPC marks an error that did not happen while executing a quad.
const NoPC = -1

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Error is a diagnostic produced by any stage of the pipeline.
type Error struct {
	Type     ErrorType
	Message  string
	Location SourceLocation
	PC       int
	cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Type, e.Message))
	switch {
	case e.PC != NoPC:
		sb.WriteString(fmt.Sprintf(" at PC %04d", e.PC))
	case e.Location.Line > 0:
		sb.WriteString(" at " + e.Location.String())
	}
	return sb.String()
}

// Cause returns the wrapped sentinel, if any.
func (e *Error) Cause() error { return e.cause }

// Unwrap lets errors.Is reach the sentinel.
func (e *Error) Unwrap() error { return e.cause }

// Fatal reports whether the error must stop the pipeline.
func (e *Error) Fatal() bool {
	return e.Type != LexicalWarning && e.Type != InputError
}

func newError(t ErrorType, message string, loc SourceLocation, pc int, cause error) *Error {
	return &Error{Type: t, Message: message, Location: loc, PC: pc, cause: cause}
}

// NewWarning creates a non-fatal lexical warning.
func NewWarning(message string, loc SourceLocation) *Error {
	return newError(LexicalWarning, message, loc, NoPC, nil)
}

// NewSyntaxError creates a grammar mismatch error.
func NewSyntaxError(expected, found string, loc SourceLocation) *Error {
	return newError(SyntaxError, fmt.Sprintf("expected %s but found %s", expected, found), loc, NoPC, nil)
}

// NewCapacityError wraps a table-full sentinel.
func NewCapacityError(cause error, loc SourceLocation) *Error {
	return newError(CapacityError, cause.Error(), loc, NoPC, cause)
}

// NewDecodeError reports an opcode with no registered mnemonic.
func NewDecodeError(cause error, opcode, pc int) *Error {
	return newError(DecodeError, fmt.Sprintf("%v: %d", cause, opcode), SourceLocation{}, pc, cause)
}

// NewRuntimeError creates a fatal execution error at pc.
func NewRuntimeError(cause error, pc int, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return newError(RuntimeError, msg, SourceLocation{}, pc, errors.Wrap(cause, msg))
}

// NewInputError reports a rejected READ response.
func NewInputError(message string, pc int) *Error {
	return newError(InputError, message, SourceLocation{}, pc, nil)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
