package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a Rei error code.
type ErrorCode string

// Error codes. P0xxx are parse failures, R1xxx are runtime errors.
// The lexer never fails: unknown characters are skipped.
const (
	ErrUnexpectedToken  ErrorCode = "P0201"
	ErrExpectedToken    ErrorCode = "P0202"
	ErrInvalidSubscript ErrorCode = "P0203"
	ErrEmptyProgram     ErrorCode = "P0204"

	ErrCodeUndefinedVariable ErrorCode = "R1001"
	ErrCodeImmutableBinding  ErrorCode = "R1002"
	ErrCodeArityMismatch     ErrorCode = "R1003"
	ErrCodeUnknownCommand    ErrorCode = "R1004"
	ErrCodeUnknownMember     ErrorCode = "R1005"
	ErrCodeIndexOutOfRange   ErrorCode = "R1006"
	ErrCodeNoMatchingArm     ErrorCode = "R1007"
	ErrCodeTypeMismatch      ErrorCode = "R1008"
	ErrCodeNotCallable       ErrorCode = "R1009"
	ErrCodeReduceBelowBase   ErrorCode = "R1010"
	ErrCodeRecursionLimit    ErrorCode = "R1011"
	ErrCodeSessionBusy       ErrorCode = "R1012"
	ErrCodeUnknownMode       ErrorCode = "R1013"
)

// Sentinel errors for use with errors.Is. Any *Error carrying the same code
// matches its sentinel.
var (
	ErrUndefinedVariable = &Error{Code: ErrCodeUndefinedVariable, Message: "undefined variable"}
	ErrImmutableBinding  = &Error{Code: ErrCodeImmutableBinding, Message: "immutable binding"}
	ErrArityMismatch     = &Error{Code: ErrCodeArityMismatch, Message: "arity mismatch"}
	ErrUnknownCommand    = &Error{Code: ErrCodeUnknownCommand, Message: "unknown command"}
	ErrUnknownMember     = &Error{Code: ErrCodeUnknownMember, Message: "unknown member"}
	ErrIndexOutOfRange   = &Error{Code: ErrCodeIndexOutOfRange, Message: "index out of range"}
	ErrNoMatchingArm     = &Error{Code: ErrCodeNoMatchingArm, Message: "no matching arm"}
	ErrTypeMismatch      = &Error{Code: ErrCodeTypeMismatch, Message: "type mismatch"}
	ErrNotCallable       = &Error{Code: ErrCodeNotCallable, Message: "value is not callable"}
	ErrReduceBelowBase   = &Error{Code: ErrCodeReduceBelowBase, Message: "cannot reduce below base depth"}
	ErrRecursionLimit    = &Error{Code: ErrCodeRecursionLimit, Message: "maximum recursion depth exceeded"}
	ErrSessionBusy       = &Error{Code: ErrCodeSessionBusy, Message: "session is already evaluating"}
	ErrUnknownMode       = &Error{Code: ErrCodeUnknownMode, Message: "unknown mode"}
	ErrParse             = &Error{Code: ErrUnexpectedToken, Message: "unexpected token"}
)

// Error represents a structured Rei error.
type Error struct {
	Code    ErrorCode
	Message string
	Line    int // 0 when the position is unknown
	Column  int
	Token   string
	Err     error
}

// NewError creates a new error without position information.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Code, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// At attaches a source position unless one is already set.
func (e *Error) At(pos Position) *Error {
	if e.Line == 0 {
		e.Line = pos.Line
		e.Column = pos.Column
	}
	return e
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return len(e.Code) > 0 && e.Code[0] == 'P'
	}
	return false
}
