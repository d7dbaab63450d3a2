package recordstore

import (
	"errors"
	"fmt"

	"github.com/roach88/recstore/internal/schema"
)

// ErrorCode categorizes record store errors.
type ErrorCode string

const (
	// CodeNotReady indicates an operation on a Handle whose table is still opening.
	CodeNotReady ErrorCode = "NOT_READY"

	// CodeNotFound indicates Update found no record to change.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeClosed indicates an operation after Close.
	CodeClosed ErrorCode = "CLOSED"

	// CodeUnknownField indicates a field that is not declared, or the identifier
	// used where only declared fields are allowed.
	CodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// CodeTypeMismatch indicates a value whose kind the field does not accept.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// Error is returned for every failure the record store itself detects.
// Storage engine failures are returned wrapped, not converted.
type Error struct {
	Code    ErrorCode
	Table   string
	Field   string
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrNotReady = &Error{Code: CodeNotReady, Message: "table is still opening"}
	ErrNotFound = &Error{Code: CodeNotFound, Message: "no matching record"}
	ErrClosed   = &Error{Code: CodeClosed, Message: "table is closed"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Table != "" && e.Field != "":
		msg += fmt.Sprintf(" (table=%s, field=%s)", e.Table, e.Field)
	case e.Table != "":
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsNotReady returns true if err is a NOT_READY error.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClosed returns true if err is a CLOSED error.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func notReadyError(table string) *Error {
	return &Error{Code: CodeNotReady, Table: table, Message: "table is still opening"}
}

func closedError(table string) *Error {
	return &Error{Code: CodeClosed, Table: table, Message: "table is closed"}
}

func notFoundError(table, field string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Table:   table,
		Field:   field,
		Message: fmt.Sprintf("no record where %s matches", field),
	}
}

// fromValidation converts a *schema.ValidationError into an *Error.
// Other errors are returned unchanged.
func fromValidation(err error) error {
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	code := CodeTypeMismatch
	switch verr.Code {
	case schema.ErrCodeUnknownField, schema.ErrCodeReservedName:
		code = CodeUnknownField
	}
	return &Error{
		Code:    code,
		Table:   verr.Table,
		Field:   verr.Field,
		Message: verr.Message,
		Err:     verr,
	}
}
