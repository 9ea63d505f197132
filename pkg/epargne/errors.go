package epargne

import (
	"errors"
	"fmt"
)

// ErrorCode classifies core errors so callers can map them to a
// transport-level response without string matching.
type ErrorCode string

const (
	ErrCodeInvalidParameters    ErrorCode = "INVALID_PARAMETERS"
	ErrCodeInsufficientQuantity ErrorCode = "INSUFFICIENT_QUANTITY"
	ErrCodeNegativeQuantity     ErrorCode = "NEGATIVE_QUANTITY"
	ErrCodeDuplicate            ErrorCode = "DUPLICATE"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodePermissionDenied     ErrorCode = "PERMISSION_DENIED"
	ErrCodeImportRow            ErrorCode = "IMPORT_ROW"
	ErrCodeDatabase             ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Error is a structured error with a classification code.
type Error struct {
	Code    ErrorCode
	Message string
	// Row is the 1-based data row number for IMPORT_ROW errors, 0 otherwise.
	Row int
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap supports errors.Is and errors.As on the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with a classification code.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// RowError creates an IMPORT_ROW error carrying the failing row number.
func RowError(row int, message string) *Error {
	return &Error{Code: ErrCodeImportRow, Message: message, Row: row}
}

// IsErrorCode reports whether err (or anything it wraps) carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
