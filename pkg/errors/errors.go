package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeBrowser    ErrorType = "browser"
	ErrorTypeEvaluation ErrorType = "evaluation"
	ErrorTypeFetch      ErrorType = "fetch"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a typed error. Code carries a subsystem specific detail such as a
// byte count for validation errors, zero when unused.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a typed error without a cause
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around cause
func Wrap(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// TypeOf returns the ErrorType of the first typed error in err's chain
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type can be retried within a batch
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeEvaluation, ErrorTypeFetch, ErrorTypeValidation, ErrorTypeTimeout:
		return true
	case ErrorTypeAuth, ErrorTypeConfig, ErrorTypeStorage, ErrorTypeBrowser:
		return false
	default:
		return false
	}
}

// IsRetryableError applies IsRetryable to the type found in err's chain
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return IsRetryable(TypeOf(err))
}
