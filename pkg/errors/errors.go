// Package errors provides custom error types for the application.
// Every failure in a report run carries a code so the command line can tell
// a missing node apart from a broken store or an unreachable advisory service.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents application error codes
type ErrorCode string

// Error codes for different error categories
const (
	// General errors (1xxx)
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeInvalidInput ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"

	// Note content errors (2xxx)
	ErrCodeMalformedContent ErrorCode = "E2001"
	ErrCodeTreeTooDeep      ErrorCode = "E2002"

	// Advisory errors (3xxx)
	ErrCodeLookupFailed ErrorCode = "E3001"

	// Store errors (4xxx)
	ErrCodeDBConnection ErrorCode = "E4001"
	ErrCodeDBQuery      ErrorCode = "E4002"
	ErrCodeDBSchema     ErrorCode = "E4003"

	// Output errors (5xxx)
	ErrCodeRender   ErrorCode = "E5001"
	ErrCodeTemplate ErrorCode = "E5002"
	ErrCodeWrite    ErrorCode = "E5003"

	// Configuration errors (6xxx)
	ErrCodeConfigNotFound ErrorCode = "E6001"
	ErrCodeConfigInvalid  ErrorCode = "E6002"
	ErrCodeConfigParse    ErrorCode = "E6003"
)

// Exit codes returned by the command line
const (
	ExitCodeFailure          = 1
	ExitCodeConfigValidation = 2
)

// AppError represents an application-level error with code and context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for the error
func (e *AppError) ExitCode() int {
	switch e.Code {
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid, ErrCodeConfigParse:
		return ExitCodeConfigValidation
	default:
		return ExitCodeFailure
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Common error constructors for convenience

// ErrNotFound creates a not found error for a named node or resource
func ErrNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ErrMalformedContent creates an error for node text that cannot be decoded
func ErrMalformedContent(node string, err error) *AppError {
	return Wrap(ErrCodeMalformedContent, fmt.Sprintf("malformed content in node %q", node), err)
}

// ErrTreeTooDeep creates an error for a tree exceeding the depth limit
func ErrTreeTooDeep(node string, limit int) *AppError {
	return New(ErrCodeTreeTooDeep, fmt.Sprintf("node %q exceeds maximum depth %d", node, limit)).
		WithDetails(map[string]any{"node": node, "max_depth": limit})
}

// ErrLookupFailed creates an advisory lookup error
func ErrLookupFailed(id string, err error) *AppError {
	return Wrap(ErrCodeLookupFailed, fmt.Sprintf("advisory lookup for %s failed", id), err)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError attempts to convert an error to AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
