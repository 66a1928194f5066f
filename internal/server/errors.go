package server

import "fmt"

// ErrorCode classifies MCP tool errors for structured error handling
type ErrorCode string

const (
	// ErrInvalidInput indicates invalid or malformed input parameters
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrUpstream indicates the Strava API or token exchange failed
	ErrUpstream ErrorCode = "UPSTREAM_ERROR"
	// ErrInternalError indicates an unexpected internal error
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// ToolError represents a structured tool error with code, message, and optional details
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *ToolError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any
func (e *ToolError) Unwrap() error {
	return e.cause
}

// NewInvalidInputError creates an error for invalid input parameters
func NewInvalidInputError(msg string) *ToolError {
	return &ToolError{Code: ErrInvalidInput, Message: msg}
}

// NewInvalidInputErrorWithDetails creates an error for invalid input with additional details
func NewInvalidInputErrorWithDetails(msg, details string) *ToolError {
	return &ToolError{Code: ErrInvalidInput, Message: msg, Details: details}
}

// NewUpstreamError creates an error for a failed summary fetch
func NewUpstreamError(err error) *ToolError {
	return &ToolError{
		Code:    ErrUpstream,
		Message: "Fetching activities from Strava failed",
		Details: err.Error(),
		cause:   err,
	}
}

// NewInternalErrorWithCause creates an internal error wrapping another error
func NewInternalErrorWithCause(msg string, err error) *ToolError {
	return &ToolError{
		Code:    ErrInternalError,
		Message: msg,
		Details: err.Error(),
		cause:   err,
	}
}
