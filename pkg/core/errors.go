package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error surfaced by the live session controller.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	RetryAfter *int      `json:"retry_after,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
	ErrSafetyBlocked  ErrorType = "safety_blocked_error"
	ErrMicPermission  ErrorType = "mic_permission_error"
	ErrQuotaExceeded  ErrorType = "quota_exceeded_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewAuthenticationError creates a credential error. Connect attempts that
// fail with this type are never retried.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string, retryAfter int) *Error {
	return &Error{
		Type:       ErrRateLimit,
		Message:    message,
		RetryAfter: &retryAfter,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// NewOverloadedError creates a service-unavailable error.
func NewOverloadedError(message string) *Error {
	return &Error{
		Type:    ErrOverloaded,
		Message: message,
	}
}

// NewSafetyBlockedError creates a content-policy error. The session remains
// otherwise usable; the blocked turn is not retried.
func NewSafetyBlockedError(message string) *Error {
	return &Error{
		Type:    ErrSafetyBlocked,
		Message: message,
	}
}

// NewMicPermissionError creates a microphone permission error.
func NewMicPermissionError(message string) *Error {
	return &Error{
		Type:    ErrMicPermission,
		Message: message,
	}
}

// NewQuotaExceededError creates a usage quota error.
func NewQuotaExceededError(message string) *Error {
	return &Error{
		Type:    ErrQuotaExceeded,
		Message: message,
	}
}

// IsRetryable returns true if a connect attempt failing with this error may
// be retried with backoff.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrOverloaded, ErrAPI:
		return true
	default:
		return false
	}
}

// TypeOf extracts the canonical error type from an error chain.
// Returns "" when err carries no *Error.
func TypeOf(err error) ErrorType {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ""
}
