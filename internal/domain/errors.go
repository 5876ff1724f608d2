package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory classifies why a retrieval failed
type ErrorCategory string

const (
	CategoryUnsupportedPlatform   ErrorCategory = "unsupported_platform"
	CategoryAccessRestricted      ErrorCategory = "access_restricted"
	CategoryContentUnavailable    ErrorCategory = "content_unavailable"
	CategoryPlatformBlocked       ErrorCategory = "platform_blocked"
	CategoryTransientNetworkError ErrorCategory = "transient_network_error"
	CategoryMalformedInput        ErrorCategory = "malformed_input"
)

// Retryable reports whether a manual retry may succeed
func (c ErrorCategory) Retryable() bool {
	return c == CategoryPlatformBlocked || c == CategoryTransientNetworkError
}

// RetrievalError is the normalized failure of a retrieval
type RetrievalError struct {
	Platform  Platform      `json:"platform"`
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
	Err       error         `json:"-"`
}

// NewRetrievalError creates a retrieval error; Retryable follows the category
func NewRetrievalError(platform Platform, category ErrorCategory, message string, cause error) *RetrievalError {
	return &RetrievalError{
		Platform:  platform,
		Category:  category,
		Message:   message,
		Retryable: category.Retryable(),
		Err:       cause,
	}
}

// Error implements error
func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Platform, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Platform, e.Category, e.Message)
}

// Unwrap returns the underlying cause
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// ErrUnsupported creates an UnsupportedPlatform error
func ErrUnsupported(rawURL string) *RetrievalError {
	return NewRetrievalError(PlatformUnsupported, CategoryUnsupportedPlatform,
		fmt.Sprintf("unsupported platform or invalid URL: %q", rawURL), nil)
}

// ErrMalformed creates a MalformedInput error
func ErrMalformed(platform Platform, message string) *RetrievalError {
	return NewRetrievalError(platform, CategoryMalformedInput, message, nil)
}

// ErrAccessRestricted creates an AccessRestricted error
func ErrAccessRestricted(platform Platform, message string, cause error) *RetrievalError {
	return NewRetrievalError(platform, CategoryAccessRestricted, message, cause)
}

// ErrUnavailable creates a ContentUnavailable error
func ErrUnavailable(platform Platform, message string, cause error) *RetrievalError {
	return NewRetrievalError(platform, CategoryContentUnavailable, message, cause)
}

// ErrBlocked creates a PlatformBlocked error
func ErrBlocked(platform Platform, message string, cause error) *RetrievalError {
	return NewRetrievalError(platform, CategoryPlatformBlocked, message, cause)
}

// ErrTransient creates a TransientNetworkError
func ErrTransient(platform Platform, message string, cause error) *RetrievalError {
	return NewRetrievalError(platform, CategoryTransientNetworkError, message, cause)
}

// AsRetrievalError returns err as a *RetrievalError, converting any other
// error into one attributed to platform. It returns nil for a nil err.
func AsRetrievalError(platform Platform, err error) *RetrievalError {
	if err == nil {
		return nil
	}

	var re *RetrievalError
	if errors.As(err, &re) {
		return re
	}

	if errors.Is(err, context.Canceled) {
		return ErrTransient(platform, "request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransient(platform, "request timed out", err)
	}
	return ErrTransient(platform, "unexpected retrieval failure", err)
}
