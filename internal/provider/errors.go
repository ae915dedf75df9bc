package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Category is the normalized failure taxonomy for provider calls.
type Category string

const (
	// CategoryBadRequest: the provider refused the request as malformed or
	// conflicting (4xx other than auth and rate limiting).
	CategoryBadRequest Category = "bad_request"

	// CategoryAuthFailed: credentials or request signature rejected (401/403).
	CategoryAuthFailed Category = "auth_failed"

	// CategoryRateLimited: too many requests (429).
	CategoryRateLimited Category = "rate_limited"

	// CategoryUnavailable: 5xx or no response at all.
	CategoryUnavailable Category = "unavailable"

	// CategoryUnknown: anything else, including undecodable responses.
	CategoryUnknown Category = "unknown"
)

// Error wraps provider failures with normalized categorization.
type Error struct {
	Category   Category
	Operation  string
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
	Attempts   int
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("provider %s [%s]", e.Operation, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds an Error; rate limiting and unavailability are retryable.
func NewError(category Category, operation string, statusCode int, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryRateLimited || category == CategoryUnavailable,
	}
}

// CategoryForStatus classifies a non-2xx HTTP status.
func CategoryForStatus(status int) Category {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CategoryAuthFailed
	case status == http.StatusTooManyRequests:
		return CategoryRateLimited
	case status >= 500:
		return CategoryUnavailable
	case status >= 400:
		return CategoryBadRequest
	default:
		return CategoryUnknown
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to CategoryUnknown.
func CategoryOf(err error) Category {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryUnknown
}
