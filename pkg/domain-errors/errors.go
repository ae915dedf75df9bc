// Package domainerrors defines the coded error type shared by services and the
// HTTP layer. Services return *Error values; handlers translate codes to
// transport statuses via pkg/platform/httputil.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, caller-visible error classification.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvalidState       Code = "invalid_state"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Provider failures, classified by the provider's response.
	CodeProviderBadRequest  Code = "provider_bad_request"
	CodeProviderAuthFailed  Code = "provider_auth_failed"
	CodeProviderRateLimited Code = "provider_rate_limited"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeProviderUnknown     Code = "provider_unknown"
)

// Error carries a Code, a human readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping a nil error returns nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when the
// chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// IsProvider reports whether err is one of the provider failure classes.
func IsProvider(err error) bool {
	switch CodeOf(err) {
	case CodeProviderBadRequest, CodeProviderAuthFailed, CodeProviderRateLimited,
		CodeProviderUnavailable, CodeProviderUnknown:
		return true
	}
	return false
}
