package service

import (
	"errors"

	"kycgate/internal/provider"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/sentinel"
)

// errNoChange short-circuits Execute when an event does not apply.
var errNoChange = errors.New("no state change")

func wrapStoreErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "verification not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "user already has an active verification")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// wrapProviderErr maps a provider failure category onto the matching domain code.
func wrapProviderErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var code dErrors.Code
	switch provider.CategoryOf(err) {
	case provider.CategoryBadRequest:
		code = dErrors.CodeProviderBadRequest
	case provider.CategoryAuthFailed:
		code = dErrors.CodeProviderAuthFailed
	case provider.CategoryRateLimited:
		code = dErrors.CodeProviderRateLimited
	case provider.CategoryUnavailable:
		code = dErrors.CodeProviderUnavailable
	default:
		code = dErrors.CodeProviderUnknown
	}
	return dErrors.Wrap(err, code, msg)
}

func codeOf(err error) dErrors.Code {
	return dErrors.CodeOf(err)
}
