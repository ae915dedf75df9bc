package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryForStatus(t *testing.T) {
	cases := map[int]Category{
		400: CategoryBadRequest,
		404: CategoryBadRequest,
		409: CategoryBadRequest,
		422: CategoryBadRequest,
		401: CategoryAuthFailed,
		403: CategoryAuthFailed,
		429: CategoryRateLimited,
		500: CategoryUnavailable,
		502: CategoryUnavailable,
		503: CategoryUnavailable,
		302: CategoryUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, CategoryForStatus(status), "status %d", status)
	}
}

func TestRetryability(t *testing.T) {
	for _, c := range []Category{CategoryRateLimited, CategoryUnavailable} {
		assert.True(t, NewError(c, "op", 0, "", nil).Retryable, c)
	}
	for _, c := range []Category{CategoryBadRequest, CategoryAuthFailed, CategoryUnknown} {
		assert.False(t, NewError(c, "op", 0, "", nil).Retryable, c)
	}

	wrapped := fmt.Errorf("outer: %w", NewError(CategoryUnavailable, "op", 503, "down", nil))
	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, CategoryUnavailable, CategoryOf(wrapped))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, CategoryUnknown, CategoryOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := NewError(CategoryBadRequest, "create_applicant", 400, "invalid level", errors.New("cause"))
	assert.Equal(t, "provider create_applicant [bad_request] status=400: invalid level: cause", err.Error())
	assert.ErrorIs(t, err, err.Underlying)
}
