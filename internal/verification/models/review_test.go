package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatusFromReview(t *testing.T) {
	tests := []struct {
		answer     ReviewAnswer
		rejectType RejectType
		want       Status
	}{
		{ReviewAnswerGreen, "", StatusApproved},
		{ReviewAnswerGreen, RejectTypeRetry, StatusApproved},
		{ReviewAnswerGreen, RejectTypeFinal, StatusApproved},
		{ReviewAnswerRed, RejectTypeRetry, StatusResubmitRequired},
		{ReviewAnswerRed, RejectTypeFinal, StatusRejected},
		{ReviewAnswerRed, "", StatusRejected},
		{ReviewAnswerRed, "SOMETHING_ELSE", StatusRejected},
		{"YELLOW", RejectTypeRetry, StatusInReview},
		{"", "", StatusInReview},
		{"green", "", StatusInReview},
	}
	for _, tt := range tests {
		t.Run(string(tt.answer)+"/"+string(tt.rejectType), func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatusFromReview(tt.answer, tt.rejectType))
		})
	}
}

func TestReviewResultOwnership(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewReviewResult(ReviewAnswerRed, RejectTypeRetry, []string{" bad_photo", "BAD_PHOTO", "forgery"}, "blurry", "", at)
	assert.Equal(t, []string{"BAD_PHOTO", "FORGERY"}, r.RejectLabels)

	c := r.Clone()
	c.RejectLabels[0] = "CHANGED"
	assert.Equal(t, "BAD_PHOTO", r.RejectLabels[0])

	var nilResult *ReviewResult
	assert.Nil(t, nilResult.Clone())
}
