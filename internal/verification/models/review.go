package models

import (
	"time"

	strs "kycgate/pkg/platform/strings"
)

// ReviewAnswer is the provider's verdict.
type ReviewAnswer string

const (
	ReviewAnswerGreen ReviewAnswer = "GREEN"
	ReviewAnswerRed   ReviewAnswer = "RED"
)

// RejectType says whether a RED verdict may be resubmitted.
type RejectType string

const (
	RejectTypeRetry RejectType = "RETRY"
	RejectTypeFinal RejectType = "FINAL"
)

// ReviewResult is owned by its Verification and copied on every read.
type ReviewResult struct {
	Answer            ReviewAnswer `json:"reviewAnswer"`
	RejectType        RejectType   `json:"rejectType,omitempty"`
	RejectLabels      []string     `json:"rejectLabels,omitempty"`
	ModerationComment string       `json:"moderationComment,omitempty"`
	ClientComment     string       `json:"clientComment,omitempty"`
	ReviewedAt        time.Time    `json:"reviewDate"`
}

// NewReviewResult normalises reject labels and stamps the decision time.
func NewReviewResult(answer ReviewAnswer, rejectType RejectType, labels []string, moderation, client string, at time.Time) *ReviewResult {
	return &ReviewResult{
		Answer:            answer,
		RejectType:        rejectType,
		RejectLabels:      strs.DedupeAndTrimUpper(labels),
		ModerationComment: moderation,
		ClientComment:     client,
		ReviewedAt:        at,
	}
}

func (r *ReviewResult) Clone() *ReviewResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.RejectLabels != nil {
		c.RejectLabels = append([]string(nil), r.RejectLabels...)
	}
	return &c
}

// DeriveStatusFromReview maps a provider verdict to the status it implies.
// Unknown answers mean no decision yet and yield IN_REVIEW.
func DeriveStatusFromReview(answer ReviewAnswer, rejectType RejectType) Status {
	switch answer {
	case ReviewAnswerGreen:
		return StatusApproved
	case ReviewAnswerRed:
		if rejectType == RejectTypeRetry {
			return StatusResubmitRequired
		}
		return StatusRejected
	default:
		return StatusInReview
	}
}
