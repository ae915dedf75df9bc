package models

import (
	"encoding/json"
	"strings"

	verification "kycgate/internal/verification/models"
	dErrors "kycgate/pkg/domain-errors"
)

// EventType is the provider's notification type.
type EventType string

const (
	EventApplicantCreated           EventType = "applicantCreated"
	EventApplicantPending           EventType = "applicantPending"
	EventApplicantReviewed          EventType = "applicantReviewed"
	EventApplicantOnHold            EventType = "applicantOnHold"
	EventApplicantReset             EventType = "applicantReset"
	EventApplicantWorkflowCompleted EventType = "applicantWorkflowCompleted"
)

// IsKnown reports whether t is one of the documented notification types.
func (t EventType) IsKnown() bool {
	switch t {
	case EventApplicantCreated, EventApplicantPending, EventApplicantReviewed,
		EventApplicantOnHold, EventApplicantReset, EventApplicantWorkflowCompleted:
		return true
	}
	return false
}

// Payload is the provider's webhook body.
type Payload struct {
	ApplicantID    string         `json:"applicantId"`
	InspectionID   string         `json:"inspectionId"`
	ApplicantType  string         `json:"applicantType"`
	CorrelationID  string         `json:"correlationId"`
	LevelName      string         `json:"levelName"`
	ExternalUserID string         `json:"externalUserId"`
	Type           EventType      `json:"type"`
	ReviewStatus   string         `json:"reviewStatus"`
	CreatedAt      string         `json:"createdAt"`
	SandboxMode    bool           `json:"sandboxMode"`
	ReviewResult   *PayloadReview `json:"reviewResult,omitempty"`
}

// PayloadReview is the verdict block of applicantReviewed. The provider has
// used both reviewRejectType and rejectType for the same field.
type PayloadReview struct {
	ReviewAnswer      string   `json:"reviewAnswer"`
	RejectLabels      []string `json:"rejectLabels,omitempty"`
	ReviewRejectType  string   `json:"reviewRejectType,omitempty"`
	RejectType        string   `json:"rejectType,omitempty"`
	ModerationComment string   `json:"moderationComment,omitempty"`
	ClientComment     string   `json:"clientComment,omitempty"`
}

// Answer returns the verdict exactly as reported. Only GREEN and RED are
// decisions; any other spelling leaves the verification in review.
func (r *PayloadReview) Answer() verification.ReviewAnswer {
	return verification.ReviewAnswer(r.ReviewAnswer)
}

// Reject returns the reject type as reported, preferring reviewRejectType.
func (r *PayloadReview) Reject() verification.RejectType {
	if r.ReviewRejectType != "" {
		return verification.RejectType(r.ReviewRejectType)
	}
	return verification.RejectType(r.RejectType)
}

// ParsePayload decodes and validates a raw webhook body.
func ParsePayload(raw []byte) (*Payload, error) {
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "empty webhook payload")
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed webhook payload")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate requires the fields every notification carries.
func (p *Payload) Validate() error {
	p.ApplicantID = strings.TrimSpace(p.ApplicantID)
	if p.ApplicantID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "applicantId is required")
	}
	if strings.TrimSpace(string(p.Type)) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "type is required")
	}
	return nil
}
