package models

import (
	"strconv"
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// DefaultLevelName is used when Initiate does not name a verification level.
const DefaultLevelName = "basic-kyc-level"

// Verification is one attempt at verifying a user.
//
// Invariants:
//   - ID, UserID, ApplicantID, LevelName and ExternalApplicantID are set at construction
//   - Status only changes through CanTransition + ApplyTransition
//   - ReviewResult and AccessToken are owned; Clone deep-copies them
type Verification struct {
	ID                  id.VerificationID
	UserID              id.UserID
	ApplicantID         id.ApplicantID
	LevelName           string
	Status              Status
	ExternalApplicantID string
	InspectionID        string
	ReviewResult        *ReviewResult
	AccessToken         AccessTokenHash
	SubmittedAt         *time.Time
	ReviewedAt          *time.Time
	ApprovedAt          *time.Time
	RejectedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewVerification builds an INITIATED verification.
func NewVerification(
	verificationID id.VerificationID,
	userID id.UserID,
	applicantID id.ApplicantID,
	levelName string,
	externalApplicantID string,
	token AccessTokenHash,
	now time.Time,
) (*Verification, error) {
	switch {
	case verificationID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification id cannot be empty")
	case userID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	case applicantID.IsNil():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "applicant id cannot be empty")
	case levelName == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "level name cannot be empty")
	case externalApplicantID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "provider applicant id cannot be empty")
	}
	return &Verification{
		ID:                  verificationID,
		UserID:              userID,
		ApplicantID:         applicantID,
		LevelName:           levelName,
		Status:              StatusInitiated,
		ExternalApplicantID: externalApplicantID,
		AccessToken:         token,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (v *Verification) IsActive() bool {
	return v.Status.IsActive()
}

// CanTransition checks the edge from the current status against table.
// Use with ApplyTransition in Execute callbacks.
func (v *Verification) CanTransition(table TransitionTable, to Status) error {
	return table.Validate(v.Status, to)
}

// ApplyTransition moves to status and stamps the matching decision time.
// Call CanTransition first.
func (v *Verification) ApplyTransition(to Status, now time.Time) {
	v.Status = to
	v.UpdatedAt = now
	switch to {
	case StatusApproved:
		v.ApprovedAt = timePtr(now)
	case StatusRejected:
		v.RejectedAt = timePtr(now)
	}
}

// RecordSubmission stamps the time the provider reported documents submitted.
func (v *Verification) RecordSubmission(now time.Time) {
	v.SubmittedAt = timePtr(now)
	v.UpdatedAt = now
}

// RecordReview stores the provider verdict.
func (v *Verification) RecordReview(result *ReviewResult, now time.Time) {
	v.ReviewResult = result.Clone()
	v.ReviewedAt = timePtr(now)
	v.UpdatedAt = now
}

// RotateAccessToken replaces the stored token hash.
func (v *Verification) RotateAccessToken(token AccessTokenHash, now time.Time) {
	v.AccessToken = token
	v.UpdatedAt = now
}

// Revision identifies the verification's current lifecycle state. It changes
// whenever status or any stamped field changes.
func (v *Verification) Revision() string {
	return v.ID.String() + "@" + v.Status.String() + "@" + strconv.FormatInt(v.UpdatedAt.UnixMicro(), 10)
}

// CanRefreshToken rejects APPROVED and REJECTED verifications.
func (v *Verification) CanRefreshToken() error {
	if v.Status == StatusApproved || v.Status == StatusRejected {
		return dErrors.New(dErrors.CodeInvalidState, "cannot refresh token for a "+v.Status.String()+" verification")
	}
	return nil
}

// CanResubmit requires RESUBMIT_REQUIRED.
func (v *Verification) CanResubmit() error {
	if v.Status != StatusResubmitRequired {
		return dErrors.New(dErrors.CodeInvalidState, "verification is not awaiting resubmission")
	}
	return nil
}

// Clone returns a deep copy safe to hand across the store boundary.
func (v *Verification) Clone() *Verification {
	if v == nil {
		return nil
	}
	c := *v
	c.ReviewResult = v.ReviewResult.Clone()
	c.SubmittedAt = copyTime(v.SubmittedAt)
	c.ReviewedAt = copyTime(v.ReviewedAt)
	c.ApprovedAt = copyTime(v.ApprovedAt)
	c.RejectedAt = copyTime(v.RejectedAt)
	return &c
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
