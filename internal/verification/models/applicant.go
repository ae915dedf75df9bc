package models

import (
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Profile is the personal data forwarded to the provider on applicant creation.
type Profile struct {
	Email       string
	Phone       string
	FirstName   string
	LastName    string
	DateOfBirth string
	Country     string
	Nationality string
}

// Applicant is a user's provider-facing profile, unique per user.
type Applicant struct {
	ID                  id.ApplicantID
	UserID              id.UserID
	ExternalApplicantID string
	Profile             Profile
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func NewApplicant(applicantID id.ApplicantID, userID id.UserID, profile Profile, now time.Time) (*Applicant, error) {
	if applicantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "applicant id cannot be empty")
	}
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	return &Applicant{
		ID:        applicantID,
		UserID:    userID,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasExternalID reports whether the provider applicant exists.
func (a *Applicant) HasExternalID() bool {
	return a.ExternalApplicantID != ""
}

// ApplyProfile replaces personal fields with the latest caller-supplied values.
func (a *Applicant) ApplyProfile(profile Profile, now time.Time) {
	a.Profile = profile
	a.UpdatedAt = now
}

// LinkExternalID records the provider-assigned applicant id.
func (a *Applicant) LinkExternalID(externalID string, now time.Time) {
	a.ExternalApplicantID = externalID
	a.UpdatedAt = now
}

func (a *Applicant) Clone() *Applicant {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
