package models

import (
	"net/mail"
	"strings"
	"time"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// InitiateRequest is the command-surface input for starting a verification.
type InitiateRequest struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Country     string `json:"country,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	LevelName   string `json:"levelName,omitempty"`
}

// Normalize trims fields and upper-cases country codes.
func (r *InitiateRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	r.Nationality = strings.ToUpper(strings.TrimSpace(r.Nationality))
	r.LevelName = strings.TrimSpace(r.LevelName)
}

// Validate returns CodeValidation errors for malformed input.
func (r *InitiateRequest) Validate() error {
	if _, err := id.ParseUserID(r.UserID); err != nil {
		return err
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	if r.DateOfBirth != "" {
		if _, err := time.Parse(time.DateOnly, r.DateOfBirth); err != nil {
			return dErrors.New(dErrors.CodeValidation, "dateOfBirth must be YYYY-MM-DD")
		}
	}
	if r.Country != "" && !isAlpha3(r.Country) {
		return dErrors.New(dErrors.CodeValidation, "country must be an ISO 3166 alpha-3 code")
	}
	if r.Nationality != "" && !isAlpha3(r.Nationality) {
		return dErrors.New(dErrors.CodeValidation, "nationality must be an ISO 3166 alpha-3 code")
	}
	if len(r.LevelName) > 128 {
		return dErrors.New(dErrors.CodeValidation, "levelName must be 128 characters or less")
	}
	return nil
}

// Profile extracts the personal fields.
func (r *InitiateRequest) Profile() Profile {
	return Profile{
		Email:       r.Email,
		Phone:       r.Phone,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth,
		Country:     r.Country,
		Nationality: r.Nationality,
	}
}

func isAlpha3(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// InitiateResult carries the one-time plaintext token back to the caller.
type InitiateResult struct {
	VerificationID      id.VerificationID
	ExternalApplicantID string
	AccessToken         string
	ExpiresAt           time.Time
}

// TokenResult is returned by RefreshToken and Resubmit.
type TokenResult struct {
	VerificationID id.VerificationID
	AccessToken    string
	ExpiresAt      time.Time
}
