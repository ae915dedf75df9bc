// Package domain holds typed identifiers shared across modules. Parse*
// functions are the trust-boundary constructors; direct conversions skip
// validation and belong in stores and tests only.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "kycgate/pkg/domain-errors"
)

const (
	maxUserIDLength       = 128
	verificationIDPrefix  = "ver_"
	verificationIDHexSize = 24
)

// UserID is the caller's opaque user identifier. Also sent to the provider as
// externalUserId.
type UserID string

// VerificationID is the externally shareable verification identifier.
type VerificationID string

// ApplicantID identifies a local applicant profile.
type ApplicantID uuid.UUID

// WebhookEventID identifies a persisted webhook audit record.
type WebhookEventID uuid.UUID

func (u UserID) String() string         { return string(u) }
func (v VerificationID) String() string { return string(v) }
func (a ApplicantID) String() string    { return uuid.UUID(a).String() }
func (w WebhookEventID) String() string { return uuid.UUID(w).String() }

func (a ApplicantID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }
func (w WebhookEventID) IsNil() bool { return uuid.UUID(w) == uuid.Nil }

// NewVerificationID returns a fresh "ver_" + 24 hex character identifier.
func NewVerificationID() VerificationID {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return VerificationID(verificationIDPrefix + raw[:verificationIDHexSize])
}

func NewApplicantID() ApplicantID {
	return ApplicantID(uuid.New())
}

func NewWebhookEventID() WebhookEventID {
	return WebhookEventID(uuid.New())
}

// ParseUserID accepts 1..128 characters of [A-Za-z0-9._:@-].
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "userId is required")
	}
	if len(s) > maxUserIDLength || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "userId is malformed")
	}
	for _, r := range s {
		if !isUserIDRune(r) {
			return "", dErrors.New(dErrors.CodeValidation, "userId contains unsupported characters")
		}
	}
	return UserID(s), nil
}

func isUserIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':', r == '@':
		return true
	}
	return false
}

// ParseVerificationID accepts identifiers produced by NewVerificationID.
func ParseVerificationID(s string) (VerificationID, error) {
	hex, ok := strings.CutPrefix(s, verificationIDPrefix)
	if !ok || len(hex) != verificationIDHexSize {
		return "", dErrors.New(dErrors.CodeValidation, "invalid verification id")
	}
	for _, r := range hex {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return "", dErrors.New(dErrors.CodeValidation, "invalid verification id")
		}
	}
	return VerificationID(s), nil
}

// ParseApplicantID parses a non-nil UUID.
func ParseApplicantID(s string) (ApplicantID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil || parsed == uuid.Nil {
		return ApplicantID{}, dErrors.New(dErrors.CodeValidation, "invalid applicant id")
	}
	return ApplicantID(parsed), nil
}
