package handler

import (
	"time"

	"kycgate/internal/verification/models"
)

// VerificationResponse is the public projection of a Verification. The token
// hash never leaves the service; only its expiry does.
type VerificationResponse struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"userId"`
	Status               string          `json:"status"`
	LevelName            string          `json:"levelName"`
	ApplicantID          string          `json:"applicantId"`
	InspectionID         string          `json:"inspectionId,omitempty"`
	ReviewResult         *ReviewResponse `json:"reviewResult,omitempty"`
	AccessTokenExpiresAt *time.Time      `json:"accessTokenExpiresAt,omitempty"`
	SubmittedAt          *time.Time      `json:"submittedAt,omitempty"`
	ReviewedAt           *time.Time      `json:"reviewedAt,omitempty"`
	ApprovedAt           *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt           *time.Time      `json:"rejectedAt,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

type ReviewResponse struct {
	ReviewAnswer      string    `json:"reviewAnswer"`
	RejectType        string    `json:"rejectType,omitempty"`
	RejectLabels      []string  `json:"rejectLabels,omitempty"`
	ModerationComment string    `json:"moderationComment,omitempty"`
	ClientComment     string    `json:"clientComment,omitempty"`
	ReviewDate        time.Time `json:"reviewDate"`
}

type InitiateResponse struct {
	VerificationID string    `json:"verificationId"`
	ApplicantID    string    `json:"applicantId"`
	AccessToken    string    `json:"accessToken"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type TokenResponse struct {
	VerificationID string    `json:"verificationId"`
	AccessToken    string    `json:"accessToken"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type ListResponse struct {
	Verifications []VerificationResponse `json:"verifications"`
}

type SyncResponse struct {
	Outcome      string               `json:"outcome"`
	Verification VerificationResponse `json:"verification"`
}

func toVerificationResponse(v *models.Verification) VerificationResponse {
	resp := VerificationResponse{
		ID:           v.ID.String(),
		UserID:       v.UserID.String(),
		Status:       v.Status.String(),
		LevelName:    v.LevelName,
		ApplicantID:  v.ExternalApplicantID,
		InspectionID: v.InspectionID,
		SubmittedAt:  v.SubmittedAt,
		ReviewedAt:   v.ReviewedAt,
		ApprovedAt:   v.ApprovedAt,
		RejectedAt:   v.RejectedAt,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if !v.AccessToken.IsZero() {
		exp := v.AccessToken.ExpiresAt()
		resp.AccessTokenExpiresAt = &exp
	}
	if rr := v.ReviewResult; rr != nil {
		resp.ReviewResult = &ReviewResponse{
			ReviewAnswer:      string(rr.Answer),
			RejectType:        string(rr.RejectType),
			RejectLabels:      rr.RejectLabels,
			ModerationComment: rr.ModerationComment,
			ClientComment:     rr.ClientComment,
			ReviewDate:        rr.ReviewedAt,
		}
	}
	return resp
}

func toTokenResponse(t *models.TokenResult) TokenResponse {
	return TokenResponse{
		VerificationID: t.VerificationID.String(),
		AccessToken:    t.AccessToken,
		ExpiresAt:      t.ExpiresAt,
	}
}
