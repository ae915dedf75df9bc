package service

import (
	"context"

	"kycgate/internal/audit"
	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/requestcontext"
)

// RefreshToken issues a new SDK token unless the verification is APPROVED or
// REJECTED.
func (s *Service) RefreshToken(ctx context.Context, verificationID id.VerificationID) (*models.TokenResult, error) {
	v, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load verification")
	}
	if err := v.CanRefreshToken(); err != nil {
		return nil, err
	}
	return s.rotateToken(ctx, v)
}

// Resubmit resets the provider applicant and moves a RESUBMIT_REQUIRED
// verification back to PENDING with a fresh token.
func (s *Service) Resubmit(ctx context.Context, verificationID id.VerificationID) (*models.TokenResult, error) {
	v, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load verification")
	}
	if err := v.CanResubmit(); err != nil {
		return nil, err
	}

	if err := s.gateway.ResetApplicant(ctx, v.ExternalApplicantID); err != nil {
		s.incrementProviderFailure(wrapProviderErr(err, ""))
		return nil, wrapProviderErr(err, "failed to reset provider applicant")
	}

	now := requestcontext.Now(ctx)
	updated, err := s.verifications.Execute(ctx, v.ID,
		func(cur *models.Verification) error {
			if err := cur.CanResubmit(); err != nil {
				return err
			}
			return cur.CanTransition(s.table, models.StatusPending)
		},
		func(cur *models.Verification) {
			cur.ApplyTransition(models.StatusPending, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to resubmit verification")
	}

	s.incrementTransition(models.StatusResubmitRequired, models.StatusPending, models.SourceAPI)
	s.logAudit(ctx, audit.ActionResubmitted,
		"user_id", updated.UserID.String(),
		"verification_id", updated.ID.String(),
		"from", models.StatusResubmitRequired.String(),
		"to", updated.Status.String(),
		"source", models.SourceAPI,
	)
	return s.rotateToken(ctx, updated)
}

func (s *Service) rotateToken(ctx context.Context, v *models.Verification) (*models.TokenResult, error) {
	now := requestcontext.Now(ctx)
	plaintext, hash, err := s.issueToken(ctx, v.UserID, v.LevelName, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.verifications.Execute(ctx, v.ID,
		func(cur *models.Verification) error {
			return cur.CanRefreshToken()
		},
		func(cur *models.Verification) {
			cur.RotateAccessToken(hash, now)
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to store access token")
	}

	s.logAudit(ctx, audit.ActionTokenRefreshed,
		"user_id", updated.UserID.String(),
		"verification_id", updated.ID.String(),
		"source", models.SourceAPI,
	)
	return &models.TokenResult{
		VerificationID: updated.ID,
		AccessToken:    plaintext,
		ExpiresAt:      hash.ExpiresAt(),
	}, nil
}
