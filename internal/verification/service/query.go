package service

import (
	"context"
	"errors"

	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// GetStatus returns the verification or NotFound.
func (s *Service) GetStatus(ctx context.Context, verificationID id.VerificationID) (*models.Verification, error) {
	v, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load verification")
	}
	return v, nil
}

// ListForUser returns the user's verifications, most recent first.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Verification, error) {
	list, err := s.verifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list verifications")
	}
	return list, nil
}

// Revision returns the lifecycle revision of the verification linked to a
// provider applicant, or "" when none is.
func (s *Service) Revision(ctx context.Context, externalApplicantID string) (string, error) {
	v, err := s.verifications.FindByExternalApplicantID(ctx, externalApplicantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", wrapStoreErr(err, "failed to look up verification")
	}
	return v.Revision(), nil
}
