package service

import (
	"context"
	"errors"
	"time"

	"kycgate/internal/audit"
	"kycgate/internal/provider"
	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

// Initiate starts a verification for req.UserID. It fails with Conflict when
// the user already has an active verification; the existing one is untouched.
// The plaintext access token is returned exactly once and never stored.
func (s *Service) Initiate(ctx context.Context, req *models.InitiateRequest) (*models.InitiateResult, error) {
	start := time.Now()
	defer s.observeInitiate(start)

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	userID := id.UserID(req.UserID)
	level := req.LevelName
	if level == "" {
		level = s.defaultLevel
	}
	now := requestcontext.Now(ctx)

	if _, err := s.verifications.FindActiveByUser(ctx, userID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "user already has an active verification")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "failed to check active verification")
	}

	applicant, err := s.ensureApplicant(ctx, userID, req.Profile(), now)
	if err != nil {
		return nil, err
	}

	profile := applicant.Profile
	external, err := s.gateway.CreateApplicant(ctx, provider.CreateApplicantInput{
		ExternalUserID: userID.String(),
		LevelName:      level,
		Email:          profile.Email,
		Phone:          profile.Phone,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		DateOfBirth:    profile.DateOfBirth,
		Country:        profile.Country,
		Nationality:    profile.Nationality,
	})
	if err != nil {
		s.incrementProviderFailure(wrapProviderErr(err, ""))
		return nil, wrapProviderErr(err, "failed to create provider applicant")
	}
	if applicant.ExternalApplicantID != external.ID {
		applicant.LinkExternalID(external.ID, now)
		if err := s.applicants.Update(ctx, applicant); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link provider applicant")
		}
	}

	plaintext, hash, err := s.issueToken(ctx, userID, level, now)
	if err != nil {
		return nil, err
	}

	v, err := models.NewVerification(id.NewVerificationID(), userID, applicant.ID, level, external.ID, hash, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build verification")
	}
	v.InspectionID = external.InspectionID

	if err := s.verifications.CreateIfNoActive(ctx, v); err != nil {
		return nil, wrapStoreErr(err, "failed to save verification")
	}

	s.incrementInitiated()
	s.logAudit(ctx, audit.ActionVerificationInitiated,
		"user_id", userID.String(),
		"verification_id", v.ID.String(),
		"to", v.Status.String(),
		"source", models.SourceAPI,
		"level_name", level,
	)

	return &models.InitiateResult{
		VerificationID:      v.ID,
		ExternalApplicantID: external.ID,
		AccessToken:         plaintext,
		ExpiresAt:           hash.ExpiresAt(),
	}, nil
}

// ensureApplicant reuses the user's applicant, refreshing its profile, or
// creates one.
func (s *Service) ensureApplicant(ctx context.Context, userID id.UserID, profile models.Profile, now time.Time) (*models.Applicant, error) {
	candidate, err := models.NewApplicant(id.NewApplicantID(), userID, profile, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build applicant")
	}
	applicant, err := s.applicants.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load applicant")
	}
	if applicant.ID != candidate.ID && applicant.Profile != profile {
		applicant.ApplyProfile(profile, now)
		if err := s.applicants.Update(ctx, applicant); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update applicant")
		}
	}
	return applicant, nil
}

// issueToken asks the provider for a token and returns the plaintext with the
// hash that may be persisted.
func (s *Service) issueToken(ctx context.Context, userID id.UserID, level string, now time.Time) (string, models.AccessTokenHash, error) {
	token, err := s.gateway.IssueAccessToken(ctx, userID.String(), level, s.tokenTTL)
	if err != nil {
		s.incrementProviderFailure(wrapProviderErr(err, ""))
		return "", models.AccessTokenHash{}, wrapProviderErr(err, "failed to issue access token")
	}
	return token.Token, models.HashAccessToken(token.Token, now, now.Add(s.tokenTTL)), nil
}
