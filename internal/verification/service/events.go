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

// ApplyExternalEvent applies a provider-reported fact. Unknown applicants are
// a no-op reported as OutcomeUnmatched. Events whose transition is not a valid
// edge are logged and discarded; the error is swallowed. Replaying an event
// leaves the verification unchanged.
func (s *Service) ApplyExternalEvent(ctx context.Context, ev models.ExternalEvent) (models.ApplyOutcome, error) {
	if ev.ExternalApplicantID == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "event has no applicant id")
	}
	current, err := s.verifications.FindByExternalApplicantID(ctx, ev.ExternalApplicantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.reportUnmatched(ctx, ev)
			return models.OutcomeUnmatched, nil
		}
		return "", wrapStoreErr(err, "failed to look up verification")
	}
	outcome, _, err := s.apply(ctx, current.ID, ev)
	return outcome, err
}

// Sync pulls the applicant status from the provider and feeds it through the
// same transition path as webhooks.
func (s *Service) Sync(ctx context.Context, verificationID id.VerificationID) (*models.Verification, models.ApplyOutcome, error) {
	v, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		return nil, "", wrapStoreErr(err, "failed to load verification")
	}
	status, err := s.gateway.GetApplicantStatus(ctx, v.ExternalApplicantID)
	if err != nil {
		s.incrementProviderFailure(wrapProviderErr(err, ""))
		return nil, "", wrapProviderErr(err, "failed to fetch applicant status")
	}

	ev, ok := eventFromStatus(v.ExternalApplicantID, status, requestcontext.Now(ctx))
	if !ok {
		return v, models.OutcomeNoop, nil
	}
	if v.InspectionID == "" {
		ev.InspectionID = s.lookupInspectionID(ctx, v.ExternalApplicantID)
	}
	outcome, updated, err := s.apply(ctx, v.ID, ev)
	if err != nil {
		return nil, "", err
	}
	if updated == nil {
		updated = v
	}
	return updated, outcome, nil
}

// lookupInspectionID reads the applicant record for the inspection id the
// status endpoint does not report. Failures only leave the field unset.
func (s *Service) lookupInspectionID(ctx context.Context, externalApplicantID string) string {
	applicant, err := s.gateway.GetApplicant(ctx, externalApplicantID)
	if err != nil {
		s.incrementProviderFailure(wrapProviderErr(err, ""))
		s.logger.WarnContext(ctx, "failed to read provider applicant",
			"external_applicant_id", externalApplicantID,
			"error", err.Error(),
		)
		return ""
	}
	return applicant.InspectionID
}

// ExpireStale moves PENDING verifications untouched since cutoff to EXPIRED
// and returns how many moved.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	expired := 0
	for {
		batch, err := s.verifications.ListStale(ctx, models.StatusPending, cutoff, s.staleBatch)
		if err != nil {
			return expired, wrapStoreErr(err, "failed to list stale verifications")
		}
		moved := 0
		for _, v := range batch {
			ok, err := s.expireOne(ctx, v.ID, cutoff)
			if err != nil {
				return expired, err
			}
			if ok {
				moved++
			}
		}
		expired += moved
		if len(batch) < s.staleBatch || moved == 0 {
			return expired, nil
		}
	}
}

func (s *Service) expireOne(ctx context.Context, verificationID id.VerificationID, cutoff time.Time) (bool, error) {
	now := requestcontext.Now(ctx)
	updated, err := s.verifications.Execute(ctx, verificationID,
		func(cur *models.Verification) error {
			if cur.Status != models.StatusPending || !cur.UpdatedAt.Before(cutoff) {
				return errNoChange
			}
			return cur.CanTransition(s.table, models.StatusExpired)
		},
		func(cur *models.Verification) {
			cur.ApplyTransition(models.StatusExpired, now)
		},
	)
	switch {
	case errors.Is(err, errNoChange), errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	case err != nil:
		return false, wrapStoreErr(err, "failed to expire verification")
	}

	s.incrementExpired()
	s.incrementTransition(models.StatusPending, models.StatusExpired, models.SourceSweeper)
	s.logAudit(ctx, audit.ActionStatusChanged,
		"user_id", updated.UserID.String(),
		"verification_id", updated.ID.String(),
		"from", models.StatusPending.String(),
		"to", models.StatusExpired.String(),
		"source", models.SourceSweeper,
	)
	return true, nil
}

// apply runs one event against a verification inside a single Execute. The
// transition path is planned and validated against the locked value.
func (s *Service) apply(ctx context.Context, verificationID id.VerificationID, ev models.ExternalEvent) (models.ApplyOutcome, *models.Verification, error) {
	now := requestcontext.Now(ctx)
	source := ev.Source
	if source == "" {
		source = models.SourceWebhook
	}

	var (
		from models.Status
		path []models.Status
	)
	updated, err := s.verifications.Execute(ctx, verificationID,
		func(cur *models.Verification) error {
			from = cur.Status
			path = planTransition(cur.Status, ev)
			if len(path) == 0 {
				return errNoChange
			}
			at := cur.Status
			for _, to := range path {
				if err := s.table.Validate(at, to); err != nil {
					return err
				}
				at = to
			}
			return nil
		},
		func(cur *models.Verification) {
			if ev.InspectionID != "" {
				cur.InspectionID = ev.InspectionID
			}
			switch ev.Kind {
			case models.EventSubmitted:
				cur.RecordSubmission(now)
			case models.EventReviewed:
				cur.RecordReview(ev.Review, now)
			}
			for _, to := range path {
				cur.ApplyTransition(to, now)
			}
		},
	)
	switch {
	case errors.Is(err, errNoChange):
		s.logger.DebugContext(ctx, "external event did not change state",
			"verification_id", verificationID.String(),
			"status", from.String(),
			"kind", string(ev.Kind),
			"source", source,
		)
		return models.OutcomeNoop, nil, nil
	case dErrors.HasCode(err, dErrors.CodeInvalidTransition):
		s.incrementDiscarded(source)
		s.logger.WarnContext(ctx, "external event discarded: invalid transition",
			"verification_id", verificationID.String(),
			"status", from.String(),
			"kind", string(ev.Kind),
			"source", source,
			"error", err,
		)
		return models.OutcomeDiscarded, nil, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.reportUnmatched(ctx, ev)
		return models.OutcomeUnmatched, nil, nil
	case err != nil:
		return "", nil, wrapStoreErr(err, "failed to apply external event")
	}

	at := from
	for _, step := range path {
		s.incrementTransition(at, step, source)
		at = step
	}
	s.logAudit(ctx, audit.ActionStatusChanged,
		"user_id", updated.UserID.String(),
		"verification_id", updated.ID.String(),
		"from", from.String(),
		"to", updated.Status.String(),
		"source", source,
	)
	return models.OutcomeApplied, updated, nil
}

// planTransition returns the statuses to walk for ev, or nil when ev does not
// apply to from. A submission seen while still INITIATED walks through
// PENDING so both edges are checked.
func planTransition(from models.Status, ev models.ExternalEvent) []models.Status {
	switch ev.Kind {
	case models.EventSubmitted:
		switch from {
		case models.StatusInitiated:
			return []models.Status{models.StatusPending, models.StatusInReview}
		case models.StatusPending:
			return []models.Status{models.StatusInReview}
		}
		return nil
	case models.EventReviewed:
		if ev.Review == nil {
			return nil
		}
		target := models.DeriveStatusFromReview(ev.Review.Answer, ev.Review.RejectType)
		if target == from {
			return nil
		}
		return []models.Status{target}
	}
	return nil
}

func (s *Service) reportUnmatched(ctx context.Context, ev models.ExternalEvent) {
	s.incrementUnmatched()
	s.logger.WarnContext(ctx, "external event matched no verification",
		"external_applicant_id", ev.ExternalApplicantID,
		"kind", string(ev.Kind),
		"source", ev.Source,
	)
	s.logAudit(ctx, audit.ActionWebhookUnmatched,
		"source", ev.Source,
		"detail", ev.ExternalApplicantID,
	)
}

// eventFromStatus converts a provider status read into an ExternalEvent.
func eventFromStatus(externalID string, status *provider.ApplicantStatus, now time.Time) (models.ExternalEvent, bool) {
	if status == nil {
		return models.ExternalEvent{}, false
	}
	ev := models.ExternalEvent{ExternalApplicantID: externalID, Source: models.SourceSync}
	switch status.ReviewStatus {
	case provider.ReviewStatusCompleted:
		if status.ReviewResult == nil {
			return models.ExternalEvent{}, false
		}
		reviewedAt := now
		if t, err := time.Parse(providerTimeLayout, status.ReviewDate); err == nil {
			reviewedAt = t.UTC()
		}
		ev.Kind = models.EventReviewed
		ev.Review = models.NewReviewResult(
			models.ReviewAnswer(status.ReviewResult.ReviewAnswer),
			models.RejectType(status.ReviewResult.ReviewRejectType),
			status.ReviewResult.RejectLabels,
			status.ReviewResult.ModerationComment,
			status.ReviewResult.ClientComment,
			reviewedAt,
		)
		return ev, true
	case provider.ReviewStatusPending, provider.ReviewStatusQueued, provider.ReviewStatusPrechecked, provider.ReviewStatusOnHold:
		ev.Kind = models.EventSubmitted
		return ev, true
	}
	return models.ExternalEvent{}, false
}

// providerTimeLayout is the provider's "2006-01-02 15:04:05" review date format.
const providerTimeLayout = time.DateTime
