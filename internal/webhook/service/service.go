// Package service ingests provider webhooks: authenticate, keep an audit copy,
// then hand the fact to the verification orchestrator.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	verification "kycgate/internal/verification/models"
	"kycgate/internal/webhook/metrics"
	"kycgate/internal/webhook/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

type EventStore interface {
	Save(ctx context.Context, e *models.Event) error
	UpdateProcessing(ctx context.Context, eventID id.WebhookEventID, p models.Processing) error
}

// Ledger remembers payloads that were already dispatched against a given
// verification revision.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string, ttl time.Duration) error
}

type SignatureVerifier interface {
	Verify(ctx context.Context, raw []byte, provided string) error
}

// Orchestrator is the only component that changes verification status.
type Orchestrator interface {
	ApplyExternalEvent(ctx context.Context, ev verification.ExternalEvent) (verification.ApplyOutcome, error)
	Revision(ctx context.Context, externalApplicantID string) (string, error)
}

const (
	defaultEventTTL  = 30 * 24 * time.Hour
	defaultDedupeTTL = 24 * time.Hour
)

type Service struct {
	verifier     SignatureVerifier
	events       EventStore
	ledger       Ledger
	orchestrator Orchestrator
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	eventTTL     time.Duration
	dedupeTTL    time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithEventTTL sets how long audit copies are retained.
func WithEventTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.eventTTL = ttl
		}
	}
}

// WithDedupeTTL sets how long a dispatched payload is remembered.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

func New(verifier SignatureVerifier, events EventStore, ledger Ledger, orchestrator Orchestrator, opts ...Option) *Service {
	s := &Service{
		verifier:     verifier,
		events:       events,
		ledger:       ledger,
		orchestrator: orchestrator,
		logger:       slog.New(slog.DiscardHandler),
		tracer:       otel.Tracer("kycgate/webhook"),
		eventTTL:     defaultEventTTL,
		dedupeTTL:    defaultDedupeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result reports what happened to one delivery.
type Result struct {
	EventID id.WebhookEventID
	Outcome models.Outcome
}

// Ingest authenticates raw, stores its audit copy and dispatches it. Only
// signature, payload and infrastructure failures return an error; events the
// lifecycle cannot use still succeed so the provider stops retrying.
func (s *Service) Ingest(ctx context.Context, raw []byte, providedSignature string) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "webhook.ingest", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	if err := s.verifier.Verify(ctx, raw, providedSignature); err != nil {
		s.incrementSignatureFailure()
		s.logger.WarnContext(ctx, "webhook signature rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		endSpan(span, err)
		return nil, err
	}

	payload, err := models.ParsePayload(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook payload rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		endSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("webhook.type", string(payload.Type)),
		attribute.String("webhook.applicant_id", payload.ApplicantID),
	)
	s.incrementReceived(payload.Type)

	now := requestcontext.Now(ctx)
	event := models.NewEvent(payload, raw, now, s.eventTTL)
	if err := s.events.Save(ctx, event); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store webhook event")
		endSpan(span, err)
		return nil, err
	}

	outcome, err := s.process(ctx, event, payload)
	event.RecordAttempt(outcome, err, requestcontext.Now(ctx))
	if updateErr := s.events.UpdateProcessing(ctx, event.ID, event.Processing); updateErr != nil {
		s.logger.ErrorContext(ctx, "failed to record webhook processing",
			"event_id", event.ID.String(),
			"error", updateErr.Error(),
		)
	}

	s.incrementOutcome(outcome)
	s.observeIngest(start)
	span.SetAttributes(attribute.String("webhook.outcome", string(outcome)))
	if err != nil {
		s.logger.ErrorContext(ctx, "webhook dispatch failed",
			"request_id", requestcontext.RequestID(ctx),
			"event_id", event.ID.String(),
			"type", string(payload.Type),
			"applicant_id", payload.ApplicantID,
			"error", err.Error(),
		)
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to process webhook event")
		endSpan(span, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "webhook processed",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", event.ID.String(),
		"type", string(payload.Type),
		"applicant_id", payload.ApplicantID,
		"outcome", string(outcome),
	)
	return &Result{EventID: event.ID, Outcome: outcome}, nil
}

// process consults the replay ledger, dispatches, and remembers successful
// dispatches. Ledger keys pair the payload digest with the verification
// revision, so a replay is only a duplicate while the verification is still in
// the state the first delivery left it in. Ledger failures only cost a
// redundant dispatch.
func (s *Service) process(ctx context.Context, event *models.Event, payload *models.Payload) (models.Outcome, error) {
	if key, ok := s.ledgerKey(ctx, event.PayloadDigest, payload.ApplicantID); ok {
		seen, err := s.ledger.Seen(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "webhook ledger lookup failed", "error", err.Error())
		}
		if seen {
			return models.OutcomeDuplicate, nil
		}
	}

	outcome, err := s.dispatch(ctx, payload)
	if err != nil {
		return models.OutcomeFailed, err
	}
	if key, ok := s.ledgerKey(ctx, event.PayloadDigest, payload.ApplicantID); ok {
		if err := s.ledger.Remember(ctx, key, s.dedupeTTL); err != nil {
			s.logger.WarnContext(ctx, "webhook ledger write failed", "error", err.Error())
		}
	}
	return outcome, nil
}

// ledgerKey returns digest scoped to the applicant's current verification
// revision. Unmatched applicants use the bare digest.
func (s *Service) ledgerKey(ctx context.Context, digest, applicantID string) (string, bool) {
	revision, err := s.orchestrator.Revision(ctx, applicantID)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook ledger revision lookup failed",
			"applicant_id", applicantID,
			"error", err.Error(),
		)
		return "", false
	}
	if revision == "" {
		return digest, true
	}
	return digest + ":" + revision, true
}

func (s *Service) dispatch(ctx context.Context, p *models.Payload) (models.Outcome, error) {
	switch p.Type {
	case models.EventApplicantPending:
		return s.apply(ctx, verification.ExternalEvent{
			Kind:                verification.EventSubmitted,
			ExternalApplicantID: p.ApplicantID,
			InspectionID:        p.InspectionID,
			Source:              verification.SourceWebhook,
		})

	case models.EventApplicantReviewed:
		if p.ReviewResult == nil {
			s.logger.WarnContext(ctx, "review result missing from webhook", "applicant_id", p.ApplicantID)
			return models.OutcomeIgnored, nil
		}
		r := p.ReviewResult
		return s.apply(ctx, verification.ExternalEvent{
			Kind:                verification.EventReviewed,
			ExternalApplicantID: p.ApplicantID,
			InspectionID:        p.InspectionID,
			Review: verification.NewReviewResult(r.Answer(), r.Reject(), r.RejectLabels,
				r.ModerationComment, r.ClientComment, requestcontext.Now(ctx)),
			Source: verification.SourceWebhook,
		})

	case models.EventApplicantReset, models.EventApplicantWorkflowCompleted,
		models.EventApplicantCreated, models.EventApplicantOnHold:
		s.logger.InfoContext(ctx, "webhook acknowledged without action",
			"type", string(p.Type),
			"applicant_id", p.ApplicantID,
		)
		return models.OutcomeIgnored, nil

	default:
		s.logger.DebugContext(ctx, "unhandled webhook type",
			"type", string(p.Type),
			"applicant_id", p.ApplicantID,
		)
		return models.OutcomeIgnored, nil
	}
}

func (s *Service) apply(ctx context.Context, ev verification.ExternalEvent) (models.Outcome, error) {
	outcome, err := s.orchestrator.ApplyExternalEvent(ctx, ev)
	if err != nil {
		return models.OutcomeFailed, err
	}
	return models.Outcome(outcome), nil
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	var de *dErrors.Error
	if errors.As(err, &de) {
		span.SetStatus(codes.Error, string(de.Code))
		return
	}
	span.SetStatus(codes.Error, err.Error())
}

func (s *Service) incrementSignatureFailure() {
	if s.metrics != nil {
		s.metrics.SignatureFailures.Inc()
	}
}

func (s *Service) incrementReceived(t models.EventType) {
	if s.metrics == nil {
		return
	}
	label := string(t)
	if !t.IsKnown() {
		label = "other"
	}
	s.metrics.Received.WithLabelValues(label).Inc()
}

func (s *Service) incrementOutcome(o models.Outcome) {
	if s.metrics != nil {
		s.metrics.Outcomes.WithLabelValues(string(o)).Inc()
	}
}

func (s *Service) observeIngest(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveIngest(start)
	}
}
