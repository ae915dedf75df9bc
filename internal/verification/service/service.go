// Package service implements the verification orchestrator: the only
// component allowed to change a Verification's status.
package service

import (
	"context"
	"log/slog"
	"time"

	"kycgate/internal/audit"
	"kycgate/internal/verification/metrics"
	"kycgate/internal/verification/models"
	"kycgate/pkg/attrs"
	id "kycgate/pkg/domain"
	"kycgate/pkg/requestcontext"
)

type VerificationStore interface {
	CreateIfNoActive(ctx context.Context, v *models.Verification) error
	FindByID(ctx context.Context, verificationID id.VerificationID) (*models.Verification, error)
	FindByExternalApplicantID(ctx context.Context, externalID string) (*models.Verification, error)
	FindActiveByUser(ctx context.Context, userID id.UserID) (*models.Verification, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Verification, error)
	ListStale(ctx context.Context, status models.Status, cutoff time.Time, limit int) ([]*models.Verification, error)
	Execute(ctx context.Context, verificationID id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification)) (*models.Verification, error)
}

type ApplicantStore interface {
	GetOrCreate(ctx context.Context, candidate *models.Applicant) (*models.Applicant, error)
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Applicant, error)
	Update(ctx context.Context, a *models.Applicant) error
}

const (
	defaultAccessTokenTTL = time.Hour
	defaultStaleBatch     = 100
)

// Service orchestrates verifications against the provider and the stores.
type Service struct {
	verifications  VerificationStore
	applicants     ApplicantStore
	gateway        ProviderGateway
	table          models.TransitionTable
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	defaultLevel   string
	tokenTTL       time.Duration
	staleBatch     int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDefaultLevel sets the level used when Initiate names none.
func WithDefaultLevel(level string) Option {
	return func(s *Service) {
		if level != "" {
			s.defaultLevel = level
		}
	}
}

// WithAccessTokenTTL sets the lifetime requested for SDK access tokens.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithStaleBatchSize bounds how many verifications ExpireStale loads per page.
func WithStaleBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.staleBatch = n
		}
	}
}

// New constructs the orchestrator. table is the lifecycle every transition is
// checked against.
func New(
	verifications VerificationStore,
	applicants ApplicantStore,
	gateway ProviderGateway,
	table models.TransitionTable,
	opts ...Option,
) *Service {
	s := &Service{
		verifications: verifications,
		applicants:    applicants,
		gateway:       gateway,
		table:         table,
		logger:        slog.New(slog.DiscardHandler),
		defaultLevel:  models.DefaultLevelName,
		tokenTTL:      defaultAccessTokenTTL,
		staleBatch:    defaultStaleBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logAudit writes an audit log line and forwards the event to the publisher.
// user_id, verification_id, from, to and source attributes populate the event.
func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "log_type", "audit")
	s.logger.InfoContext(ctx, string(action), args...)

	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Timestamp:      requestcontext.Now(ctx),
		Action:         action,
		VerificationID: attrs.ExtractString(attributes, "verification_id"),
		UserID:         attrs.ExtractString(attributes, "user_id"),
		FromStatus:     attrs.ExtractString(attributes, "from"),
		ToStatus:       attrs.ExtractString(attributes, "to"),
		Source:         attrs.ExtractString(attributes, "source"),
		RequestID:      requestID,
		Detail:         attrs.ExtractString(attributes, "detail"),
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit event dropped", "action", string(action), "error", err)
	}
}

func (s *Service) incrementInitiated() {
	if s.metrics != nil {
		s.metrics.Initiated.Inc()
	}
}

func (s *Service) observeInitiate(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveInitiate(start)
	}
}

func (s *Service) incrementTransition(from, to models.Status, source string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(from.String(), to.String(), source).Inc()
	}
}

func (s *Service) incrementDiscarded(source string) {
	if s.metrics != nil {
		s.metrics.DiscardedEvents.WithLabelValues(source).Inc()
	}
}

func (s *Service) incrementUnmatched() {
	if s.metrics != nil {
		s.metrics.UnmatchedWebhooks.Inc()
	}
}

func (s *Service) incrementExpired() {
	if s.metrics != nil {
		s.metrics.Expired.Inc()
	}
}

func (s *Service) incrementProviderFailure(err error) {
	if s.metrics != nil {
		s.metrics.ProviderFailures.WithLabelValues(string(codeOf(err))).Inc()
	}
}
