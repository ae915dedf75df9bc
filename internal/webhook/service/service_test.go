package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/provider"
	verification "kycgate/internal/verification/models"
	orchestrator "kycgate/internal/verification/service"
	"kycgate/internal/verification/service/mocks"
	applicantstore "kycgate/internal/verification/store/applicant"
	verificationstore "kycgate/internal/verification/store/verification"
	"kycgate/internal/webhook/metrics"
	"kycgate/internal/webhook/models"
	"kycgate/internal/webhook/signature"
	"kycgate/internal/webhook/store/event"
	"kycgate/internal/webhook/store/ledger"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

const secret = "webhook-secret"

// countingStore wraps the in-memory store to observe writes.
type countingStore struct {
	*event.InMemory
	saves   int
	saveErr error
}

func (s *countingStore) Save(ctx context.Context, e *models.Event) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return s.InMemory.Save(ctx, e)
}

type failingOrchestrator struct {
	calls int
	err   error
}

func (o *failingOrchestrator) ApplyExternalEvent(context.Context, verification.ExternalEvent) (verification.ApplyOutcome, error) {
	o.calls++
	return "", o.err
}

func (o *failingOrchestrator) Revision(context.Context, string) (string, error) {
	return "", nil
}

type IngestSuite struct {
	suite.Suite
	ctx           context.Context
	gateway       *mocks.MockProviderGateway
	verifications *verificationstore.InMemory
	orchestrator  *orchestrator.Service
	events        *countingStore
	ledger        *ledger.InMemory
	metrics       *metrics.Metrics
	service       *Service
}

func TestIngestSuite(t *testing.T) {
	suite.Run(t, new(IngestSuite))
}

func (s *IngestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	s.gateway = mocks.NewMockProviderGateway(ctrl)
	s.verifications = verificationstore.NewInMemory()
	s.orchestrator = orchestrator.New(s.verifications, applicantstore.NewInMemory(), s.gateway,
		verification.NewTransitionTable(), orchestrator.WithLogger(logger))
	s.events = &countingStore{InMemory: event.NewInMemory()}
	s.ledger = ledger.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = s.newService(s.orchestrator)
}

func (s *IngestSuite) newService(o Orchestrator) *Service {
	return New(signature.NewVerifier(secret, nil), s.events, s.ledger, o,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *IngestSuite) initiate(userID, externalID string) id.VerificationID {
	s.gateway.EXPECT().CreateApplicant(gomock.Any(), gomock.Any()).Return(&provider.Applicant{ID: externalID}, nil)
	s.gateway.EXPECT().IssueAccessToken(gomock.Any(), userID, gomock.Any(), gomock.Any()).
		Return(&provider.AccessToken{Token: "sdk-" + userID}, nil)
	res, err := s.orchestrator.Initiate(s.ctx, &verification.InitiateRequest{UserID: userID, Email: userID + "@example.com"})
	s.Require().NoError(err)
	return res.VerificationID
}

func (s *IngestSuite) deliver(body string) (*Result, error) {
	raw := []byte(body)
	return s.service.Ingest(s.ctx, raw, signature.Sign(secret, raw))
}

func (s *IngestSuite) status(verificationID id.VerificationID) *verification.Verification {
	v, err := s.orchestrator.GetStatus(s.ctx, verificationID)
	s.Require().NoError(err)
	return v
}

func (s *IngestSuite) storedEvent(res *Result) *models.Event {
	e, err := s.events.FindByID(s.ctx, res.EventID)
	s.Require().NoError(err)
	return e
}

func (s *IngestSuite) TestApprovalFlow() {
	verificationID := s.initiate("u1", "ext-1")
	s.Equal(verification.StatusInitiated, s.status(verificationID).Status)

	res, err := s.deliver(`{"applicantId":"ext-1","inspectionId":"insp-1","type":"applicantPending","reviewStatus":"pending"}`)
	s.Require().NoError(err)
	s.Equal(models.OutcomeApplied, res.Outcome)
	v := s.status(verificationID)
	s.Equal(verification.StatusInReview, v.Status)
	s.NotNil(v.SubmittedAt)

	reviewed := `{"applicantId":"ext-1","type":"applicantReviewed","reviewStatus":"completed","reviewResult":{"reviewAnswer":"GREEN"}}`
	res, err = s.deliver(reviewed)
	s.Require().NoError(err)
	s.Equal(models.OutcomeApplied, res.Outcome)
	v = s.status(verificationID)
	s.Equal(verification.StatusApproved, v.Status)
	s.Require().NotNil(v.ReviewResult)
	s.Equal(verification.ReviewAnswerGreen, v.ReviewResult.Answer)
	approvedAt := *v.ApprovedAt

	s.Run("byte identical replay short-circuits on the ledger", func() {
		res, err := s.deliver(reviewed)
		s.Require().NoError(err)
		s.Equal(models.OutcomeDuplicate, res.Outcome)
		s.True(s.storedEvent(res).Processing.Processed)
	})

	s.Run("re-encoded replay is a state machine no-op", func() {
		res, err := s.deliver(reviewed + "\n")
		s.Require().NoError(err)
		s.Equal(models.OutcomeNoop, res.Outcome)
		s.Equal(approvedAt, *s.status(verificationID).ApprovedAt)
	})

	s.Equal(4, s.events.saves)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Outcomes.WithLabelValues("applied")))
}

func (s *IngestSuite) TestResubmissionFlow() {
	verificationID := s.initiate("u1", "ext-1")
	_, err := s.deliver(`{"applicantId":"ext-1","type":"applicantPending"}`)
	s.Require().NoError(err)

	res, err := s.deliver(`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"RED","reviewRejectType":"RETRY","rejectLabels":["document_page_missing"]}}`)
	s.Require().NoError(err)
	s.Equal(models.OutcomeApplied, res.Outcome)
	v := s.status(verificationID)
	s.Equal(verification.StatusResubmitRequired, v.Status)
	s.Equal([]string{"DOCUMENT_PAGE_MISSING"}, v.ReviewResult.RejectLabels)

	s.gateway.EXPECT().ResetApplicant(gomock.Any(), "ext-1").Return(nil).Times(1)
	s.gateway.EXPECT().IssueAccessToken(gomock.Any(), "u1", gomock.Any(), gomock.Any()).
		Return(&provider.AccessToken{Token: "second"}, nil)
	token, err := s.orchestrator.Resubmit(s.ctx, verificationID)
	s.Require().NoError(err)
	s.Equal("second", token.AccessToken)
	s.Equal(verification.StatusPending, s.status(verificationID).Status)

	s.Run("second round submission is not mistaken for a replay", func() {
		res, err := s.deliver(`{"applicantId":"ext-1","type":"applicantPending"}`)
		s.Require().NoError(err)
		s.Equal(models.OutcomeApplied, res.Outcome)
		s.Equal(verification.StatusInReview, s.status(verificationID).Status)
	})

	s.Run("second round replay is a duplicate", func() {
		res, err := s.deliver(`{"applicantId":"ext-1","type":"applicantPending"}`)
		s.Require().NoError(err)
		s.Equal(models.OutcomeDuplicate, res.Outcome)
	})
}

func (s *IngestSuite) TestVerdictIsCaseSensitive() {
	verificationID := s.initiate("u1", "ext-1")
	_, err := s.deliver(`{"applicantId":"ext-1","type":"applicantPending"}`)
	s.Require().NoError(err)

	for _, body := range []string{
		`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"green"}}`,
		`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":" GREEN "}}`,
		`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"red","reviewRejectType":"FINAL"}}`,
	} {
		res, err := s.deliver(body)
		s.Require().NoError(err)
		s.Equal(models.OutcomeNoop, res.Outcome, body)
	}
	v := s.status(verificationID)
	s.Equal(verification.StatusInReview, v.Status)
	s.Nil(v.ApprovedAt)
	s.Nil(v.RejectedAt)

	s.Run("red with a lowercase reject type is final", func() {
		_, err := s.deliver(`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"RED","reviewRejectType":"retry"}}`)
		s.Require().NoError(err)
		s.Equal(verification.StatusRejected, s.status(verificationID).Status)
	})
}

func (s *IngestSuite) TestFinalRejection() {
	verificationID := s.initiate("u1", "ext-1")
	_, err := s.deliver(`{"applicantId":"ext-1","type":"applicantPending"}`)
	s.Require().NoError(err)

	_, err = s.deliver(`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"RED","rejectType":"FINAL"}}`)
	s.Require().NoError(err)
	s.Equal(verification.StatusRejected, s.status(verificationID).Status)
}

func (s *IngestSuite) TestSignatureRejected() {
	raw := []byte(`{"applicantId":"ext-1","type":"applicantPending"}`)
	sig := signature.Sign(secret, raw)

	tampered := append([]byte(nil), raw...)
	tampered[2] ^= 0x01
	for name, tc := range map[string]struct {
		body []byte
		sig  string
	}{
		"flipped byte": {body: tampered, sig: sig},
		"empty header": {body: raw, sig: ""},
		"wrong secret": {body: raw, sig: signature.Sign("other", raw)},
	} {
		s.Run(name, func() {
			_, err := s.service.Ingest(s.ctx, tc.body, tc.sig)
			s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
	s.Zero(s.events.saves, "rejected deliveries leave no audit record")
	s.Equal(3.0, testutil.ToFloat64(s.metrics.SignatureFailures))
}

func (s *IngestSuite) TestMalformedPayload() {
	_, err := s.deliver(`{"type":"applicantPending"}`)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	_, err = s.deliver(`not json`)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Zero(s.events.saves)
}

func (s *IngestSuite) TestUnmatchedApplicant() {
	res, err := s.deliver(`{"applicantId":"ghost","type":"applicantPending"}`)
	s.Require().NoError(err)
	s.Equal(models.OutcomeUnmatched, res.Outcome)

	stored := s.storedEvent(res)
	s.Equal(models.OutcomeUnmatched, stored.Processing.Outcome)
	s.Equal("ghost", stored.ExternalApplicantID)
}

func (s *IngestSuite) TestEventsWithoutAction() {
	verificationID := s.initiate("u1", "ext-1")
	for _, body := range []string{
		`{"applicantId":"ext-1","type":"applicantReviewed"}`,
		`{"applicantId":"ext-1","type":"applicantReset"}`,
		`{"applicantId":"ext-1","type":"applicantWorkflowCompleted"}`,
		`{"applicantId":"ext-1","type":"applicantOnHold"}`,
		`{"applicantId":"ext-1","type":"somethingNew"}`,
	} {
		res, err := s.deliver(body)
		s.Require().NoError(err)
		s.Equal(models.OutcomeIgnored, res.Outcome, body)
	}
	s.Equal(verification.StatusInitiated, s.status(verificationID).Status)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Received.WithLabelValues("other")))
}

func (s *IngestSuite) TestDiscardedTransition() {
	verificationID := s.initiate("u1", "ext-1")
	res, err := s.deliver(`{"applicantId":"ext-1","type":"applicantReviewed","reviewResult":{"reviewAnswer":"GREEN"}}`)
	s.Require().NoError(err)
	s.Equal(models.OutcomeDiscarded, res.Outcome)
	s.Equal(verification.StatusInitiated, s.status(verificationID).Status)
}

func (s *IngestSuite) TestDispatchFailure() {
	failing := &failingOrchestrator{err: errors.New("store unavailable")}
	s.service = s.newService(failing)
	body := `{"applicantId":"ext-1","type":"applicantPending"}`

	_, err := s.deliver(body)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.Run("failed deliveries are not remembered", func() {
		_, err := s.deliver(body)
		s.Error(err)
		s.Equal(2, failing.calls)
	})
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Outcomes.WithLabelValues("failed")))
}

func (s *IngestSuite) TestAuditWriteFailure() {
	failing := &failingOrchestrator{}
	s.service = s.newService(failing)
	s.events.saveErr = errors.New("disk full")

	_, err := s.deliver(`{"applicantId":"ext-1","type":"applicantPending"}`)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Zero(failing.calls)
}
