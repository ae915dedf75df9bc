package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/provider"
	"kycgate/internal/verification/models"
	"kycgate/internal/verification/service"
	"kycgate/internal/verification/service/mocks"
	applicantstore "kycgate/internal/verification/store/applicant"
	verificationstore "kycgate/internal/verification/store/verification"
	id "kycgate/pkg/domain"
	"kycgate/pkg/testutil"
)

type fixture struct {
	router  http.Handler
	gateway *mocks.MockProviderGateway
	store   *verificationstore.InMemory
}

func newFixture(t *testing.T, validator middleware.JWTValidator) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockProviderGateway(ctrl)
	store := verificationstore.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store, applicantstore.NewInMemory(), gateway, models.NewTransitionTable(),
		service.WithLogger(logger),
	)

	r := chi.NewRouter()
	New(svc, logger, metrics.New(), validator).Register(r)
	return &fixture{router: r, gateway: gateway, store: store}
}

func (f *fixture) initiate(t *testing.T, userID string) InitiateResponse {
	t.Helper()
	f.gateway.EXPECT().CreateApplicant(gomock.Any(), gomock.Any()).Return(&provider.Applicant{ID: "ext-" + userID}, nil)
	f.gateway.EXPECT().IssueAccessToken(gomock.Any(), userID, models.DefaultLevelName, time.Hour).
		Return(&provider.AccessToken{Token: "sdk-" + userID}, nil)

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/verifications", map[string]string{
		"userId": userID,
		"email":  userID + "@example.com",
	}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return *testutil.UnmarshalResponse[InitiateResponse](t, rr)
}

func TestInitiateAndRead(t *testing.T) {
	f := newFixture(t, nil)
	created := f.initiate(t, "user-1")

	assert.Equal(t, "ext-user-1", created.ApplicantID)
	assert.Equal(t, "sdk-user-1", created.AccessToken)
	assert.True(t, len(created.VerificationID) > 4 && created.VerificationID[:4] == "ver_")

	t.Run("get returns the projection without the token", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/v1/verifications/"+created.VerificationID))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "sdk-user-1")

		resp := testutil.UnmarshalResponse[VerificationResponse](t, rr)
		assert.Equal(t, "INITIATED", resp.Status)
		assert.Equal(t, "user-1", resp.UserID)
		assert.NotNil(t, resp.AccessTokenExpiresAt)
	})

	t.Run("list by user", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/v1/users/user-1/verifications"))
		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[ListResponse](t, rr)
		require.Len(t, resp.Verifications, 1)
		assert.Equal(t, created.VerificationID, resp.Verifications[0].ID)
	})

	t.Run("empty list for unknown user", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/v1/users/nobody/verifications"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"verifications":[]}`, rr.Body.String())
	})

	t.Run("second initiate conflicts", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/verifications", map[string]string{
			"userId": "user-1",
			"email":  "user-1@example.com",
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("malformed body", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRawRequest(t, http.MethodPost, "/api/v1/verifications", []byte("{"), nil))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("validation failure", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/verifications", map[string]string{
			"userId": "user-1",
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed id", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/v1/verifications/not-an-id"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/v1/verifications/"+id.NewVerificationID().String()))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("resubmit in wrong state", func(t *testing.T) {
		created := f.initiate(t, "user-2")
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodPost, "/api/v1/verifications/"+created.VerificationID+"/resubmit"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
	})

	t.Run("provider unavailable", func(t *testing.T) {
		f.gateway.EXPECT().CreateApplicant(gomock.Any(), gomock.Any()).
			Return(nil, provider.NewError(provider.CategoryUnavailable, "create_applicant", 502, "", nil))
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/verifications", map[string]string{
			"userId": "user-3",
			"email":  "user-3@example.com",
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "provider_unavailable")
	})

	t.Run("provider rejects credentials", func(t *testing.T) {
		f.gateway.EXPECT().CreateApplicant(gomock.Any(), gomock.Any()).
			Return(nil, provider.NewError(provider.CategoryAuthFailed, "create_applicant", 401, "", nil))
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/verifications", map[string]string{
			"userId": "user-4",
			"email":  "user-4@example.com",
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadGateway, "provider_auth_failed")
	})
}

func TestRefreshTokenAndSync(t *testing.T) {
	f := newFixture(t, nil)
	created := f.initiate(t, "user-1")

	f.gateway.EXPECT().IssueAccessToken(gomock.Any(), "user-1", models.DefaultLevelName, time.Hour).
		Return(&provider.AccessToken{Token: "fresh"}, nil)
	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodPost, "/api/v1/verifications/"+created.VerificationID+"/refresh-token"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fresh", testutil.UnmarshalResponse[TokenResponse](t, rr).AccessToken)

	f.gateway.EXPECT().GetApplicantStatus(gomock.Any(), "ext-user-1").
		Return(&provider.ApplicantStatus{ReviewStatus: provider.ReviewStatusPending}, nil)
	f.gateway.EXPECT().GetApplicant(gomock.Any(), "ext-user-1").
		Return(&provider.Applicant{ID: "ext-user-1", InspectionID: "insp-1"}, nil)
	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodPost, "/api/v1/verifications/"+created.VerificationID+"/sync"))
	require.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[SyncResponse](t, rr)
	assert.Equal(t, "applied", resp.Outcome)
	assert.Equal(t, "IN_REVIEW", resp.Verification.Status)
	assert.NotNil(t, resp.Verification.SubmittedAt)
	assert.Equal(t, "insp-1", resp.Verification.InspectionID)
}

func TestRequiresServiceToken(t *testing.T) {
	jwtService := jwttoken.NewJWTService("signing-key", "kycgate")
	f := newFixture(t, jwttoken.NewValidator(jwtService))

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/v1/users/user-1/verifications"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	token, err := jwtService.GenerateServiceToken("onboarding-api", "", time.Minute)
	require.NoError(t, err)
	req := testutil.NewRequest(t, http.MethodGet, "/api/v1/users/user-1/verifications")
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(f.router, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// deadlineService records the deadline each GetStatus call runs under.
type deadlineService struct {
	Service
	remaining time.Duration
}

func (s *deadlineService) GetStatus(ctx context.Context, verificationID id.VerificationID) (*models.Verification, error) {
	deadline, ok := ctx.Deadline()
	if ok {
		s.remaining = time.Until(deadline)
	}
	return &models.Verification{ID: verificationID, Status: models.StatusPending}, nil
}

func TestRequestDeadlineCoversProviderRetries(t *testing.T) {
	budget := provider.CallBudget(provider.DefaultTimeout, provider.DefaultMaxAttempts, provider.DefaultBaseBackoff)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := "/api/v1/verifications/ver_0123456789abcdef01234567"

	t.Run("default deadline allows two full provider calls", func(t *testing.T) {
		svc := &deadlineService{}
		r := chi.NewRouter()
		New(svc, logger, metrics.New(), nil).Register(r)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, path))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Greater(t, svc.remaining, 2*budget)
	})

	t.Run("configured deadline", func(t *testing.T) {
		svc := &deadlineService{}
		r := chi.NewRouter()
		New(svc, logger, metrics.New(), nil, WithRequestTimeout(RequestTimeout(time.Minute))).Register(r)

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, path))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Greater(t, svc.remaining, 2*time.Minute)
		assert.LessOrEqual(t, svc.remaining, 2*time.Minute+requestSlack)
	})
}
