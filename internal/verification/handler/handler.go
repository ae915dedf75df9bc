package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/provider"
	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
)

const maxRequestBody = 64 << 10

// Service is the verification command surface.
type Service interface {
	Initiate(ctx context.Context, req *models.InitiateRequest) (*models.InitiateResult, error)
	GetStatus(ctx context.Context, verificationID id.VerificationID) (*models.Verification, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Verification, error)
	RefreshToken(ctx context.Context, verificationID id.VerificationID) (*models.TokenResult, error)
	Resubmit(ctx context.Context, verificationID id.VerificationID) (*models.TokenResult, error)
	Sync(ctx context.Context, verificationID id.VerificationID) (*models.Verification, models.ApplyOutcome, error)
}

// Handler serves /api/v1 verification endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

// providerCallsPerRequest is the most sequential provider calls one command
// makes (Initiate, Resubmit and Sync each make two).
const providerCallsPerRequest = 2

// requestSlack covers store work around the provider calls.
const requestSlack = 10 * time.Second

// RequestTimeout is the deadline a command needs so that each of its provider
// calls can run the full retry policy.
func RequestTimeout(providerCallBudget time.Duration) time.Duration {
	return providerCallsPerRequest*providerCallBudget + requestSlack
}

type Option func(*Handler)

// WithRequestTimeout overrides the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		service:      service,
		metrics:      m,
		jwtValidator: jwtValidator,
		timeout: RequestTimeout(provider.CallBudget(
			provider.DefaultTimeout, provider.DefaultMaxAttempts, provider.DefaultBaseBackoff)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the verification routes on r.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.RequestTime)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(h.timeout))
	api.Use(middleware.ContentTypeJSON)
	api.Use(middleware.LatencyMiddleware(h.metrics))
	api.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	api.Post("/verifications", h.handleInitiate)
	api.Get("/verifications/{id}", h.handleGet)
	api.Post("/verifications/{id}/refresh-token", h.handleRefreshToken)
	api.Post("/verifications/{id}/resubmit", h.handleResubmit)
	api.Post("/verifications/{id}/sync", h.handleSync)
	api.Get("/users/{userId}/verifications", h.handleListForUser)

	r.Mount("/api/v1", api)
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.InitiateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid initiate request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.service.Initiate(ctx, &req)
	if err != nil {
		h.writeError(ctx, w, err, "failed to initiate verification")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, InitiateResponse{
		VerificationID: res.VerificationID.String(),
		ApplicantID:    res.ExternalApplicantID,
		AccessToken:    res.AccessToken,
		ExpiresAt:      res.ExpiresAt,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verificationID, ok := h.verificationID(w, r)
	if !ok {
		return
	}
	v, err := h.service.GetStatus(ctx, verificationID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load verification")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVerificationResponse(v))
}

func (h *Handler) handleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListForUser(ctx, userID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list verifications")
		return
	}
	resp := ListResponse{Verifications: make([]VerificationResponse, 0, len(list))}
	for _, v := range list {
		resp.Verifications = append(resp.Verifications, toVerificationResponse(v))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verificationID, ok := h.verificationID(w, r)
	if !ok {
		return
	}
	res, err := h.service.RefreshToken(ctx, verificationID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to refresh access token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(res))
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verificationID, ok := h.verificationID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Resubmit(ctx, verificationID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to resubmit verification")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(res))
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verificationID, ok := h.verificationID(w, r)
	if !ok {
		return
	}
	v, outcome, err := h.service.Sync(ctx, verificationID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to sync verification")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SyncResponse{
		Outcome:      string(outcome),
		Verification: toVerificationResponse(v),
	})
}

func (h *Handler) verificationID(w http.ResponseWriter, r *http.Request) (id.VerificationID, bool) {
	verificationID, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return verificationID, true
}

// writeError logs at a level matching the failure and renders the envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	code := dErrors.CodeOf(err)
	attrs := []any{"request_id", middleware.GetRequestID(ctx), "error", err.Error(), "code", string(code)}
	switch {
	case code == dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, attrs...)
	case dErrors.IsProvider(err):
		h.logger.WarnContext(ctx, msg, attrs...)
	default:
		h.logger.DebugContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
