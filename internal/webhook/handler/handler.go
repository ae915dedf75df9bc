package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/webhook/models"
	"kycgate/internal/webhook/service"
	"kycgate/internal/webhook/signature"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
)

const defaultMaxBody = 1 << 20

type Ingestor interface {
	Ingest(ctx context.Context, raw []byte, providedSignature string) (*service.Result, error)
}

// Handler receives provider callbacks. Requests are authenticated by the
// payload digest, not by service tokens.
type Handler struct {
	logger   *slog.Logger
	ingestor Ingestor
	metrics  *metrics.Metrics
	maxBody  int64
}

type IngestResponse struct {
	Received bool           `json:"received"`
	Outcome  models.Outcome `json:"outcome"`
}

func New(ingestor Ingestor, logger *slog.Logger, m *metrics.Metrics, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Handler{logger: logger, ingestor: ingestor, metrics: m, maxBody: maxBody}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Post("/webhooks/provider", h.handleIngest)
	})
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "webhook payload too large"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read webhook payload"))
		return
	}

	res, err := h.ingestor.Ingest(ctx, raw, r.Header.Get(signature.Header))
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "webhook ingestion failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IngestResponse{Received: true, Outcome: res.Outcome})
}
