package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"kycgate/internal/audit"
	auditkafka "kycgate/internal/audit/kafka"
	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/httpserver"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/platform/postgres"
	"kycgate/internal/platform/redis"
	"kycgate/internal/provider"
	verificationhandler "kycgate/internal/verification/handler"
	verificationmetrics "kycgate/internal/verification/metrics"
	verificationmodels "kycgate/internal/verification/models"
	verificationservice "kycgate/internal/verification/service"
	applicantstore "kycgate/internal/verification/store/applicant"
	verificationstore "kycgate/internal/verification/store/verification"
	webhookhandler "kycgate/internal/webhook/handler"
	webhookmetrics "kycgate/internal/webhook/metrics"
	webhookservice "kycgate/internal/webhook/service"
	"kycgate/internal/webhook/signature"
	eventstore "kycgate/internal/webhook/store/event"
	"kycgate/internal/webhook/store/ledger"
	"kycgate/internal/worker"
	"kycgate/pkg/platform/httputil"
)

const (
	shutdownTimeout = 15 * time.Second
	writeSlack      = 5 * time.Second
)

// main wires high-level dependencies and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()
	reg := m.Registry()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.close()

	auditPublisher := audit.NewPublisher(infra.auditSink,
		audit.WithLogger(log),
		audit.WithRegisterer(reg),
	)

	client := provider.NewClient(cfg.Provider.BaseURL,
		provider.NewSigner(cfg.Provider.AppToken, cfg.Provider.SecretKey),
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
		provider.WithRetryPolicy(cfg.Provider.MaxAttempts, cfg.Provider.BaseBackoff),
		provider.WithLogger(log),
		provider.WithMetrics(provider.NewMetrics(reg)),
	)

	verifications := verificationservice.New(
		infra.verifications,
		infra.applicants,
		provider.NewGateway(client),
		verificationmodels.NewTransitionTable(),
		verificationservice.WithLogger(log),
		verificationservice.WithAuditPublisher(auditPublisher),
		verificationservice.WithMetrics(verificationmetrics.New(reg)),
		verificationservice.WithDefaultLevel(cfg.Verification.DefaultLevelName),
		verificationservice.WithAccessTokenTTL(cfg.Verification.AccessTokenTTL),
	)

	verifier := signature.NewVerifier(cfg.Webhook.Secret, log)
	if !verifier.Enabled() {
		log.Warn("WEBHOOK_SECRET not set, webhook signatures will not be verified")
	}
	wm := webhookmetrics.New(reg)
	ingestor := webhookservice.New(verifier, infra.events, infra.ledger, verifications,
		webhookservice.WithLogger(log),
		webhookservice.WithMetrics(wm),
		webhookservice.WithEventTTL(cfg.Webhook.EventTTL),
		webhookservice.WithDedupeTTL(cfg.Webhook.DedupeTTL),
	)

	var jwtValidator middleware.JWTValidator
	if cfg.Server.JWTSigningKey != "" {
		jwtValidator = jwttoken.NewValidator(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer))
	} else {
		log.Warn("JWT_SIGNING_KEY not set, /api/v1 is unauthenticated")
	}

	r := chi.NewRouter()
	r.Get("/health", healthHandler(infra))
	r.Handle("/metrics", m.Handler())
	requestTimeout := verificationhandler.RequestTimeout(
		provider.CallBudget(cfg.Provider.Timeout, cfg.Provider.MaxAttempts, cfg.Provider.BaseBackoff))
	verificationhandler.New(verifications, log, m, jwtValidator,
		verificationhandler.WithRequestTimeout(requestTimeout),
	).Register(r)
	webhookhandler.New(ingestor, log, m, cfg.Webhook.MaxBodyBytes).Register(r)

	sweeper := worker.NewSweeper(infra.events, verifications, cfg.Worker.SweepInterval, cfg.Verification.PendingExpiry,
		worker.WithLogger(log),
		worker.WithMetrics(wm),
	)

	srv := httpserver.New(cfg.Server.Addr, r, httpserver.WithWriteTimeout(requestTimeout+writeSlack))
	log.Info("starting kycgate",
		"addr", cfg.Server.Addr,
		"postgres", infra.db != nil,
		"redis", infra.redis != nil,
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Serve(ctx, srv, shutdownTimeout, log) })
	g.Go(func() error { return auditPublisher.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	return g.Wait()
}

// infra holds the backing services chosen by configuration. Without
// DATABASE_URL, REDIS_URL or KAFKA_BROKERS the in-memory and log
// implementations are used.
type infra struct {
	db            *sql.DB
	redis         *redis.Client
	kafka         *auditkafka.Sink
	verifications verificationservice.VerificationStore
	applicants    verificationservice.ApplicantStore
	events        interface {
		webhookservice.EventStore
		worker.EventPurger
	}
	ledger    webhookservice.Ledger
	auditSink audit.Sink
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		in.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			in.close()
			return nil, err
		}
		in.verifications = verificationstore.NewPostgres(db)
		in.applicants = applicantstore.NewPostgres(db)
		in.events = eventstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		in.verifications = verificationstore.NewInMemory()
		in.applicants = applicantstore.NewInMemory()
		in.events = eventstore.NewInMemory()
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return nil, err
	}
	if rc != nil {
		in.redis = rc
		in.ledger = ledger.NewRedis(rc.Client)
	} else {
		in.ledger = ledger.NewInMemory()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			in.close()
			return nil, err
		}
		in.kafka = sink
		if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		in.auditSink = sink
	} else {
		in.auditSink = audit.NewLogSink(log)
	}
	return in, nil
}

func (in *infra) close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func healthHandler(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var errs []error
		if in.db != nil {
			errs = append(errs, in.db.PingContext(ctx))
		}
		if in.redis != nil {
			errs = append(errs, in.redis.Health(ctx))
		}
		if in.kafka != nil {
			errs = append(errs, in.kafka.Ping(ctx))
		}
		if err := errors.Join(errs...); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
