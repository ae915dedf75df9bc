// Package worker runs periodic maintenance: webhook retention and stale
// verification expiry.
package worker

import (
	"context"
	"log/slog"
	"time"

	"kycgate/internal/webhook/metrics"
	"kycgate/pkg/requestcontext"
)

type EventPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

type StaleExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Sweeper purges expired webhook records and expires PENDING verifications
// that have not moved within pendingExpiry.
type Sweeper struct {
	events        EventPurger
	verifications StaleExpirer
	interval      time.Duration
	pendingExpiry time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func NewSweeper(events EventPurger, verifications StaleExpirer, interval, pendingExpiry time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		events:        events,
		verifications: verifications,
		interval:      interval,
		pendingExpiry: pendingExpiry,
		logger:        slog.New(slog.DiscardHandler),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once per interval until ctx is cancelled. Sweep failures are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepAt(ctx, s.now())
		case <-ctx.Done():
			return nil
		}
	}
}

// Report summarises one sweep.
type Report struct {
	PurgedEvents         int
	ExpiredVerifications int
	PurgeErr, ExpireErr  error
}

// SweepAt runs both jobs as of now. Exported for tests; Run passes wall-clock
// time.
func (s *Sweeper) SweepAt(ctx context.Context, now time.Time) Report {
	ctx = requestcontext.WithTime(ctx, now)
	var r Report

	r.PurgedEvents, r.PurgeErr = s.events.PurgeExpired(ctx, now)
	if r.PurgeErr != nil {
		s.logger.ErrorContext(ctx, "webhook retention sweep failed", "error", r.PurgeErr.Error())
	} else if r.PurgedEvents > 0 {
		s.addPurged(r.PurgedEvents)
	}

	if s.pendingExpiry > 0 {
		r.ExpiredVerifications, r.ExpireErr = s.verifications.ExpireStale(ctx, now.Add(-s.pendingExpiry))
		if r.ExpireErr != nil {
			s.logger.ErrorContext(ctx, "stale verification sweep failed", "error", r.ExpireErr.Error())
		}
	}

	s.logger.DebugContext(ctx, "sweep finished",
		"purged_events", r.PurgedEvents,
		"expired_verifications", r.ExpiredVerifications,
	)
	return r
}

func (s *Sweeper) addPurged(n int) {
	if s.metrics != nil {
		s.metrics.Purged.Add(float64(n))
	}
}
