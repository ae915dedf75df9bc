package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrBufferFull is returned by Emit when the worker cannot keep up.
var ErrBufferFull = errors.New("audit buffer full")

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher buffers events and hands them to a Sink from a single worker, so
// request paths never wait on the sink. Emission is best effort.
type Publisher struct {
	sink    Sink
	inbox   chan Event
	logger  *slog.Logger
	dropped atomic.Int64
	failed  prometheus.Counter
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

// WithRegisterer exposes the sink failure counter.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Publisher) {
		p.failed = promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_sink_failures_total",
			Help: "Audit events the sink failed to accept",
		})
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		inbox:  make(chan Event, 1024),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues event without blocking.
func (p *Publisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.dropped.Add(1)
		return ErrBufferFull
	}
}

// Dropped counts events rejected by a full buffer.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run drains the buffer into the sink until ctx is done, then flushes what is
// left with a short grace period.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case event := <-p.inbox:
			p.deliver(ctx, event)
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.inbox:
			p.deliver(ctx, event)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	if err := p.sink.Append(ctx, event); err != nil {
		if p.failed != nil {
			p.failed.Inc()
		}
		p.logger.ErrorContext(ctx, "audit sink append failed",
			"action", event.Action,
			"verification_id", event.VerificationID,
			"error", err,
		)
	}
}
