package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second

	maxResponseBytes = 1 << 20
)

// Request describes one logical provider call. Path carries the query string.
type Request struct {
	Operation string
	Method    string
	Path      string
	Body      any
}

// Client signs requests and retries network failures, 5xx and 429 with
// exponential backoff. It knows nothing about verification semantics.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	signer      *Signer
	maxAttempts int
	baseBackoff time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = logger }
}

func WithMetrics(m *Metrics) ClientOption {
	return func(cl *Client) { cl.metrics = m }
}

func WithTracer(t trace.Tracer) ClientOption {
	return func(cl *Client) { cl.tracer = t }
}

// WithSleeper replaces the backoff wait; tests use it to record delays.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(cl *Client) { cl.sleep = sleep }
}

func WithClock(now func() time.Time) ClientOption {
	return func(cl *Client) { cl.now = now }
}

func WithRetryPolicy(maxAttempts int, baseBackoff time.Duration) ClientOption {
	return func(cl *Client) {
		if maxAttempts > 0 {
			cl.maxAttempts = maxAttempts
		}
		if baseBackoff > 0 {
			cl.baseBackoff = baseBackoff
		}
	}
}

// NewClient builds a Client for baseURL (scheme and host, no trailing path).
func NewClient(baseURL string, signer *Signer, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		signer:      signer,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		sleep:       sleepContext,
		now:         time.Now,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("kycgate/provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backoff is the wait after failed attempt n (1-based): base * 2^(n-1).
func (c *Client) Backoff(attempt int) time.Duration {
	return c.baseBackoff << (attempt - 1)
}

// CallBudget is the longest one logical call can take when every attempt runs
// into timeout: maxAttempts timeouts plus the backoff waits between them.
// Caller deadlines shorter than this cut the retry policy short.
func CallBudget(timeout time.Duration, maxAttempts int, baseBackoff time.Duration) time.Duration {
	budget := time.Duration(maxAttempts) * timeout
	for n := 1; n < maxAttempts; n++ {
		budget += baseBackoff << (n - 1)
	}
	return budget
}

// Do executes req, decoding a 2xx JSON body into out when out is non-nil.
// After the final attempt the last *Error is returned with Attempts set.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "provider."+req.Operation, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("provider.operation", req.Operation),
		))
	defer span.End()

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = json.Marshal(req.Body); err != nil {
			perr := NewError(CategoryUnknown, req.Operation, 0, "encode request body", err)
			c.finish(ctx, span, req, perr, 0, start)
			return perr
		}
	}

	var lastErr *Error
	attempt := 1
	for ; ; attempt++ {
		lastErr = c.attempt(ctx, req, body, out)
		if lastErr == nil {
			break
		}
		if !lastErr.Retryable || attempt >= c.maxAttempts {
			break
		}
		delay := c.Backoff(attempt)
		c.logger.WarnContext(ctx, "provider call failed, retrying",
			"operation", req.Operation,
			"attempt", attempt,
			"category", lastErr.Category,
			"status", lastErr.StatusCode,
			"backoff", delay,
		)
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("category", string(lastErr.Category)),
		))
		c.metrics.retry(req.Operation)
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = NewError(CategoryUnavailable, req.Operation, 0, "retry aborted", err)
			lastErr.Retryable = false
			break
		}
	}

	if lastErr != nil {
		lastErr.Attempts = attempt
		c.finish(ctx, span, req, lastErr, attempt, start)
		return lastErr
	}
	c.finish(ctx, span, req, nil, attempt, start)
	return nil
}

func (c *Client) attempt(ctx context.Context, req Request, body []byte, out any) *Error {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bytes.NewReader(body))
	if err != nil {
		return NewError(CategoryUnknown, req.Operation, 0, "build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.signer.Headers(c.now(), req.Method, req.Path, body) {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		perr := NewError(CategoryUnavailable, req.Operation, 0, "no response", err)
		if ctx.Err() != nil {
			perr.Retryable = false
		}
		return perr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NewError(CategoryUnavailable, req.Operation, resp.StatusCode, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewError(CategoryForStatus(resp.StatusCode), req.Operation, resp.StatusCode, describe(raw), nil)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(CategoryUnknown, req.Operation, resp.StatusCode, "decode response", err)
	}
	return nil
}

func (c *Client) finish(ctx context.Context, span trace.Span, req Request, perr *Error, attempts int, start time.Time) {
	span.SetAttributes(attribute.Int("provider.attempts", attempts))
	if perr == nil {
		c.metrics.observe(req.Operation, "ok", start)
		return
	}
	span.RecordError(perr)
	span.SetStatus(codes.Error, string(perr.Category))
	c.metrics.observe(req.Operation, string(perr.Category), start)
	c.logger.ErrorContext(ctx, "provider call failed",
		"operation", req.Operation,
		"attempts", attempts,
		"category", perr.Category,
		"status", perr.StatusCode,
		"error", perr.Error(),
	)
}

// describe pulls the provider's error description out of a JSON error body.
func describe(raw []byte) string {
	var body struct {
		Description string `json:"description"`
		ErrorName   string `json:"errorName"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Description != "" {
		if body.ErrorName != "" {
			return body.ErrorName + ": " + body.Description
		}
		return body.Description
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
