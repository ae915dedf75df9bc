package audit

import (
	"context"
	"log/slog"
	"sync"
)

// LogSink writes events as structured log lines. Used when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, string(e.Action),
		"log_type", "audit",
		"verification_id", e.VerificationID,
		"user_id", e.UserID,
		"from_status", e.FromStatus,
		"to_status", e.ToStatus,
		"source", e.Source,
		"request_id", e.RequestID,
		"detail", e.Detail,
		"timestamp", e.Timestamp,
	)
	return nil
}

// MemorySink keeps events in memory for tests and local runs.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// ByAction filters Events by action.
func (s *MemorySink) ByAction(action Action) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
