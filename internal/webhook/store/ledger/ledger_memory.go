// Package ledger remembers webhook bodies that were already dispatched.
package ledger

import (
	"context"
	"sync"
	"time"
)

// InMemory is a TTL set of payload digests for single-instance runs.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

type InMemoryOption func(*InMemory)

func WithClock(now func() time.Time) InMemoryOption {
	return func(l *InMemory) { l.now = now }
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{entries: make(map[string]time.Time), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemory) Seen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiresAt, ok := l.entries[key]
	if !ok {
		return false, nil
	}
	if !l.now().Before(expiresAt) {
		delete(l.entries, key)
		return false, nil
	}
	return true, nil
}

func (l *InMemory) Remember(_ context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, k)
		}
	}
	l.entries[key] = now.Add(ttl)
	return nil
}
