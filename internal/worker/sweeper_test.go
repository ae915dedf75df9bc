package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/webhook/metrics"
	"kycgate/internal/webhook/models"
	"kycgate/internal/webhook/store/event"
)

type stubExpirer struct {
	mu      sync.Mutex
	cutoffs []time.Time
	count   int
	err     error
}

func (s *stubExpirer) ExpireStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.count, s.err
}

func (s *stubExpirer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

type failingPurger struct{}

func (failingPurger) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSweepAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	t.Run("purges expired events and expires stale verifications", func(t *testing.T) {
		events := event.NewInMemory()
		raw := []byte(`{"applicantId":"ext-1","type":"applicantPending"}`)
		p, err := models.ParsePayload(raw)
		require.NoError(t, err)
		require.NoError(t, events.Save(ctx, models.NewEvent(p, raw, now.Add(-48*time.Hour), 24*time.Hour)))
		require.NoError(t, events.Save(ctx, models.NewEvent(p, raw, now, 24*time.Hour)))

		expirer := &stubExpirer{count: 3}
		m := metrics.New(prometheus.NewRegistry())
		sweeper := NewSweeper(events, expirer, time.Hour, 30*24*time.Hour, WithMetrics(m))

		report := sweeper.SweepAt(ctx, now)
		assert.Equal(t, 1, report.PurgedEvents)
		assert.Equal(t, 3, report.ExpiredVerifications)
		assert.Equal(t, []time.Time{now.Add(-30 * 24 * time.Hour)}, expirer.cutoffs)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Purged))
	})

	t.Run("one failing job does not stop the other", func(t *testing.T) {
		expirer := &stubExpirer{}
		report := NewSweeper(failingPurger{}, expirer, time.Hour, time.Hour).SweepAt(ctx, now)
		assert.Error(t, report.PurgeErr)
		assert.NoError(t, report.ExpireErr)
		assert.Len(t, expirer.cutoffs, 1)
	})

	t.Run("zero pending expiry disables stale expiry", func(t *testing.T) {
		expirer := &stubExpirer{}
		NewSweeper(event.NewInMemory(), expirer, time.Hour, 0).SweepAt(ctx, now)
		assert.Empty(t, expirer.cutoffs)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	expirer := &stubExpirer{}
	sweeper := NewSweeper(event.NewInMemory(), expirer, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	require.Eventually(t, func() bool { return expirer.calls() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
