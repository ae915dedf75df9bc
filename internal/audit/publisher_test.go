package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Append(context.Context, Event) error { return errors.New("broker down") }

func TestPublisher_DeliversToSink(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionVerificationInitiated, VerificationID: "ver_1"}))
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionStatusChanged, VerificationID: "ver_1", ToStatus: "PENDING"}))

	require.Eventually(t, func() bool { return len(sink.Events()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	events := sink.Events()
	assert.Equal(t, ActionVerificationInitiated, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Len(t, sink.ByAction(ActionStatusChanged), 1)
}

func TestPublisher_FullBufferDrops(t *testing.T) {
	p := NewPublisher(NewMemorySink(), WithBufferSize(1))
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionStatusChanged}))
	err := p.Emit(context.Background(), Event{Action: ActionStatusChanged})
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, int64(1), p.Dropped())
}

func TestPublisher_FlushesOnShutdownAndCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPublisher(failingSink{}, WithRegisterer(reg))
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionStatusChanged}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.failed))
}

func TestEventKey(t *testing.T) {
	assert.Equal(t, "ver_1", Event{VerificationID: "ver_1", UserID: "u1"}.Key())
	assert.Equal(t, "u1", Event{UserID: "u1"}.Key())
}
