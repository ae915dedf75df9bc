package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the verification lifecycle.
type Metrics struct {
	Initiated         prometheus.Counter
	Transitions       *prometheus.CounterVec
	DiscardedEvents   *prometheus.CounterVec
	UnmatchedWebhooks prometheus.Counter
	Expired           prometheus.Counter
	InitiateDuration  prometheus.Histogram
	ProviderFailures  *prometheus.CounterVec
}

// New registers the verification metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Initiated: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_verifications_initiated_total",
			Help: "Verifications created through Initiate",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_transitions_total",
			Help: "Applied status transitions",
		}, []string{"from", "to", "source"}),
		DiscardedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_events_discarded_total",
			Help: "External events whose transition was not a valid edge",
		}, []string{"source"}),
		UnmatchedWebhooks: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_webhook_unmatched_total",
			Help: "Webhook events that referenced no known verification",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_verifications_expired_total",
			Help: "PENDING verifications moved to EXPIRED by the sweeper",
		}),
		InitiateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_initiate_duration_seconds",
			Help:    "Duration of Initiate including provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_verification_provider_failures_total",
			Help: "Provider failures surfaced to callers, by error code",
		}, []string{"code"}),
	}
}

// ObserveInitiate records the duration of an Initiate call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveInitiate(start time.Time) {
	m.InitiateDuration.Observe(time.Since(start).Seconds())
}
