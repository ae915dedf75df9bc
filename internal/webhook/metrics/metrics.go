package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks webhook ingestion.
type Metrics struct {
	Received          *prometheus.CounterVec
	Outcomes          *prometheus.CounterVec
	SignatureFailures prometheus.Counter
	IngestDuration    prometheus.Histogram
	Purged            prometheus.Counter
}

// New registers the webhook metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Received: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_webhook_received_total",
			Help: "Authenticated webhook deliveries by event type",
		}, []string{"type"}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_webhook_outcomes_total",
			Help: "Webhook dispatch results",
		}, []string{"outcome"}),
		SignatureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_webhook_signature_failures_total",
			Help: "Webhook deliveries rejected by signature verification",
		}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_webhook_ingest_duration_seconds",
			Help:    "Time from receipt to dispatch result",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Purged: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_webhook_events_purged_total",
			Help: "Webhook audit records deleted after their retention window",
		}),
	}
}

func (m *Metrics) ObserveIngest(start time.Time) {
	m.IngestDuration.Observe(time.Since(start).Seconds())
}
