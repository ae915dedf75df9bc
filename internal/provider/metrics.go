package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbound provider traffic.
type Metrics struct {
	Requests *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers provider metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_provider_requests_total",
			Help: "Provider calls by operation and final outcome (ok or error category)",
		}, []string{"operation", "outcome"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_provider_retries_total",
			Help: "Provider call retries by operation",
		}, []string{"operation"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_provider_request_duration_seconds",
			Help:    "Provider call duration including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}
}

func (m *Metrics) observe(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(operation, outcome).Inc()
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) retry(operation string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(operation).Inc()
}
