package validator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the validation pipeline.
type Metrics struct {
	// Verdicts by status code and template
	Verdicts *prometheus.CounterVec

	// Overall evaluation latency
	EvaluateLatency prometheus.Histogram

	// Notification deliveries by outcome
	Notifications *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tamemycerts_verdicts_total",
			Help: "Total validation verdicts by status and template",
		}, []string{"status", "template"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tamemycerts_evaluate_duration_seconds",
			Help:    "Duration of full request validation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tamemycerts_notifications_total",
			Help: "Total outcome notifications by delivery result",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveVerdict(status, template string, d time.Duration) {
	if m != nil {
		m.Verdicts.WithLabelValues(status, template).Inc()
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementNotification(outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(outcome).Inc()
	}
}
