package webhook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentd"

var (
	webhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total webhook ingestion requests by outcome",
		},
		[]string{"outcome"},
	)

	webhookLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "request_duration_seconds",
			Help:      "Time to ingest an alert webhook",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// recordWebhookRequest records a webhook request outcome.
func recordWebhookRequest(outcome string) {
	webhookRequests.WithLabelValues(outcome).Inc()
}

// recordWebhookLatency records ingestion duration for accepted alerts.
func recordWebhookLatency(d time.Duration) {
	webhookLatency.Observe(d.Seconds())
}
