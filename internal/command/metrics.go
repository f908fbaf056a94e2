package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentd"

var (
	commandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "executed_total",
			Help:      "Total chat commands executed by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	commandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Chat command execution time",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// recordCommand records a command execution outcome.
func recordCommand(operation, outcome string) {
	commandsExecuted.WithLabelValues(operation, outcome).Inc()
}

// recordCommandLatency records command execution duration.
func recordCommandLatency(operation string, d time.Duration) {
	commandLatency.WithLabelValues(operation).Observe(d.Seconds())
}
