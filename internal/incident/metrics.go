package incident

import (
	"time"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentd"

var (
	incidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "created_total",
			Help:      "Total incidents created",
		},
		[]string{"severity", "source"},
	)

	resolutionMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "resolution_minutes",
			Help:      "Time from creation to first resolution in minutes",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 240, 480, 1440, 4320},
		},
		[]string{"severity"},
	)
)

// recordIncidentCreated records a created incident metric.
func recordIncidentCreated(severity domain.Severity, source domain.Source) {
	incidentsCreated.WithLabelValues(string(severity), string(source)).Inc()
}

// recordResolution observes resolution time for the first transition into
// resolved status.
func recordResolution(severity domain.Severity, d time.Duration) {
	resolutionMinutes.WithLabelValues(string(severity)).Observe(d.Minutes())
}
