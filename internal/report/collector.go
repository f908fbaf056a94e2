package report

import (
	"context"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes current incident counts as Prometheus gauges. The
// buckets are recomputed from a full repository scan on every scrape rather
// than kept as running totals, so the sum of the per-status buckets and the
// sum of the per-severity buckets each equal the total incident count
// exactly.
type Collector struct {
	repo incident.Repository

	current         *prometheus.Desc
	currentSeverity *prometheus.Desc
	active          *prometheus.Desc
}

// NewCollector creates a collector over the given repository.
func NewCollector(repo incident.Repository) *Collector {
	return &Collector{
		repo: repo,
		current: prometheus.NewDesc(
			"incidentd_incidents_current",
			"Current number of incidents by status",
			[]string{"status"}, nil,
		),
		currentSeverity: prometheus.NewDesc(
			"incidentd_incidents_current_severity",
			"Current number of incidents by severity",
			[]string{"severity"}, nil,
		),
		active: prometheus.NewDesc(
			"incidentd_incidents_active",
			"Number of incidents in open or investigating status",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.current
	ch <- c.currentSeverity
	ch <- c.active
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	incidents, err := c.repo.ListIncidents(context.Background())
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.active, err)
		return
	}

	byStatus := make(map[domain.Status]int, 4)
	bySeverity := make(map[domain.Severity]int, 4)
	active := 0
	for _, inc := range incidents {
		byStatus[inc.Status]++
		bySeverity[inc.Severity]++
		if inc.Status.IsActive() {
			active++
		}
	}

	for _, st := range domain.Statuses() {
		ch <- prometheus.MustNewConstMetric(c.current, prometheus.GaugeValue,
			float64(byStatus[st]), string(st))
	}
	for _, sev := range domain.Severities() {
		ch <- prometheus.MustNewConstMetric(c.currentSeverity, prometheus.GaugeValue,
			float64(bySeverity[sev]), string(sev))
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(active))
}
