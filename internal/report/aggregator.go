// Package report derives aggregate statistics from the incident store.
// It only ever reads incidents; every number is recomputed from a full scan
// at query time, so correctness depends on the scan alone and not on update
// ordering.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
)

// Aggregator computes point-in-time and daily statistics over the incident
// repository.
type Aggregator struct {
	repo incident.Repository
}

// NewAggregator creates a new aggregator.
func NewAggregator(repo incident.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Overview is the all-time aggregate snapshot.
type Overview struct {
	Total                int                     `json:"total"`
	ByStatus             map[domain.Status]int   `json:"by_status"`
	BySeverity           map[domain.Severity]int `json:"by_severity"`
	AvgResolutionMinutes float64                 `json:"avg_resolution_minutes"`
}

// DailyReport covers the window from local midnight to now.
// ActiveIncidents is the current count and is not time-windowed.
type DailyReport struct {
	WindowStart               time.Time `json:"window_start"`
	CreatedToday              int       `json:"created_today"`
	ResolvedToday             int       `json:"resolved_today"`
	CriticalToday             int       `json:"critical_today"`
	AvgResolutionMinutesToday float64   `json:"avg_resolution_minutes_today"`
	ActiveIncidents           int       `json:"active_incidents"`
}

// Overview computes the all-time snapshot: total count, per-status and
// per-severity buckets, and mean resolution time across every incident ever
// resolved. The per-bucket sums always equal the total.
func (a *Aggregator) Overview(ctx context.Context) (*Overview, error) {
	incidents, err := a.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	ov := &Overview{
		Total:      len(incidents),
		ByStatus:   make(map[domain.Status]int, 4),
		BySeverity: make(map[domain.Severity]int, 4),
	}
	for _, st := range domain.Statuses() {
		ov.ByStatus[st] = 0
	}
	for _, sev := range domain.Severities() {
		ov.BySeverity[sev] = 0
	}

	var resolved int
	var totalMinutes float64
	for _, inc := range incidents {
		ov.ByStatus[inc.Status]++
		ov.BySeverity[inc.Severity]++
		if inc.IsResolved() {
			resolved++
			totalMinutes += inc.ResolutionTime().Minutes()
		}
	}
	if resolved > 0 {
		ov.AvgResolutionMinutes = totalMinutes / float64(resolved)
	}

	return ov, nil
}

// Daily computes the daily report for the day containing now.
func (a *Aggregator) Daily(ctx context.Context, now time.Time) (*DailyReport, error) {
	incidents, err := a.repo.ListIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	report := &DailyReport{WindowStart: windowStart}

	var resolvedMinutes float64
	for _, inc := range incidents {
		if !inc.CreatedAt.Before(windowStart) {
			report.CreatedToday++
			if inc.Severity.IsCritical() {
				report.CriticalToday++
			}
		}
		if inc.ResolvedAt != nil && !inc.ResolvedAt.Before(windowStart) {
			report.ResolvedToday++
			resolvedMinutes += inc.ResolutionTime().Minutes()
		}
		if inc.Status.IsActive() {
			report.ActiveIncidents++
		}
	}
	if report.ResolvedToday > 0 {
		report.AvgResolutionMinutesToday = resolvedMinutes / float64(report.ResolvedToday)
	}

	return report, nil
}
