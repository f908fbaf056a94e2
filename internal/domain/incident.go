package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Status represents the current lifecycle state of an incident.
type Status string

// Incident statuses.
const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// IsValid checks if the status is one of the defined statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsActive reports whether the status counts toward the active incident set.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInvestigating
}

// Statuses lists all statuses in lifecycle order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusClosed}
}

// Severity represents the priority tier of an incident, P0 being most severe.
type Severity string

// Severity tiers.
const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
)

// IsValid checks if the severity is one of the four tiers.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityP0, SeverityP1, SeverityP2, SeverityP3:
		return true
	}
	return false
}

// IsCritical reports whether the severity is P0 or P1.
func (s Severity) IsCritical() bool {
	return s == SeverityP0 || s == SeverityP1
}

// Severities lists all severity tiers from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityP0, SeverityP1, SeverityP2, SeverityP3}
}

// severityAliases maps folded alert tokens to a tier. Order matters: the
// first set that contains the token wins, so "high" lands on P0 and
// "medium" on P1.
var severityAliases = []struct {
	tokens   []string
	severity Severity
}{
	{[]string{"critical", "p0", "sev0", "high"}, SeverityP0},
	{[]string{"high", "p1", "sev1", "medium"}, SeverityP1},
	{[]string{"medium", "p2", "sev2", "low"}, SeverityP2},
}

// NormalizeSeverity maps an arbitrary alert severity token to a tier.
// Matching is case-insensitive; unknown tokens fall through to P3.
func NormalizeSeverity(token string) Severity {
	folded := cases.Fold().String(strings.TrimSpace(token))
	for _, a := range severityAliases {
		for _, t := range a.tokens {
			if folded == t {
				return a.severity
			}
		}
	}
	return SeverityP3
}

// Source represents the provenance of an incident.
type Source string

// Incident sources.
const (
	SourceManual     Source = "manual"
	SourceWebhook    Source = "webhook"
	SourceMonitoring Source = "monitoring"
)

// IsValid checks if the source is one of the defined sources.
func (s Source) IsValid() bool {
	return s == SourceManual || s == SourceWebhook || s == SourceMonitoring
}

// Incident represents a tracked operational problem with an audit timeline.
type Incident struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Severity    Severity        `json:"severity"`
	Status      Status          `json:"status"`
	Assignee    string          `json:"assignee,omitempty"`
	ChannelID   string          `json:"channel_id,omitempty"`
	Source      Source          `json:"source"`
	Tags        []string        `json:"tags,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
	Timeline    []IncidentEvent `json:"timeline"`
}

// IsResolved reports whether the incident has ever reached resolved state.
func (i *Incident) IsResolved() bool {
	return i.ResolvedAt != nil
}

// ResolutionTime returns the duration between creation and resolution.
// Returns zero if the incident was never resolved.
func (i *Incident) ResolutionTime() time.Duration {
	if i.ResolvedAt == nil {
		return 0
	}
	return i.ResolvedAt.Sub(i.CreatedAt)
}

// Clone returns a deep copy of the incident. Stores hand out clones so
// callers can never mutate shared state through a returned pointer.
func (i *Incident) Clone() *Incident {
	c := *i
	if i.Tags != nil {
		c.Tags = append([]string(nil), i.Tags...)
	}
	if i.Metadata != nil {
		c.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			c.Metadata[k] = v
		}
	}
	if i.Timeline != nil {
		c.Timeline = make([]IncidentEvent, len(i.Timeline))
		for idx, ev := range i.Timeline {
			c.Timeline[idx] = *ev.Clone()
		}
	}
	if i.ResolvedAt != nil {
		t := *i.ResolvedAt
		c.ResolvedAt = &t
	}
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
