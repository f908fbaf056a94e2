package domain

import "time"

// EventType represents the kind of change an incident event records.
type EventType string

// Event types.
const (
	EventTypeCreated       EventType = "created"
	EventTypeAssigned      EventType = "assigned"
	EventTypeStatusChanged EventType = "status_changed"
	EventTypeComment       EventType = "comment"
	EventTypeResolved      EventType = "resolved"
	EventTypeClosed        EventType = "closed"
)

// IncidentEvent is one append-only audit record on an incident timeline.
// IncidentID is a lookup key back to the incident, not an owning link.
type IncidentEvent struct {
	ID         string         `json:"id"`
	IncidentID string         `json:"incident_id"`
	Type       EventType      `json:"type"`
	Message    string         `json:"message"`
	UserID     string         `json:"user_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the event.
func (e *IncidentEvent) Clone() *IncidentEvent {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
