package domain

// OnCallSnapshot is the read-only current roster fact for one team.
// The core consumes it as a lookup table and never computes rotations.
type OnCallSnapshot struct {
	Team       string   `json:"team"`
	Primary    string   `json:"primary,omitempty"`
	Secondary  string   `json:"secondary,omitempty"`
	Escalation []string `json:"escalation"`
}
