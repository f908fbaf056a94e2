package incident

import "errors"

// Store errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
)

// Validation errors. All are raised before any state mutation occurs.
var (
	ErrTitleRequired    = errors.New("title is required")
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidSource    = errors.New("invalid source")
	ErrAssigneeRequired = errors.New("assignee is required")
	ErrMessageRequired  = errors.New("message is required")
)
