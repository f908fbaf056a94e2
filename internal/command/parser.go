// Package command implements the chat front-end adapter: it parses a
// slash-command grammar into core operations and renders results back as
// text. The core never sees command syntax; this package owns it entirely.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opsdeck/incidentd/internal/domain"
)

// Parse errors.
var (
	ErrEmptyCommand     = errors.New("empty command")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingArguments = errors.New("missing arguments")
)

// Action identifies a parsed command.
type Action string

// Supported actions.
const (
	ActionCreate  Action = "create"
	ActionAssign  Action = "assign"
	ActionStatus  Action = "status"
	ActionResolve Action = "resolve"
	ActionClose   Action = "close"
	ActionComment Action = "comment"
	ActionShow    Action = "show"
	ActionList    Action = "list"
	ActionOnCall  Action = "oncall"
	ActionMetrics Action = "metrics"
	ActionHelp    Action = "help"
)

// Command is the parsed form of one chat command.
type Command struct {
	Action     Action
	IncidentID string
	Assignee   string
	Team       string
	Severity   domain.Severity
	Status     domain.Status
	Text       string
}

// Parse turns raw command text into a Command. It validates shape only;
// semantic validation (severity tiers, incident existence) is left to the
// core so the adapter and the REST surface report identical errors.
func Parse(text string) (*Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "create":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: usage: create <severity> <title>", ErrMissingArguments)
		}
		return &Command{
			Action:   ActionCreate,
			Severity: domain.Severity(strings.ToUpper(args[0])),
			Text:     strings.Join(args[1:], " "),
		}, nil

	case "assign":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: usage: assign <incident-id> <user>", ErrMissingArguments)
		}
		return &Command{
			Action:     ActionAssign,
			IncidentID: args[0],
			Assignee:   strings.TrimPrefix(args[1], "@"),
		}, nil

	case "status":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: usage: status <incident-id> <status>", ErrMissingArguments)
		}
		return &Command{
			Action:     ActionStatus,
			IncidentID: args[0],
			Status:     domain.Status(strings.ToLower(args[1])),
		}, nil

	case "resolve":
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: usage: resolve <incident-id>", ErrMissingArguments)
		}
		return &Command{Action: ActionResolve, IncidentID: args[0]}, nil

	case "close":
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: usage: close <incident-id>", ErrMissingArguments)
		}
		return &Command{Action: ActionClose, IncidentID: args[0]}, nil

	case "comment":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: usage: comment <incident-id> <text>", ErrMissingArguments)
		}
		return &Command{
			Action:     ActionComment,
			IncidentID: args[0],
			Text:       strings.Join(args[1:], " "),
		}, nil

	case "show":
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: usage: show <incident-id>", ErrMissingArguments)
		}
		return &Command{Action: ActionShow, IncidentID: args[0]}, nil

	case "list":
		return &Command{Action: ActionList}, nil

	case "oncall":
		cmd := &Command{Action: ActionOnCall}
		if len(args) > 0 {
			cmd.Team = args[0]
		}
		return cmd, nil

	case "metrics":
		return &Command{Action: ActionMetrics}, nil

	case "help":
		return &Command{Action: ActionHelp}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
}
