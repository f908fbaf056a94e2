package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
	"github.com/opsdeck/incidentd/internal/oncall"
	"github.com/opsdeck/incidentd/internal/report"
)

const helpText = `Available commands:
  create <severity> <title>     open a new incident (P0..P3)
  assign <id> <user>            assign an incident
  status <id> <status>          set status (open, investigating, resolved, closed)
  resolve <id>                  shortcut for status resolved
  close <id>                    shortcut for status closed
  comment <id> <text>           add a timeline comment
  show <id>                     show one incident with its timeline
  list                          list open incidents
  oncall [team]                 show the on-call roster
  metrics                       show today's incident metrics`

// Executor runs parsed commands against the core services and renders
// plain-text replies.
type Executor struct {
	incidents *incident.Service
	oncall    *oncall.Service
	reports   *report.Aggregator
}

// NewExecutor creates a new command executor.
func NewExecutor(incidents *incident.Service, oncallSvc *oncall.Service, reports *report.Aggregator) *Executor {
	return &Executor{
		incidents: incidents,
		oncall:    oncallSvc,
		reports:   reports,
	}
}

// Execute runs one command on behalf of userID. The returned string is the
// text reply for the chat channel; err is non-nil only for failed
// operations, never for empty result sets.
func (e *Executor) Execute(ctx context.Context, cmd *Command, userID, channelID string) (string, error) {
	start := time.Now()

	reply, err := e.dispatch(ctx, cmd, userID, channelID)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	recordCommand(string(cmd.Action), outcome)
	recordCommandLatency(string(cmd.Action), time.Since(start))

	return reply, err
}

func (e *Executor) dispatch(ctx context.Context, cmd *Command, userID, channelID string) (string, error) {
	switch cmd.Action {
	case ActionCreate:
		inc, err := e.incidents.CreateIncident(ctx, incident.CreateIncidentInput{
			Title:     cmd.Text,
			Severity:  cmd.Severity,
			ChannelID: channelID,
			Source:    domain.SourceManual,
			ActorID:   userID,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created %s", formatIncident(inc)), nil

	case ActionAssign:
		inc, err := e.incidents.AssignIncident(ctx, cmd.IncidentID, cmd.Assignee, userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s assigned to %s", inc.ID, inc.Assignee), nil

	case ActionStatus:
		return e.updateStatus(ctx, cmd.IncidentID, cmd.Status, userID)

	case ActionResolve:
		return e.updateStatus(ctx, cmd.IncidentID, domain.StatusResolved, userID)

	case ActionClose:
		return e.updateStatus(ctx, cmd.IncidentID, domain.StatusClosed, userID)

	case ActionComment:
		inc, err := e.incidents.AddComment(ctx, cmd.IncidentID, cmd.Text, userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Comment added to %s", inc.ID), nil

	case ActionShow:
		inc, err := e.incidents.GetIncident(ctx, cmd.IncidentID)
		if err != nil {
			return "", err
		}
		return formatIncidentDetail(inc), nil

	case ActionList:
		open, err := e.incidents.ListOpen(ctx)
		if err != nil {
			return "", err
		}
		return formatIncidentList(open), nil

	case ActionOnCall:
		return formatOnCall(e.oncall.Get(cmd.Team)), nil

	case ActionMetrics:
		daily, err := e.reports.Daily(ctx, time.Now())
		if err != nil {
			return "", err
		}
		return formatDailyReport(daily), nil

	case ActionHelp:
		return helpText, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Action)
}

func (e *Executor) updateStatus(ctx context.Context, id string, status domain.Status, userID string) (string, error) {
	inc, err := e.incidents.UpdateStatus(ctx, id, status, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is now %s", inc.ID, inc.Status), nil
}

func formatIncident(inc *domain.Incident) string {
	line := fmt.Sprintf("%s [%s/%s] %s", inc.ID, inc.Severity, inc.Status, inc.Title)
	if inc.Assignee != "" {
		line += fmt.Sprintf(" (assignee: %s)", inc.Assignee)
	}
	return line
}

func formatIncidentDetail(inc *domain.Incident) string {
	var b strings.Builder
	b.WriteString(formatIncident(inc))
	if inc.Description != "" {
		fmt.Fprintf(&b, "\n%s", inc.Description)
	}
	fmt.Fprintf(&b, "\nCreated %s", inc.CreatedAt.Format(time.RFC3339))
	if inc.ResolvedAt != nil {
		fmt.Fprintf(&b, ", resolved %s", inc.ResolvedAt.Format(time.RFC3339))
	}
	b.WriteString("\nTimeline:")
	for _, ev := range inc.Timeline {
		fmt.Fprintf(&b, "\n  %s  %-14s %s", ev.Timestamp.Format("15:04:05"), ev.Type, ev.Message)
	}
	return b.String()
}

func formatIncidentList(incidents []*domain.Incident) string {
	if len(incidents) == 0 {
		return "No open incidents."
	}
	lines := make([]string, 0, len(incidents)+1)
	lines = append(lines, fmt.Sprintf("%d open incident(s):", len(incidents)))
	for _, inc := range incidents {
		lines = append(lines, "  "+formatIncident(inc))
	}
	return strings.Join(lines, "\n")
}

func formatOnCall(snap domain.OnCallSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "On-call for team %q:", snap.Team)
	if snap.Primary == "" && snap.Secondary == "" && len(snap.Escalation) == 0 {
		b.WriteString(" nobody on the roster")
		return b.String()
	}
	if snap.Primary != "" {
		fmt.Fprintf(&b, "\n  primary:    %s", snap.Primary)
	}
	if snap.Secondary != "" {
		fmt.Fprintf(&b, "\n  secondary:  %s", snap.Secondary)
	}
	if len(snap.Escalation) > 0 {
		fmt.Fprintf(&b, "\n  escalation: %s", strings.Join(snap.Escalation, ", "))
	}
	return b.String()
}

func formatDailyReport(r *report.DailyReport) string {
	return fmt.Sprintf(
		"Today: %d created, %d critical, %d resolved (avg %.1f min to resolve), %d active",
		r.CreatedToday,
		r.CriticalToday,
		r.ResolvedToday,
		r.AvgResolutionMinutesToday,
		r.ActiveIncidents,
	)
}
