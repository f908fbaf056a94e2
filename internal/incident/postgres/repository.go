// Package postgres provides the PostgreSQL implementation of the incident
// repository. It preserves the same atomicity contract as the in-memory
// store: a mutation's field changes and its appended timeline event commit
// together, and concurrent mutations to one incident serialize on a row
// lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
)

// Repository implements incident.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const incidentColumns = `
	id, title, description, severity, status, assignee, channel_id,
	source, tags, metadata, created_at, updated_at, resolved_at, closed_at
`

// CreateIncident inserts the incident and its initial timeline events in a
// single transaction.
func (r *Repository) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	query := `
		INSERT INTO incidents (
			id, title, description, severity, status, assignee, channel_id,
			source, tags, metadata, created_at, updated_at, resolved_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.Exec(ctx, query,
		inc.ID,
		inc.Title,
		inc.Description,
		inc.Severity,
		inc.Status,
		inc.Assignee,
		inc.ChannelID,
		inc.Source,
		inc.Tags,
		inc.Metadata,
		inc.CreatedAt,
		inc.UpdatedAt,
		inc.ResolvedAt,
		inc.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}

	for i := range inc.Timeline {
		if err := insertEvent(ctx, tx, &inc.Timeline[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident and its timeline by ID.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incident.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	timeline, err := r.listEvents(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	inc.Timeline = timeline

	return inc, nil
}

// ListIncidents retrieves all incidents with their timelines in insertion
// order.
func (r *Repository) ListIncidents(ctx context.Context) ([]*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*domain.Incident
	index := make(map[string]*domain.Incident)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
		index[inc.ID] = inc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	eventRows, err := r.db.Query(ctx, `
		SELECT id, incident_id, type, message, user_id, ts, metadata
		FROM incident_events ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		ev, err := scanEvent(eventRows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if inc, ok := index[ev.IncidentID]; ok {
			inc.Timeline = append(inc.Timeline, *ev)
		}
	}
	if err := eventRows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return incidents, nil
}

// UpdateIncident locks the incident row, applies mutate and persists the
// changed fields together with the appended event.
func (r *Repository) UpdateIncident(ctx context.Context, id string, mutate incident.MutateFunc) (*domain.Incident, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 FOR UPDATE`

	inc, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incident.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("lock incident: %w", err)
	}

	timeline, err := r.listEvents(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	inc.Timeline = timeline

	ev, err := mutate(inc)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE incidents SET
			title = $2, description = $3, severity = $4, status = $5,
			assignee = $6, channel_id = $7, tags = $8,
			updated_at = $9, resolved_at = $10, closed_at = $11
		WHERE id = $1
	`,
		inc.ID,
		inc.Title,
		inc.Description,
		inc.Severity,
		inc.Status,
		inc.Assignee,
		inc.ChannelID,
		inc.Tags,
		inc.UpdatedAt,
		inc.ResolvedAt,
		inc.ClosedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	if ev != nil {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return nil, err
		}
		inc.Timeline = append(inc.Timeline, *ev)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return inc, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) listEvents(ctx context.Context, q querier, incidentID string) ([]domain.IncidentEvent, error) {
	rows, err := q.Query(ctx, `
		SELECT id, incident_id, type, message, user_id, ts, metadata
		FROM incident_events
		WHERE incident_id = $1
		ORDER BY seq
	`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var timeline []domain.IncidentEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		timeline = append(timeline, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return timeline, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, ev *domain.IncidentEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO incident_events (id, incident_id, type, message, user_id, ts, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ev.ID,
		ev.IncidentID,
		ev.Type,
		ev.Message,
		ev.UserID,
		ev.Timestamp,
		ev.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.Title,
		&inc.Description,
		&inc.Severity,
		&inc.Status,
		&inc.Assignee,
		&inc.ChannelID,
		&inc.Source,
		&inc.Tags,
		&inc.Metadata,
		&inc.CreatedAt,
		&inc.UpdatedAt,
		&inc.ResolvedAt,
		&inc.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

func scanEvent(row pgx.Row) (*domain.IncidentEvent, error) {
	var ev domain.IncidentEvent
	err := row.Scan(
		&ev.ID,
		&ev.IncidentID,
		&ev.Type,
		&ev.Message,
		&ev.UserID,
		&ev.Timestamp,
		&ev.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Error("failed to rollback transaction", "error", err)
	}
}
