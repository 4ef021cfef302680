package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type auditEventsRepo struct{ q Querier }

const eventColumns = `id, workspace_id, created_at, actor_type, actor_id, actor_label,
 entity_type, entity_id, action, diff, meta, batch_id, severity, is_undoable`

func (r *auditEventsRepo) Insert(ctx context.Context, e models.AuditEvent) (models.AuditEvent, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Severity == "" {
		e.Severity = models.SeverityInfo
	}
	err := r.q.QueryRow(ctx, `
INSERT INTO audit_events (
  id, workspace_id, actor_type, actor_id, actor_label,
  entity_type, entity_id, action, diff, meta, batch_id, severity, is_undoable
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id, created_at`,
		e.ID, e.WorkspaceID, e.ActorType, e.ActorID, e.ActorLabel,
		e.EntityType, e.EntityID, e.Action, e.Diff, e.Meta, e.BatchID, e.Severity, e.IsUndoable,
	).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

func (r *auditEventsRepo) Query(ctx context.Context, f repo.EventFilter) (repo.EventPage, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where, args := buildEventWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM audit_events`+where, args...).Scan(&total); err != nil {
		return repo.EventPage{}, err
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := r.q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)-1, len(args),
	), args...)
	if err != nil {
		return repo.EventPage{}, err
	}
	data, err := collectEvents(rows)
	if err != nil {
		return repo.EventPage{}, err
	}
	return repo.EventPage{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (r *auditEventsRepo) GetByID(ctx context.Context, id string) (models.AuditEvent, error) {
	e, err := scanEvent(r.q.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AuditEvent{}, apperr.NotFoundf("audit event %s not found", id)
	}
	return e, err
}

func (r *auditEventsRepo) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, workspaceID *string) ([]models.AuditEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM audit_events WHERE entity_type=$1 AND entity_id=$2`
	args := []any{entityType, entityID}
	if workspaceID != nil {
		args = append(args, *workspaceID)
		q += ` AND workspace_id=$3`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (r *auditEventsRepo) ListByBatch(ctx context.Context, batchID string, workspaceID *string) ([]models.AuditEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM audit_events WHERE batch_id=$1`
	args := []any{batchID}
	if workspaceID != nil {
		args = append(args, *workspaceID)
		q += ` AND workspace_id=$2`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// buildEventWhere turns the optional filter fields into a conjunctive WHERE
// clause. Only fields the caller set are applied.
func buildEventWhere(f repo.EventFilter) (string, []any) {
	var parts []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		parts = append(parts, fmt.Sprintf(cond, len(args)))
	}

	if f.WorkspaceID != nil {
		add("workspace_id = $%d", *f.WorkspaceID)
	}
	if f.EntityType != nil {
		add("entity_type = $%d", *f.EntityType)
	}
	if f.EntityID != nil {
		add("entity_id = $%d", *f.EntityID)
	}
	if f.ActorType != nil {
		add("actor_type = $%d", *f.ActorType)
	}
	if f.ActorID != nil {
		add("actor_id = $%d", *f.ActorID)
	}
	if f.BatchID != nil {
		add("batch_id = $%d", *f.BatchID)
	}
	if f.Severity != nil {
		add("severity = $%d", *f.Severity)
	}
	if f.DateFrom != nil {
		add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("created_at <= $%d", *f.DateTo)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func scanEvent(row pgx.Row) (models.AuditEvent, error) {
	var e models.AuditEvent
	err := row.Scan(
		&e.ID, &e.WorkspaceID, &e.CreatedAt, &e.ActorType, &e.ActorID, &e.ActorLabel,
		&e.EntityType, &e.EntityID, &e.Action, &e.Diff, &e.Meta, &e.BatchID,
		&e.Severity, &e.IsUndoable,
	)
	return e, err
}

func collectEvents(rows pgx.Rows) ([]models.AuditEvent, error) {
	defer rows.Close()
	var out []models.AuditEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
