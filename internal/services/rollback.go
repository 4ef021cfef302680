package services

import (
	"context"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
)

// RollbackHandler reverses one (entityType, action) pair against the row
// store of the owning table. Handlers only mutate domain rows; recording the
// undo as a new audit event is the orchestrator's job.
type RollbackHandler func(ctx context.Context, rows repo.Rows, ev models.AuditEvent) (string, error)

type dispatchKey struct {
	Entity models.EntityType
	Action models.AuditAction
}

// RollbackService dispatches a persisted event to the handler registered for
// its (entityType, action) pair. Pairs without a handler are not undoable.
type RollbackService struct {
	handlers map[dispatchKey]RollbackHandler
}

func NewRollbackService() *RollbackService {
	s := &RollbackService{handlers: make(map[dispatchKey]RollbackHandler)}
	for _, et := range []models.EntityType{
		models.EntityTransaction,
		models.EntityStatement,
		models.EntityCategory,
		models.EntityTableRow,
	} {
		s.Register(et, models.ActionCreate, undoCreate)
		s.Register(et, models.ActionUpdate, undoUpdate)
		s.Register(et, models.ActionDelete, undoDelete)
	}
	// Statements are soft-deleted; recreating one must not carry the
	// deletion marker back.
	s.Register(models.EntityStatement, models.ActionDelete, undoStatementDelete)
	return s
}

// Register binds a handler to an (entityType, action) pair, replacing any
// previous one. New entity types plug in here without touching Dispatch.
func (s *RollbackService) Register(entity models.EntityType, action models.AuditAction, h RollbackHandler) {
	s.handlers[dispatchKey{Entity: entity, Action: action}] = h
}

func (s *RollbackService) Dispatch(ctx context.Context, store repo.Store, ev models.AuditEvent) (string, error) {
	h, ok := s.handlers[dispatchKey{Entity: ev.EntityType, Action: ev.Action}]
	if !ok {
		return "", apperr.NotUndoablef("rollback not supported for %s on %s", ev.Action, ev.EntityType)
	}
	rows, ok := store.RowStore(ev.EntityType)
	if !ok {
		return "", apperr.NotUndoablef("no row store for entity type %s", ev.EntityType)
	}
	return h(ctx, rows, ev)
}

// undoUpdate re-applies only the fields captured in diff.before; anything
// the event did not track stays as it is on the live row.
func undoUpdate(ctx context.Context, rows repo.Rows, ev models.AuditEvent) (string, error) {
	before, err := beforeSnapshot(ev)
	if err != nil {
		return "", err
	}
	if err := rows.UpdateFields(ctx, ev.EntityID, before); err != nil {
		return "", err
	}
	return "update rolled back", nil
}

// undoDelete recreates the row under its original id from the full before
// snapshot.
func undoDelete(ctx context.Context, rows repo.Rows, ev models.AuditEvent) (string, error) {
	before, err := beforeSnapshot(ev)
	if err != nil {
		return "", err
	}
	if err := rows.InsertRow(ctx, ev.EntityID, before); err != nil {
		return "", err
	}
	return "delete rolled back", nil
}

func undoStatementDelete(ctx context.Context, rows repo.Rows, ev models.AuditEvent) (string, error) {
	before, err := beforeSnapshot(ev)
	if err != nil {
		return "", err
	}
	restored := make(map[string]any, len(before))
	for k, v := range before {
		if k == "deleted_at" {
			continue
		}
		restored[k] = v
	}
	if err := rows.InsertRow(ctx, ev.EntityID, restored); err != nil {
		return "", err
	}
	return "delete rolled back", nil
}

// undoCreate removes the created row; an already-missing row counts as
// already undone.
func undoCreate(ctx context.Context, rows repo.Rows, ev models.AuditEvent) (string, error) {
	existed, err := rows.Delete(ctx, ev.EntityID)
	if err != nil {
		return "", err
	}
	if !existed {
		return "create already rolled back", nil
	}
	return "create rolled back", nil
}

func beforeSnapshot(ev models.AuditEvent) (map[string]any, error) {
	if ev.Diff == nil || ev.Diff.Before == nil {
		return nil, apperr.Validationf("missing before snapshot for rollback of event %s", ev.ID)
	}
	return ev.Diff.Before, nil
}
