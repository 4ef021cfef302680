package services

import (
	"context"
	"log/slog"
	"strings"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/metrics"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"github.com/google/uuid"
)

// CreateEventInput is what emitting domain services hand to the audit trail.
type CreateEventInput struct {
	WorkspaceID *string            `json:"workspace_id,omitempty"`
	ActorType   models.ActorType   `json:"actor_type"`
	ActorID     *string            `json:"actor_id,omitempty"`
	ActorLabel  string             `json:"actor_label,omitempty"`
	EntityType  models.EntityType  `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Diff        *models.Diff       `json:"diff,omitempty"`
	Meta        map[string]any     `json:"meta,omitempty"`
	BatchID     *string            `json:"batch_id,omitempty"`
	Severity    models.Severity    `json:"severity,omitempty"`
	IsUndoable  *bool              `json:"is_undoable,omitempty"`
}

type BatchResult struct {
	BatchID string              `json:"batch_id"`
	Events  []models.AuditEvent `json:"events"`
}

type RollbackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}

// AuditService is the only entry point for writing and undoing audit
// events. Domain services record mutations fire-after-write; operators query
// the trail and trigger rollbacks through it.
type AuditService struct {
	store    repo.Store
	actors   *ActorResolver
	rollback *RollbackService
}

func NewAuditService(store repo.Store, actors *ActorResolver, rollback *RollbackService) *AuditService {
	return &AuditService{store: store, actors: actors, rollback: rollback}
}

func (s *AuditService) CreateEvent(ctx context.Context, in CreateEventInput) (models.AuditEvent, error) {
	return s.createEvent(ctx, s.store, in)
}

func (s *AuditService) createEvent(ctx context.Context, st repo.Store, in CreateEventInput) (models.AuditEvent, error) {
	in.EntityID = strings.TrimSpace(in.EntityID)
	if in.EntityID == "" {
		return models.AuditEvent{}, apperr.Validationf("audit event requires an entity id")
	}
	if !in.ActorType.Valid() {
		return models.AuditEvent{}, apperr.Validationf("unknown actor type %q", in.ActorType)
	}
	if !in.EntityType.Valid() {
		return models.AuditEvent{}, apperr.Validationf("unknown entity type %q", in.EntityType)
	}
	if !in.Action.Valid() {
		return models.AuditEvent{}, apperr.Validationf("unknown action %q", in.Action)
	}
	severity := in.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}
	if !severity.Valid() {
		return models.AuditEvent{}, apperr.Validationf("unknown severity %q", in.Severity)
	}

	if in.WorkspaceID != nil {
		ok, err := st.Workspaces().Exists(ctx, *in.WorkspaceID)
		if err != nil {
			return models.AuditEvent{}, err
		}
		if !ok {
			return models.AuditEvent{}, apperr.Validationf("workspace %s not found", *in.WorkspaceID)
		}
	}

	undoable := models.DefaultUndoable(in.Action, in.EntityType)
	if in.IsUndoable != nil {
		undoable = *in.IsUndoable
	}

	ev := models.AuditEvent{
		WorkspaceID: in.WorkspaceID,
		ActorType:   in.ActorType,
		ActorID:     in.ActorID,
		ActorLabel:  s.actors.ResolveLabel(ctx, in.ActorType, in.ActorID, in.ActorLabel),
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Action:      in.Action,
		Diff:        in.Diff,
		Meta:        in.Meta,
		BatchID:     in.BatchID,
		Severity:    severity,
		IsUndoable:  undoable,
	}

	ev, err := st.AuditEvents().Insert(ctx, ev)
	if err != nil {
		return models.AuditEvent{}, err
	}
	metrics.AuditEventsTotal.WithLabelValues(string(ev.EntityType), string(ev.Action)).Inc()
	return ev, nil
}

// CreateBatchEvents stamps every input with one shared batch id. Items are
// best-effort: by the time a bulk import reaches the audit trail the domain
// writes have already happened, so one bad item is logged and skipped rather
// than aborting its siblings.
func (s *AuditService) CreateBatchEvents(ctx context.Context, inputs []CreateEventInput, batchID string) (BatchResult, error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	events := make([]models.AuditEvent, 0, len(inputs))
	for i, in := range inputs {
		in.BatchID = &batchID
		ev, err := s.CreateEvent(ctx, in)
		if err != nil {
			slog.Warn("batch audit event skipped",
				"batch_id", batchID, "index", i,
				"entity_type", in.EntityType, "entity_id", in.EntityID, "err", err)
			metrics.AuditBatchSkipped.Inc()
			continue
		}
		events = append(events, ev)
	}
	return BatchResult{BatchID: batchID, Events: events}, nil
}

func (s *AuditService) FindEvents(ctx context.Context, f repo.EventFilter) (repo.EventPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return repo.EventPage{}, apperr.Validationf("dateTo precedes dateFrom")
	}
	return s.store.AuditEvents().Query(ctx, f)
}

func (s *AuditService) GetEvent(ctx context.Context, id string, workspaceID *string) (models.AuditEvent, error) {
	ev, err := s.store.AuditEvents().GetByID(ctx, id)
	if err != nil {
		return models.AuditEvent{}, err
	}
	if err := checkScope(ev, workspaceID); err != nil {
		return models.AuditEvent{}, err
	}
	return ev, nil
}

// GetEntityHistory returns every event ever recorded for one row,
// newest-first.
func (s *AuditService) GetEntityHistory(ctx context.Context, entityType models.EntityType, entityID string, workspaceID *string) ([]models.AuditEvent, error) {
	if !entityType.Valid() {
		return nil, apperr.Validationf("unknown entity type %q", entityType)
	}
	return s.store.AuditEvents().ListByEntity(ctx, entityType, entityID, workspaceID)
}

func (s *AuditService) GetBatch(ctx context.Context, batchID string, workspaceID *string) ([]models.AuditEvent, error) {
	return s.store.AuditEvents().ListByBatch(ctx, batchID, workspaceID)
}

// Rollback restores the state described by the event's diff and records the
// undo as a brand-new event. The row mutation and the new event share one
// transaction: if recording fails, the mutation is rolled back too, so the
// domain table and the trail never disagree about whether the undo happened.
func (s *AuditService) Rollback(ctx context.Context, eventID, requestedByActorID string, workspaceID *string) (RollbackResult, error) {
	ev, err := s.store.AuditEvents().GetByID(ctx, eventID)
	if err != nil {
		return RollbackResult{}, err
	}
	if err := checkScope(ev, workspaceID); err != nil {
		return RollbackResult{}, err
	}
	if !ev.IsUndoable {
		return RollbackResult{}, apperr.NotUndoablef("audit event %s is not undoable", ev.ID)
	}

	var res RollbackResult
	err = s.store.WithTx(ctx, func(st repo.Store) error {
		msg, err := s.rollback.Dispatch(ctx, st, ev)
		if err != nil {
			return err
		}

		actorType := models.ActorUser
		var actorID *string
		if requestedByActorID == "" {
			actorType = models.ActorSystem
		} else {
			actorID = &requestedByActorID
		}

		undoable := false
		recorded, err := s.createEvent(ctx, st, CreateEventInput{
			WorkspaceID: ev.WorkspaceID,
			ActorType:   actorType,
			ActorID:     actorID,
			EntityType:  ev.EntityType,
			EntityID:    ev.EntityID,
			Action:      models.ActionRollback,
			Diff:        invertDiff(ev.Diff),
			Meta: map[string]any{
				models.MetaRollbackOf:     ev.ID,
				models.MetaOriginalAction: string(ev.Action),
			},
			Severity:   models.SeverityInfo,
			IsUndoable: &undoable,
		})
		if err != nil {
			return err
		}
		res = RollbackResult{Success: true, Message: msg, EventID: recorded.ID}
		return nil
	})
	if err != nil {
		metrics.AuditRollbacksTotal.WithLabelValues("failure").Inc()
		return RollbackResult{}, err
	}
	metrics.AuditRollbacksTotal.WithLabelValues("success").Inc()
	return res, nil
}

// invertDiff swaps the snapshot pair so the rollback event describes the
// change it made. Patch-op diffs are carried over untouched.
func invertDiff(d *models.Diff) *models.Diff {
	if d == nil || !d.HasSnapshots() {
		return d
	}
	return &models.Diff{Before: d.After, After: d.Before}
}

func checkScope(ev models.AuditEvent, workspaceID *string) error {
	if workspaceID == nil || ev.WorkspaceID == nil {
		return nil
	}
	if *ev.WorkspaceID != *workspaceID {
		return apperr.Validationf("audit event %s is outside workspace scope", ev.ID)
	}
	return nil
}
