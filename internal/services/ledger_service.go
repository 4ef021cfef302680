package services

import (
	"context"
	"log/slog"
	"time"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"bookkeeper-backend/internal/worker"
	"github.com/google/uuid"
)

// LedgerService owns the bookkeeping rows and emits an audit event after
// every mutation. Emission is fire-after-write: the domain write has already
// committed, so the event is queued on the worker pool and a failed write
// only costs the trail entry, never the mutation.
type LedgerService struct {
	store repo.Store
	audit *AuditService
	wp    *worker.Pool
}

func NewLedgerService(store repo.Store, audit *AuditService, wp *worker.Pool) *LedgerService {
	return &LedgerService{store: store, audit: audit, wp: wp}
}

func (s *LedgerService) emit(in CreateEventInput) {
	s.wp.Submit(func() {
		if _, err := s.audit.CreateEvent(context.Background(), in); err != nil {
			slog.Error("audit emit failed",
				"entity_type", in.EntityType, "entity_id", in.EntityID,
				"action", in.Action, "err", err)
		}
	})
}

// ----------------- Transactions -----------------

func (s *LedgerService) CreateTransaction(ctx context.Context, t models.Transaction, actorID string) (models.Transaction, error) {
	if t.WorkspaceID == "" {
		return models.Transaction{}, apperr.Validationf("workspace id required")
	}
	if t.Currency == "" {
		t.Currency = "USD"
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	created, err := s.store.Transactions().Create(ctx, t)
	if err != nil {
		return models.Transaction{}, err
	}
	s.emit(CreateEventInput{
		WorkspaceID: &created.WorkspaceID,
		ActorType:   models.ActorUser,
		ActorID:     &actorID,
		EntityType:  models.EntityTransaction,
		EntityID:    created.ID,
		Action:      models.ActionCreate,
		Diff:        &models.Diff{After: transactionSnapshot(created)},
	})
	return created, nil
}

// UpdateTransaction applies t as the desired state and records only the
// fields that actually changed in the diff.
func (s *LedgerService) UpdateTransaction(ctx context.Context, t models.Transaction, actorID string) (models.Transaction, error) {
	prev, err := s.store.Transactions().GetByID(ctx, t.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	if t.Date.IsZero() {
		t.Date = prev.Date
	}
	if t.Currency == "" {
		t.Currency = prev.Currency
	}
	if err := s.store.Transactions().Update(ctx, t); err != nil {
		return models.Transaction{}, err
	}

	before, after := transactionFieldDiff(prev, t)
	if len(after) > 0 {
		s.emit(CreateEventInput{
			WorkspaceID: &prev.WorkspaceID,
			ActorType:   models.ActorUser,
			ActorID:     &actorID,
			EntityType:  models.EntityTransaction,
			EntityID:    t.ID,
			Action:      models.ActionUpdate,
			Diff:        &models.Diff{Before: before, After: after},
		})
	}
	return s.store.Transactions().GetByID(ctx, t.ID)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id, actorID string) error {
	prev, err := s.store.Transactions().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Transactions().Delete(ctx, id); err != nil {
		return err
	}
	s.emit(CreateEventInput{
		WorkspaceID: &prev.WorkspaceID,
		ActorType:   models.ActorUser,
		ActorID:     &actorID,
		EntityType:  models.EntityTransaction,
		EntityID:    id,
		Action:      models.ActionDelete,
		Diff:        &models.Diff{Before: transactionSnapshot(prev)},
	})
	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	return s.store.Transactions().GetByID(ctx, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, workspaceID string, limit, offset int) ([]models.Transaction, error) {
	return s.store.Transactions().ListByWorkspace(ctx, workspaceID, limit, offset)
}

// ----------------- Categories -----------------

func (s *LedgerService) CreateCategory(ctx context.Context, c models.Category, actorID string) (models.Category, error) {
	if c.WorkspaceID == "" || c.Name == "" {
		return models.Category{}, apperr.Validationf("workspace id and name required")
	}
	created, err := s.store.Categories().Create(ctx, c)
	if err != nil {
		return models.Category{}, err
	}
	s.emit(CreateEventInput{
		WorkspaceID: &created.WorkspaceID,
		ActorType:   models.ActorUser,
		ActorID:     &actorID,
		EntityType:  models.EntityCategory,
		EntityID:    created.ID,
		Action:      models.ActionCreate,
		Diff:        &models.Diff{After: categorySnapshot(created)},
	})
	return created, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id, actorID string) error {
	prev, err := s.store.Categories().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Categories().Delete(ctx, id); err != nil {
		return err
	}
	s.emit(CreateEventInput{
		WorkspaceID: &prev.WorkspaceID,
		ActorType:   models.ActorUser,
		ActorID:     &actorID,
		EntityType:  models.EntityCategory,
		EntityID:    id,
		Action:      models.ActionDelete,
		Diff:        &models.Diff{Before: categorySnapshot(prev)},
	})
	return nil
}

// ----------------- Statement import -----------------

// ImportStatement persists a statement and its parsed transactions, then
// records the whole bulk operation as one audit batch. Events are written
// synchronously here so the caller gets the batch id back.
func (s *LedgerService) ImportStatement(ctx context.Context, st models.Statement, txs []models.Transaction, actorID string) (models.Statement, BatchResult, error) {
	if st.WorkspaceID == "" {
		return models.Statement{}, BatchResult{}, apperr.Validationf("workspace id required")
	}
	created, err := s.store.Statements().Create(ctx, st)
	if err != nil {
		return models.Statement{}, BatchResult{}, err
	}

	inputs := []CreateEventInput{{
		WorkspaceID: &created.WorkspaceID,
		ActorType:   models.ActorUser,
		ActorID:     &actorID,
		EntityType:  models.EntityStatement,
		EntityID:    created.ID,
		Action:      models.ActionImport,
		Diff:        &models.Diff{After: statementSnapshot(created)},
		Meta:        map[string]any{"rowsCount": len(txs), models.MetaSource: created.Provider},
	}}

	imported := 0
	for i := range txs {
		txs[i].WorkspaceID = created.WorkspaceID
		txs[i].StatementID = &created.ID
		row, err := s.store.Transactions().Create(ctx, txs[i])
		if err != nil {
			slog.Warn("statement row import failed", "statement_id", created.ID, "index", i, "err", err)
			continue
		}
		imported++
		inputs = append(inputs, CreateEventInput{
			WorkspaceID: &created.WorkspaceID,
			ActorType:   models.ActorUser,
			ActorID:     &actorID,
			EntityType:  models.EntityTransaction,
			EntityID:    row.ID,
			Action:      models.ActionImport,
			Diff:        &models.Diff{After: transactionSnapshot(row)},
		})
	}

	if err := s.store.Statements().UpdateStatus(ctx, created.ID, models.StatementImported, imported); err != nil {
		return models.Statement{}, BatchResult{}, err
	}
	created.Status = models.StatementImported
	created.RowsCount = imported

	batch, err := s.audit.CreateBatchEvents(ctx, inputs, uuid.NewString())
	if err != nil {
		return models.Statement{}, BatchResult{}, err
	}
	return created, batch, nil
}

// ----------------- Snapshots -----------------

// Snapshot keys are column names so rollback can feed them straight back
// into the row stores.

func transactionSnapshot(t models.Transaction) map[string]any {
	return map[string]any{
		"workspace_id": t.WorkspaceID,
		"date":         t.Date,
		"amount":       t.Amount,
		"currency":     t.Currency,
		"description":  t.Description,
		"category_id":  t.CategoryID,
		"statement_id": t.StatementID,
	}
}

func categorySnapshot(c models.Category) map[string]any {
	return map[string]any{
		"workspace_id": c.WorkspaceID,
		"name":         c.Name,
		"color":        c.Color,
		"parent_id":    c.ParentID,
	}
}

func statementSnapshot(st models.Statement) map[string]any {
	return map[string]any{
		"workspace_id": st.WorkspaceID,
		"file_name":    st.FileName,
		"provider":     st.Provider,
		"status":       st.Status,
		"rows_count":   st.RowsCount,
	}
}

// transactionFieldDiff captures only changed fields, so rolling the update
// back touches nothing the update itself did not touch.
func transactionFieldDiff(prev, next models.Transaction) (before, after map[string]any) {
	before = map[string]any{}
	after = map[string]any{}
	if !prev.Date.Equal(next.Date) && !next.Date.IsZero() {
		before["date"], after["date"] = prev.Date, next.Date
	}
	if prev.Amount != next.Amount {
		before["amount"], after["amount"] = prev.Amount, next.Amount
	}
	if prev.Currency != next.Currency && next.Currency != "" {
		before["currency"], after["currency"] = prev.Currency, next.Currency
	}
	if prev.Description != next.Description {
		before["description"], after["description"] = prev.Description, next.Description
	}
	if !equalPtr(prev.CategoryID, next.CategoryID) {
		before["category_id"], after["category_id"] = prev.CategoryID, next.CategoryID
	}
	return before, after
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
