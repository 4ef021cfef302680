package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"github.com/google/uuid"
)

// In-memory stand-ins for the postgres repositories, enough to exercise the
// audit service and rollback dispatcher without a database.

type fakeAuditEvents struct {
	events     []models.AuditEvent
	seq        int
	failInsert bool
}

func (f *fakeAuditEvents) Insert(_ context.Context, e models.AuditEvent) (models.AuditEvent, error) {
	if f.failInsert {
		return models.AuditEvent{}, errors.New("insert failed")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Severity == "" {
		e.Severity = models.SeverityInfo
	}
	f.seq++
	e.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Second)
	f.events = append(f.events, e)
	return e, nil
}

func (f *fakeAuditEvents) matches(e models.AuditEvent, q repo.EventFilter) bool {
	if q.WorkspaceID != nil && (e.WorkspaceID == nil || *e.WorkspaceID != *q.WorkspaceID) {
		return false
	}
	if q.EntityType != nil && e.EntityType != *q.EntityType {
		return false
	}
	if q.EntityID != nil && e.EntityID != *q.EntityID {
		return false
	}
	if q.ActorType != nil && e.ActorType != *q.ActorType {
		return false
	}
	if q.ActorID != nil && (e.ActorID == nil || *e.ActorID != *q.ActorID) {
		return false
	}
	if q.BatchID != nil && (e.BatchID == nil || *e.BatchID != *q.BatchID) {
		return false
	}
	if q.Severity != nil && e.Severity != *q.Severity {
		return false
	}
	if q.DateFrom != nil && e.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && e.CreatedAt.After(*q.DateTo) {
		return false
	}
	return true
}

func (f *fakeAuditEvents) Query(_ context.Context, q repo.EventFilter) (repo.EventPage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	var matched []models.AuditEvent
	for _, e := range f.events {
		if f.matches(e, q) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return repo.EventPage{Data: matched[start:end], Total: total, Page: page, Limit: limit}, nil
}

func (f *fakeAuditEvents) GetByID(_ context.Context, id string) (models.AuditEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return models.AuditEvent{}, apperr.NotFoundf("audit event %s not found", id)
}

func (f *fakeAuditEvents) ListByEntity(_ context.Context, entityType models.EntityType, entityID string, workspaceID *string) ([]models.AuditEvent, error) {
	q := repo.EventFilter{EntityType: &entityType, EntityID: &entityID, WorkspaceID: workspaceID}
	var out []models.AuditEvent
	for _, e := range f.events {
		if f.matches(e, q) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAuditEvents) ListByBatch(_ context.Context, batchID string, workspaceID *string) ([]models.AuditEvent, error) {
	q := repo.EventFilter{BatchID: &batchID, WorkspaceID: workspaceID}
	var out []models.AuditEvent
	for _, e := range f.events {
		if f.matches(e, q) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeUsers struct {
	byID map[string]models.User
}

func (f *fakeUsers) Create(_ context.Context, username, email, hash, role string) (models.User, error) {
	u := models.User{ID: uuid.NewString(), Username: username, Email: email, PasswordHash: hash, Role: role}
	if f.byID == nil {
		f.byID = map[string]models.User{}
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return models.User{}, apperr.NotFoundf("user %s not found", id)
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFoundf("user with email %s not found", email)
}

func (f *fakeUsers) List(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

type fakeWorkspaces struct {
	ids map[string]bool
}

func (f *fakeWorkspaces) Create(_ context.Context, name string) (models.Workspace, error) {
	w := models.Workspace{ID: uuid.NewString(), Name: name}
	if f.ids == nil {
		f.ids = map[string]bool{}
	}
	f.ids[w.ID] = true
	return w, nil
}

func (f *fakeWorkspaces) Exists(_ context.Context, id string) (bool, error) {
	return f.ids[id], nil
}

type fakeRows struct {
	rows map[string]map[string]any
}

func newFakeRows() *fakeRows { return &fakeRows{rows: map[string]map[string]any{}} }

func (f *fakeRows) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeRows) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	row, ok := f.rows[id]
	if !ok {
		return apperr.NotFoundf("row %s not found", id)
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	return nil
}

func (f *fakeRows) InsertRow(_ context.Context, id string, fields map[string]any) error {
	if _, ok := f.rows[id]; ok {
		return apperr.Conflictf("row %s already exists", id)
	}
	row := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	f.rows[id] = row
	return nil
}

func (f *fakeRows) Delete(_ context.Context, id string) (bool, error) {
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

type fakeStore struct {
	audit      *fakeAuditEvents
	users      *fakeUsers
	workspaces *fakeWorkspaces
	rowStores  map[models.EntityType]*fakeRows
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		audit:      &fakeAuditEvents{},
		users:      &fakeUsers{byID: map[string]models.User{}},
		workspaces: &fakeWorkspaces{ids: map[string]bool{}},
		rowStores: map[models.EntityType]*fakeRows{
			models.EntityTransaction: newFakeRows(),
			models.EntityStatement:   newFakeRows(),
			models.EntityCategory:    newFakeRows(),
			models.EntityTableRow:    newFakeRows(),
		},
	}
}

func (f *fakeStore) AuditEvents() repo.AuditEvents   { return f.audit }
func (f *fakeStore) Users() repo.Users               { return f.users }
func (f *fakeStore) Workspaces() repo.Workspaces     { return f.workspaces }
func (f *fakeStore) Transactions() repo.Transactions { return nil }
func (f *fakeStore) Categories() repo.Categories     { return nil }
func (f *fakeStore) Statements() repo.Statements     { return nil }

func (f *fakeStore) RowStore(entity models.EntityType) (repo.Rows, bool) {
	rs, ok := f.rowStores[entity]
	if !ok {
		return nil, false
	}
	return rs, true
}

// WithTx mirrors the real store's transaction boundary: state is snapshotted
// before fn runs and restored when fn fails, so a torn write inside the
// callback is observable as a rollback.
func (f *fakeStore) WithTx(_ context.Context, fn func(repo.Store) error) error {
	auditBefore := append([]models.AuditEvent(nil), f.audit.events...)
	seqBefore := f.audit.seq
	rowsBefore := make(map[models.EntityType]map[string]map[string]any, len(f.rowStores))
	for et, rs := range f.rowStores {
		tables := make(map[string]map[string]any, len(rs.rows))
		for id, row := range rs.rows {
			cp := make(map[string]any, len(row))
			for k, v := range row {
				cp[k] = v
			}
			tables[id] = cp
		}
		rowsBefore[et] = tables
	}

	if err := fn(f); err != nil {
		f.audit.events = auditBefore
		f.audit.seq = seqBefore
		for et, rs := range f.rowStores {
			rs.rows = rowsBefore[et]
		}
		return err
	}
	return nil
}
