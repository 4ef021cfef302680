package services

import (
	"context"
	"fmt"
	"testing"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditService(store *fakeStore) *AuditService {
	return NewAuditService(store, NewActorResolver(store.users), NewRollbackService())
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestCreateEventRejectsBlankEntityID(t *testing.T) {
	svc := newAuditService(newFakeStore())

	for _, entityID := range []string{"", "   ", "\t\n"} {
		_, err := svc.CreateEvent(context.Background(), CreateEventInput{
			ActorType:  models.ActorSystem,
			EntityType: models.EntityTransaction,
			EntityID:   entityID,
			Action:     models.ActionCreate,
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
}

func TestCreateEventValidatesEnums(t *testing.T) {
	svc := newAuditService(newFakeStore())
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, CreateEventInput{
		ActorType: "robot", EntityType: models.EntityTransaction, EntityID: "t1", Action: models.ActionCreate,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.CreateEvent(ctx, CreateEventInput{
		ActorType: models.ActorSystem, EntityType: "spaceship", EntityID: "t1", Action: models.ActionCreate,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.CreateEvent(ctx, CreateEventInput{
		ActorType: models.ActorSystem, EntityType: models.EntityTransaction, EntityID: "t1", Action: "explode",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.CreateEvent(ctx, CreateEventInput{
		ActorType: models.ActorSystem, EntityType: models.EntityTransaction, EntityID: "t1",
		Action: models.ActionCreate, Severity: "meh",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateEventRejectsUnknownWorkspace(t *testing.T) {
	store := newFakeStore()
	svc := newAuditService(store)

	_, err := svc.CreateEvent(context.Background(), CreateEventInput{
		WorkspaceID: strp("nope"),
		ActorType:   models.ActorSystem,
		EntityType:  models.EntityTransaction,
		EntityID:    "t1",
		Action:      models.ActionCreate,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, store.audit.events)
}

func TestCreateEventResolvesActorLabel(t *testing.T) {
	store := newFakeStore()
	u, err := store.users.Create(context.Background(), "ayse", "ayse@example.com", "x", "user")
	require.NoError(t, err)
	svc := newAuditService(store)

	ev, err := svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorUser,
		ActorID:    &u.ID,
		EntityType: models.EntityTransaction,
		EntityID:   "t1",
		Action:     models.ActionUpdate,
	})
	require.NoError(t, err)
	assert.Equal(t, "ayse@example.com", ev.ActorLabel)

	// explicit label wins and skips the lookup
	ev, err = svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorUser,
		ActorID:    &u.ID,
		ActorLabel: "  import-job  ",
		EntityType: models.EntityTransaction,
		EntityID:   "t1",
		Action:     models.ActionUpdate,
	})
	require.NoError(t, err)
	assert.Equal(t, "import-job", ev.ActorLabel)

	// unknown actor degrades the label, never blocks the write
	ev, err = svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorUser,
		ActorID:    strp("ghost"),
		EntityType: models.EntityTransaction,
		EntityID:   "t1",
		Action:     models.ActionUpdate,
	})
	require.NoError(t, err)
	assert.Equal(t, "ghost", ev.ActorLabel)
	assert.NotEmpty(t, ev.ActorLabel)
}

func TestCreateEventDefaults(t *testing.T) {
	svc := newAuditService(newFakeStore())

	ev, err := svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorSystem,
		EntityType: models.EntityTransaction,
		EntityID:   "t1",
		Action:     models.ActionUpdate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SeverityInfo, ev.Severity)
	assert.True(t, ev.IsUndoable, "update defaults to undoable")
	assert.Equal(t, "System", ev.ActorLabel)

	ev, err = svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorIntegration,
		EntityType: models.EntityTransaction,
		EntityID:   "t1",
		Action:     models.ActionCreate,
	})
	require.NoError(t, err)
	assert.False(t, ev.IsUndoable, "transaction create is not undoable by default")
	assert.Equal(t, "Integration", ev.ActorLabel)

	// explicit flag wins over the heuristic
	ev, err = svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorSystem,
		EntityType: models.EntityTransaction,
		EntityID:   "t1",
		Action:     models.ActionCreate,
		IsUndoable: boolp(true),
	})
	require.NoError(t, err)
	assert.True(t, ev.IsUndoable)
}

func TestCreateBatchEventsStampsSharedBatchID(t *testing.T) {
	store := newFakeStore()
	svc := newAuditService(store)

	inputs := make([]CreateEventInput, 0, 4)
	for i := 0; i < 3; i++ {
		inputs = append(inputs, CreateEventInput{
			ActorType:  models.ActorSystem,
			EntityType: models.EntityTransaction,
			EntityID:   fmt.Sprintf("t%d", i),
			Action:     models.ActionImport,
		})
	}
	// one invalid item must be skipped without aborting its siblings
	inputs = append(inputs, CreateEventInput{
		ActorType:  models.ActorSystem,
		EntityType: models.EntityTransaction,
		EntityID:   "   ",
		Action:     models.ActionImport,
	})

	res, err := svc.CreateBatchEvents(context.Background(), inputs, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, "batch-1", res.BatchID)
	require.Len(t, res.Events, 3)
	for _, ev := range res.Events {
		require.NotNil(t, ev.BatchID)
		assert.Equal(t, "batch-1", *ev.BatchID)
	}
	assert.Len(t, store.audit.events, 3)
}

func TestCreateBatchEventsGeneratesBatchID(t *testing.T) {
	svc := newAuditService(newFakeStore())
	res, err := svc.CreateBatchEvents(context.Background(), []CreateEventInput{{
		ActorType:  models.ActorSystem,
		EntityType: models.EntityCategory,
		EntityID:   "c1",
		Action:     models.ActionImport,
	}}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
}

func TestFindEventsWorkspaceScoping(t *testing.T) {
	store := newFakeStore()
	w1, _ := store.workspaces.Create(context.Background(), "w1")
	w2, _ := store.workspaces.Create(context.Background(), "w2")
	svc := newAuditService(store)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateEvent(context.Background(), CreateEventInput{
			WorkspaceID: &w1.ID,
			ActorType:   models.ActorSystem,
			EntityType:  models.EntityTransaction,
			EntityID:    fmt.Sprintf("a%d", i),
			Action:      models.ActionCreate,
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateEvent(context.Background(), CreateEventInput{
		WorkspaceID: &w2.ID,
		ActorType:   models.ActorSystem,
		EntityType:  models.EntityTransaction,
		EntityID:    "b1",
		Action:      models.ActionCreate,
	})
	require.NoError(t, err)

	page, err := svc.FindEvents(context.Background(), repo.EventFilter{WorkspaceID: &w1.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	for _, ev := range page.Data {
		require.NotNil(t, ev.WorkspaceID)
		assert.Equal(t, w1.ID, *ev.WorkspaceID)
	}
}

func TestFindEventsPagination(t *testing.T) {
	store := newFakeStore()
	w1, _ := store.workspaces.Create(context.Background(), "w1")
	svc := newAuditService(store)

	for i := 0; i < 15; i++ {
		_, err := svc.CreateEvent(context.Background(), CreateEventInput{
			WorkspaceID: &w1.ID,
			ActorType:   models.ActorSystem,
			EntityType:  models.EntityTransaction,
			EntityID:    fmt.Sprintf("t%d", i),
			Action:      models.ActionCreate,
			Severity:    models.SeverityWarn,
		})
		require.NoError(t, err)
	}

	sev := models.SeverityWarn
	page, err := svc.FindEvents(context.Background(), repo.EventFilter{
		WorkspaceID: &w1.ID, Severity: &sev, Page: 2, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, page.Total)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)
}

func TestFindEventsNewestFirstAndDateRange(t *testing.T) {
	store := newFakeStore()
	svc := newAuditService(store)

	var ids []string
	for i := 0; i < 5; i++ {
		ev, err := svc.CreateEvent(context.Background(), CreateEventInput{
			ActorType:  models.ActorSystem,
			EntityType: models.EntityTransaction,
			EntityID:   fmt.Sprintf("t%d", i),
			Action:     models.ActionCreate,
		})
		require.NoError(t, err)
		ids = append(ids, ev.ID)
	}

	page, err := svc.FindEvents(context.Background(), repo.EventFilter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 5)
	assert.Equal(t, ids[4], page.Data[0].ID, "newest first")
	for i := 1; i < len(page.Data); i++ {
		assert.False(t, page.Data[i-1].CreatedAt.Before(page.Data[i].CreatedAt))
	}

	from := page.Data[3].CreatedAt
	to := page.Data[1].CreatedAt
	ranged, err := svc.FindEvents(context.Background(), repo.EventFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, 3, ranged.Total, "range bounds are inclusive")
	for _, ev := range ranged.Data {
		assert.False(t, ev.CreatedAt.Before(from))
		assert.False(t, ev.CreatedAt.After(to))
	}

	_, err = svc.FindEvents(context.Background(), repo.EventFilter{DateFrom: &to, DateTo: &from})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFindEventsClampsPaging(t *testing.T) {
	svc := newAuditService(newFakeStore())

	page, err := svc.FindEvents(context.Background(), repo.EventFilter{Page: -2, Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 200, page.Limit)
}

func TestGetEventScope(t *testing.T) {
	store := newFakeStore()
	w1, _ := store.workspaces.Create(context.Background(), "w1")
	svc := newAuditService(store)

	ev, err := svc.CreateEvent(context.Background(), CreateEventInput{
		WorkspaceID: &w1.ID,
		ActorType:   models.ActorSystem,
		EntityType:  models.EntityTransaction,
		EntityID:    "t1",
		Action:      models.ActionCreate,
	})
	require.NoError(t, err)

	got, err := svc.GetEvent(context.Background(), ev.ID, &w1.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)

	_, err = svc.GetEvent(context.Background(), ev.ID, strp("other-workspace"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.GetEvent(context.Background(), "missing", nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetEntityHistory(t *testing.T) {
	store := newFakeStore()
	svc := newAuditService(store)

	for _, action := range []models.AuditAction{models.ActionCreate, models.ActionUpdate, models.ActionDelete} {
		_, err := svc.CreateEvent(context.Background(), CreateEventInput{
			ActorType:  models.ActorSystem,
			EntityType: models.EntityCategory,
			EntityID:   "c1",
			Action:     action,
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateEvent(context.Background(), CreateEventInput{
		ActorType:  models.ActorSystem,
		EntityType: models.EntityCategory,
		EntityID:   "c2",
		Action:     models.ActionCreate,
	})
	require.NoError(t, err)

	history, err := svc.GetEntityHistory(context.Background(), models.EntityCategory, "c1", nil)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ActionDelete, history[0].Action, "newest first")

	_, err = svc.GetEntityHistory(context.Background(), "spaceship", "c1", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
