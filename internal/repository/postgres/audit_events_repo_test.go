package postgres

import (
	"testing"
	"time"

	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEventWhereEmptyFilter(t *testing.T) {
	where, args := buildEventWhere(repo.EventFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildEventWhereSingleField(t *testing.T) {
	ws := "w1"
	where, args := buildEventWhere(repo.EventFilter{WorkspaceID: &ws})
	assert.Equal(t, " WHERE workspace_id = $1", where)
	assert.Equal(t, []any{"w1"}, args)
}

func TestBuildEventWhereNumbersPlaceholdersInOrder(t *testing.T) {
	ws := "w1"
	et := models.EntityTransaction
	sev := models.SeverityWarn
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	where, args := buildEventWhere(repo.EventFilter{
		WorkspaceID: &ws,
		EntityType:  &et,
		Severity:    &sev,
		DateFrom:    &from,
		DateTo:      &to,
	})
	assert.Equal(t,
		" WHERE workspace_id = $1 AND entity_type = $2 AND severity = $3 AND created_at >= $4 AND created_at <= $5",
		where)
	require.Len(t, args, 5)
	assert.Equal(t, "w1", args[0])
	assert.Equal(t, et, args[1])
	assert.Equal(t, sev, args[2])
	assert.Equal(t, from, args[3])
	assert.Equal(t, to, args[4])
}

func TestBuildEventWhereActorAndBatch(t *testing.T) {
	at := models.ActorUser
	actor := "u1"
	batch := "b1"
	where, args := buildEventWhere(repo.EventFilter{
		ActorType: &at,
		ActorID:   &actor,
		BatchID:   &batch,
	})
	assert.Equal(t, " WHERE actor_type = $1 AND actor_id = $2 AND batch_id = $3", where)
	assert.Equal(t, []any{at, "u1", "b1"}, args)
}
