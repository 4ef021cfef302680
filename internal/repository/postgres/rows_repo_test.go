package postgres

import (
	"testing"

	"bookkeeper-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownFiltersToColumnSet(t *testing.T) {
	rt := rowTables[models.EntityTransaction]
	r := &rowsRepo{table: rt.name, cols: rt.cols}

	cols, vals := r.known(map[string]any{
		"id":          "t1",
		"amount":      int64(500),
		"currency":    "TRY",
		"malicious":   "1; DROP TABLE audit_events",
		"description": "lunch",
	})
	assert.Equal(t, []string{"amount", "currency", "description"}, cols, "sorted, id and unknown keys dropped")
	require.Len(t, vals, 3)
	assert.Equal(t, int64(500), vals[0])
	assert.Equal(t, "TRY", vals[1])
	assert.Equal(t, "lunch", vals[2])
}

func TestKnownEmptySnapshot(t *testing.T) {
	rt := rowTables[models.EntityCategory]
	r := &rowsRepo{table: rt.name, cols: rt.cols}

	cols, vals := r.known(map[string]any{"id": "c1", "unrelated": true})
	assert.Empty(t, cols)
	assert.Empty(t, vals)
}

func TestRowTablesCoverUndoableEntities(t *testing.T) {
	for _, et := range []models.EntityType{
		models.EntityTransaction,
		models.EntityStatement,
		models.EntityCategory,
		models.EntityTableRow,
	} {
		rt, ok := rowTables[et]
		require.True(t, ok, "missing row table for %s", et)
		assert.NotEmpty(t, rt.name)
		assert.NotEmpty(t, rt.cols)
	}
	_, ok := rowTables[models.EntityWallet]
	assert.False(t, ok)
}
