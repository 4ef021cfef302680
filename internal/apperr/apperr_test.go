package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundf("row %s", "x")))
	assert.Equal(t, KindNotUndoable, KindOf(NotUndoablef("nope")))
	assert.Equal(t, KindConflict, KindOf(Conflictf("dup")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := NotFoundf("row missing")
	wrapped := fmt.Errorf("query failed: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestErrorMessage(t *testing.T) {
	e := Wrap(KindInternal, "insert", errors.New("connection reset"))
	assert.Equal(t, "insert: connection reset", e.Error())
	assert.Equal(t, "connection reset", e.Unwrap().Error())

	assert.Equal(t, "bad state", New(KindConflict, "bad state").Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "not_undoable", KindNotUndoable.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, "internal", Kind(99).String())
}
