package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", "bookkeeper", time.Minute, time.Hour)
}

func TestGeneratePairAndParse(t *testing.T) {
	tm := testManager()
	access, refresh, exp, err := tm.GeneratePair("u1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, isRefresh, err := tm.ParseAny(access)
	require.NoError(t, err)
	assert.False(t, isRefresh)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "bookkeeper", claims.Issuer)

	claims, isRefresh, err = tm.ParseAny(refresh)
	require.NoError(t, err)
	assert.True(t, isRefresh)
	assert.Equal(t, "u1", claims.UserID)
}

func TestParseAnyRejectsGarbage(t *testing.T) {
	tm := testManager()
	_, _, err := tm.ParseAny("not-a-token")
	assert.Error(t, err)
}

func TestParseAnyRejectsForeignSignature(t *testing.T) {
	other := NewTokenManager("different", "also-different", "bookkeeper", time.Minute, time.Hour)
	access, _, _, err := other.GeneratePair("u1", "member")
	require.NoError(t, err)

	_, _, err = testManager().ParseAny(access)
	assert.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, VerifyPassword("correct horse battery staple", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}
