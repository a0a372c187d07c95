package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, hasher.Verify("s3cret", hash))
	assert.False(t, hasher.Verify("wrong", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)

	signed, err := tokens.Issue(7, "alice")
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenManager("secret-a", time.Hour).Issue(1, "alice")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens := NewTokenManager("secret", time.Millisecond)
	signed, err := tokens.Issue(1, "alice")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	_, err := tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
