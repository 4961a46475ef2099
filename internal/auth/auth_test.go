package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	manager := NewManager("secret", time.Hour)

	token, err := manager.Issue(Identity{AccountID: 42, Email: "a@b.c", Username: "alice"})
	require.NoError(t, err)

	identity, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.AccountID)
	assert.Equal(t, "a@b.c", identity.Email)
	assert.Equal(t, "alice", identity.Username)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewManager("secret", time.Hour).Issue(Identity{AccountID: 42})
	require.NoError(t, err)

	_, err = NewManager("other-secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	manager := NewManager("secret", -time.Minute)

	token, err := manager.Issue(Identity{AccountID: 42})
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewManager("secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
