package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messengerflow/inbox-service/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	agent := domain.Agent{ID: "a1", Role: domain.AgentRoleSuperAdmin}

	token, sessionID, expiresAt, err := tm.GenerateToken(agent)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, sessionID)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AgentID)
	assert.Equal(t, domain.AgentRoleSuperAdmin, claims.Role)
	assert.Equal(t, sessionID, claims.ID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("right-secret", 60)
	other := NewTokenManager("wrong-secret", 60)

	token, _, _, err := tm.GenerateToken(domain.Agent{ID: "a1"})
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}
