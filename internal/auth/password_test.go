package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyPasswordBcrypt(t *testing.T) {
	hashed, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hashed, "s3cret"))
	assert.False(t, VerifyPassword(hashed, "wrong"))
}

func TestVerifyPasswordPlaintextFallback(t *testing.T) {
	assert.True(t, VerifyPassword("legacy-plain", "legacy-plain"))
	assert.False(t, VerifyPassword("legacy-plain", "other"))
}

func TestVerifyPasswordHashNeverMatchesItsOwnText(t *testing.T) {
	hashed, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, VerifyPassword(hashed, hashed))
}
