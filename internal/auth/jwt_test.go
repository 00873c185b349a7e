// internal/auth/jwt_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v1kassh/escrawl-connect/internal/models"
)

const testSecret = "unit-test-secret"

func TestSignVerifyRoundTrip(t *testing.T) {
	user := models.User{ID: "u1", Username: "alice", Role: models.RoleAdmin}

	token, err := Sign(user, testSecret, "escrawl-connect", time.Hour)
	require.NoError(t, err)

	claims, err := Verify(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "escrawl-connect", claims.Issuer)
	assert.Equal(t, user, claims.Actor())
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Sign(models.User{ID: "u1", Username: "alice", Role: models.RoleUser}, testSecret, "escrawl-connect", time.Hour)
	require.NoError(t, err)

	_, err = Verify(token, "some-other-secret")
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := Sign(models.User{ID: "u1", Username: "alice", Role: models.RoleUser}, testSecret, "escrawl-connect", -time.Minute)
	require.NoError(t, err)

	_, err = Verify(token, testSecret)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := Verify("not.a.token", testSecret)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPassword(hash, "s3cret-password"))
	assert.False(t, CheckPassword(hash, "wrong-password"))
}
