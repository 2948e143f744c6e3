package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_Issue(t *testing.T) {
	secret := "test-secret"
	mgr := NewJWTManager(secret)

	token, err := mgr.Issue("user-123", "u@example.com", "admin", 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Parse and verify claims
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTManager_Verify_roundTrip(t *testing.T) {
	mgr := NewJWTManager("test-secret")

	token, err := mgr.Issue("user-9", "s@example.com", "student", time.Hour)
	require.NoError(t, err)

	userID, role, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)
	assert.Equal(t, "student", role)
}

func TestJWTManager_Verify_rejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a").Issue("user-1", "a@example.com", "student", time.Hour)
	require.NoError(t, err)

	_, _, err = NewJWTManager("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestJWTManager_Verify_rejectsExpired(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, err := mgr.Issue("user-1", "a@example.com", "student", -time.Minute)
	require.NoError(t, err)

	_, _, err = mgr.Verify(token)
	assert.Error(t, err)
}

func TestJWTManager_Verify_rejectsGarbage(t *testing.T) {
	_, _, err := NewJWTManager("test-secret").Verify("not-a-jwt")
	assert.Error(t, err)
}
