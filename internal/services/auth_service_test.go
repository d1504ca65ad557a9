package services

import (
	"testing"

	"roblox-license-platform/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseTest(db) })

	svc := NewAuthService(db)

	token, err := svc.GenerateToken(42, "operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "operator", claims.Username)
}

func TestTokenRevocation(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseTest(db) })

	svc := NewAuthService(db)

	token, err := svc.GenerateToken(1, "operator")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(token))

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseTest(db) })

	svc := NewAuthService(db)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseTest(db) })

	svc := NewAuthService(db)

	hash, err := svc.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, svc.CheckPasswordHash("hunter22", hash))
	assert.False(t, svc.CheckPasswordHash("wrong", hash))
}
