package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret-at-least-32-characters!!")
	userID := uuid.New()

	token, err := m.Issue(userID, "creator", time.Hour)
	require.NoError(t, err)

	gotID, role, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "creator", role)
}

func TestTokenManager_RejectsForeignAndExpired(t *testing.T) {
	m := NewTokenManager("test-secret-at-least-32-characters!!")
	other := NewTokenManager("another-secret-at-least-32-characters")

	foreign, err := other.Issue(uuid.New(), "brand", time.Hour)
	require.NoError(t, err)
	_, _, err = m.ParseAccess(foreign)
	assert.Error(t, err)

	expired, err := m.Issue(uuid.New(), "brand", -time.Minute)
	require.NoError(t, err)
	_, _, err = m.ParseAccess(expired)
	assert.Error(t, err)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager("test-secret-at-least-32-characters!!")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = m.ParseAccess(raw)

	assert.Error(t, err)
}
