package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret")

func TestGenerateAndValidate(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateUserJWT(userID, time.Hour, testKey)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := ValidateUserJWT(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := GenerateUserJWT(uuid.New(), -time.Minute, testKey)
	require.NoError(t, err)

	_, err = ValidateUserJWT(token, testKey)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateWrongKey(t *testing.T) {
	token, err := GenerateUserJWT(uuid.New(), time.Hour, testKey)
	require.NoError(t, err)

	_, err = ValidateUserJWT(token, []byte("other-secret"))
	assert.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	_, err := ValidateUserJWT("not-a-token", testKey)
	assert.Error(t, err)
}
