package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "42", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "tupae", claims.Issuer)
}

func TestToken_Rejected(t *testing.T) {
	token, err := GenerateToken("secret", "42", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "42", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = GenerateToken("", "42", time.Hour)
	assert.Error(t, err)
}

func TestGenerateApiKey(t *testing.T) {
	a, err := GenerateApiKey()
	require.NoError(t, err)
	b, err := GenerateApiKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "tp_"))
	assert.Len(t, a, len("tp_")+32)
	assert.NotEqual(t, a, b)
}
