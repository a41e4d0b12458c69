package utils

import (
	"strconv"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	st, err := NewSessionToken(secret, 42, "AGENT", 30)
	require.NoError(t, err)
	require.NotEmpty(t, st.Token)

	tok, err := jwt.Parse(st.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims, ok := tok.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "AGENT", claims["role"])
	assert.InDelta(t, st.Exp.Unix(), claims["exp"].(float64), 1)
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	st, err := NewSessionToken("secret-a", 1, "USER", 5)
	require.NoError(t, err)

	_, err = jwt.Parse(st.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
	assert.False(t, VerifyPassword("not-a-hash", "hunter22"))
}

func TestNewVerificationCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestNewCodeIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := NewCode()
		require.Len(t, code, 36)
		_, dup := seen[code]
		require.False(t, dup)
		seen[code] = struct{}{}
	}
}
