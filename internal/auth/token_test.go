package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateToken_RoundTrip(t *testing.T) {
	v := NewValidator("test-secret")

	token, err := v.GenerateToken(42, "Alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "Alice", claims.DisplayName)
	require.Equal(t, "studyhall", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewValidator("secret-a").GenerateToken(1, "Alice", time.Hour)
	require.NoError(t, err)

	_, err = NewValidator("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	v := NewValidator("test-secret")

	token, err := v.GenerateToken(1, "Alice", -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := NewValidator("test-secret").ValidateToken("not.a.token")
	require.Error(t, err)
}
