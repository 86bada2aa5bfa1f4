package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, tok, secret string) jwtlib.MapClaims {
	t.Helper()
	parsed, err := jwtlib.Parse(tok, func(*jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return parsed.Claims.(jwtlib.MapClaims)
}

func TestIssue_Claims(t *testing.T) {
	tok, err := Issue("secret", 42, true, 2)
	require.NoError(t, err)

	claims := parse(t, tok, "secret")
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, true, claims["staff"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))
}

func TestIssue_WrongSecretRejected(t *testing.T) {
	tok, err := Issue("secret", 42, false, 2)
	require.NoError(t, err)

	_, err = jwtlib.Parse(tok, func(*jwtlib.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	require.Error(t, err)
}
