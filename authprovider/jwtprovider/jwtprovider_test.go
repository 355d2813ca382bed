package jwtprovider

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/authprovider"
)

const testSecret = "a-secret-at-least-32-bytes-long!!"

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestAuthenticateValidToken(t *testing.T) {
	p, err := New([]byte(testSecret), "coreremoting")
	require.NoError(t, err)

	claims := Claims{
		Name:   "alice",
		Domain: "corp",
		Roles:  []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "coreremoting",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signToken(t, []byte(testSecret), claims)

	creds := []authprovider.Credential{{Name: "bearer", Value: token}}
	require.True(t, p.CanHandle(creds))

	identity, err := p.Authenticate(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Name)
	assert.Equal(t, "corp", identity.Domain)
	assert.Equal(t, []string{"admin"}, identity.Roles)
	assert.Equal(t, "jwt", identity.AuthenticationType)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	p, err := New([]byte(testSecret), "coreremoting")
	require.NoError(t, err)

	claims := Claims{
		Name: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "coreremoting",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := signToken(t, []byte(testSecret), claims)

	_, err = p.Authenticate(context.Background(), []authprovider.Credential{{Name: "bearer", Value: token}})
	require.Error(t, err)
	assert.ErrorIs(t, err, authprovider.ErrAuthFailed)
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	p, err := New([]byte(testSecret), "coreremoting")
	require.NoError(t, err)

	claims := Claims{
		Name: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "coreremoting",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signToken(t, []byte("a-totally-different-secret-321!"), claims)

	_, err = p.Authenticate(context.Background(), []authprovider.Credential{{Name: "bearer", Value: token}})
	require.Error(t, err)
	assert.ErrorIs(t, err, authprovider.ErrAuthFailed)
}

func TestCanHandleRequiresBearerCredential(t *testing.T) {
	p, err := New([]byte(testSecret), "coreremoting")
	require.NoError(t, err)
	assert.False(t, p.CanHandle([]authprovider.Credential{{Name: "basic", Value: "x"}}))
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New([]byte("short"), "coreremoting")
	require.Error(t, err)
}
