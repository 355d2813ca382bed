package authprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	handles string
	name    string
	identity *Identity
	err      error
}

func (s *stubProvider) CanHandle(creds []Credential) bool {
	for _, c := range creds {
		if c.Name == s.handles {
			return true
		}
	}
	return false
}

func (s *stubProvider) Authenticate(ctx context.Context, creds []Credential) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func (s *stubProvider) Name() string { return s.name }

func TestAuthenticatorTriesProvidersInOrder(t *testing.T) {
	first := &stubProvider{handles: "bearer", name: "first", identity: &Identity{Name: "alice"}}
	second := &stubProvider{handles: "basic", name: "second", identity: &Identity{Name: "bob"}}

	auth := NewAuthenticator(first, second)

	identity, err := auth.Authenticate(context.Background(), []Credential{{Name: "basic", Value: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "bob", identity.Name)
}

func TestAuthenticatorUnsupportedMechanism(t *testing.T) {
	auth := NewAuthenticator(&stubProvider{handles: "bearer", name: "only"})
	_, err := auth.Authenticate(context.Background(), []Credential{{Name: "basic", Value: "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMechanism)
}

func TestAuthenticatorFailurePropagates(t *testing.T) {
	auth := NewAuthenticator(&stubProvider{handles: "bearer", name: "only", err: ErrAuthFailed})
	_, err := auth.Authenticate(context.Background(), []Credential{{Name: "bearer", Value: "bad"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
}
