package authprovider

import (
	"context"
	"errors"
)

// ErrAuthFailed is returned when no chained provider could validate the
// supplied credentials.
var ErrAuthFailed = errors.New("auth_failed")

// ErrUnsupportedMechanism is returned by Authenticator.Authenticate when no
// chained provider can handle the supplied credentials; providers composed
// outside it may also use it as a sentinel.
var ErrUnsupportedMechanism = errors.New("unsupported authentication mechanism")

// Authenticator tries a sequence of Providers in order, using the first
// one whose CanHandle returns true for the supplied credentials. It
// itself implements Provider so it can be nested or swapped in wherever a
// single provider is expected.
type Authenticator struct {
	providers []Provider
}

// NewAuthenticator builds a chain over providers, tried in order.
func NewAuthenticator(providers ...Provider) *Authenticator {
	return &Authenticator{providers: providers}
}

// CanHandle reports whether any chained provider can handle creds.
func (a *Authenticator) CanHandle(creds []Credential) bool {
	for _, p := range a.providers {
		if p.CanHandle(creds) {
			return true
		}
	}
	return false
}

// Authenticate tries each provider able to handle creds, in order,
// returning the first successful Identity. ErrUnsupportedMechanism is
// returned if no provider could handle the credentials; if every capable
// provider failed, the last provider's error is returned (ErrAuthFailed
// only when that error was nil).
func (a *Authenticator) Authenticate(ctx context.Context, creds []Credential) (*Identity, error) {
	var lastErr error
	tried := false
	for _, p := range a.providers {
		if !p.CanHandle(creds) {
			continue
		}
		tried = true
		identity, err := p.Authenticate(ctx, creds)
		if err == nil {
			return identity, nil
		}
		lastErr = err
	}
	if !tried {
		return nil, ErrUnsupportedMechanism
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrAuthFailed
}

// Name identifies the chain for logging.
func (a *Authenticator) Name() string {
	return "chain"
}

var _ Provider = (*Authenticator)(nil)
