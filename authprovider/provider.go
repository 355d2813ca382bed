// Package authprovider implements the external authentication provider
// contract of spec §4.7 step 3, modeled on the teacher's
// pkg/auth.AuthProvider/Authenticator chain.
package authprovider

import "context"

// Credential is one name/value pair decoded from an "auth" envelope
// (spec §3/§6).
type Credential struct {
	Name  string
	Value string
}

// Identity is the verified principal returned by a successful
// Authenticate call, matching the auth_response fields of spec §6.
type Identity struct {
	Name               string
	Domain             string
	Roles              []string
	AuthenticationType string
}

// Provider validates a credential list and produces an Identity. A
// Provider that cannot handle any of the supplied credentials returns
// ErrUnsupportedMechanism so an Authenticator chain can try the next one.
type Provider interface {
	// CanHandle reports whether this provider recognizes at least one of
	// the supplied credentials (by name) and should be tried.
	CanHandle(creds []Credential) bool

	// Authenticate validates creds and returns the resulting Identity.
	Authenticate(ctx context.Context, creds []Credential) (*Identity, error)

	// Name identifies the provider for logging.
	Name() string
}
