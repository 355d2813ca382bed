package authprovider

import "context"

// AllowAll is a reference Provider that accepts any credential list,
// including an empty one, mapping it to an anonymous Identity. It is the
// default provider for deployments that rely on transport-level trust or
// on encryption alone rather than per-call authentication (spec §4.7
// step 3 treats auth as mandatory but pluggable, not as inherently
// requiring a real credential check).
type AllowAll struct{}

// CanHandle always reports true: AllowAll tries every credential list.
func (AllowAll) CanHandle(creds []Credential) bool {
	return true
}

// Authenticate always succeeds, naming the identity after the first
// credential present, or "anonymous" when none was supplied.
func (AllowAll) Authenticate(ctx context.Context, creds []Credential) (*Identity, error) {
	name := "anonymous"
	if len(creds) > 0 {
		name = creds[0].Value
	}
	return &Identity{Name: name, AuthenticationType: "allow-all"}, nil
}

// Name identifies this provider for logging.
func (AllowAll) Name() string {
	return "allow-all"
}

var _ Provider = AllowAll{}
