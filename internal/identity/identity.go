package identity

import "context"

// Identity is the verified external identity carried by a bearer credential.
// Subject is the identity provider's stable id for the user and is used as
// the local user primary key; it is never regenerated.
type Identity struct {
	Subject    string
	Email      string
	Name       string
	RoleClaims []string
}

// Verifier validates a raw bearer credential and yields the identity it
// proves. Implementations: OIDC tokens against an external issuer, and
// opaque local session tokens.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
	Provider() string
}
