package directory

import (
	"context"
	"fmt"

	"github.com/propertyflow/propertyflow/internal/identity"
)

// SessionVerifier resolves opaque local session tokens to identities. It is
// the identity.Verifier used when the server runs with the "local" provider.
type SessionVerifier struct {
	store *Store
}

// NewSessionVerifier wraps a directory store as a session token verifier.
func NewSessionVerifier(store *Store) *SessionVerifier {
	return &SessionVerifier{store: store}
}

// Provider returns the verifier kind for logging and metrics labels.
func (v *SessionVerifier) Provider() string { return "local" }

// Verify looks up the session token and returns the identity of the user who
// owns it. The legacy role label is surfaced as a role claim so the sync path
// treats local and OIDC identities uniformly.
func (v *SessionVerifier) Verify(ctx context.Context, rawToken string) (*identity.Identity, error) {
	u, err := v.store.GetSessionUser(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	return &identity.Identity{
		Subject:    u.ID,
		Email:      u.Email,
		Name:       u.Name,
		RoleClaims: []string{string(u.Role)},
	}, nil
}
