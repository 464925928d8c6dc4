// Package auth authenticates requests. The middleware verifies the bearer
// credential, synchronizes the user record, and attaches the user to the
// request context for downstream resolution and authorization.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/identity"
)

// UserSyncer upserts the local user record for a verified identity.
type UserSyncer interface {
	Sync(ctx context.Context, ident *identity.Identity) (*directory.User, error)
}

type contextKey int

const userKey contextKey = iota

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, user *directory.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user from the context.
func UserFromContext(ctx context.Context) (*directory.User, bool) {
	user, ok := ctx.Value(userKey).(*directory.User)
	return user, ok
}

// Middleware returns middleware that authenticates requests via the given
// verifier. Missing or invalid credentials produce 401; a verification
// success followed by a sync failure produces 500, never 401, so clients can
// distinguish bad credentials from server trouble.
func Middleware(verifier identity.Verifier, syncer UserSyncer, logger *slog.Logger, onVerify func(provider string, ok bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}

			ident, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("credential rejected", "provider", verifier.Provider(), "error", err)
				if onVerify != nil {
					onVerify(verifier.Provider(), false)
				}
				writeUnauthorized(w, "invalid or expired credential")
				return
			}
			if onVerify != nil {
				onVerify(verifier.Provider(), true)
			}

			user, err := syncer.Sync(r.Context(), ident)
			if err != nil {
				logger.Error("user sync failed", "subject", ident.Subject, "error", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "failed to synchronize user")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// BearerToken extracts the bearer credential from a request, for handlers
// that need the raw token (logout).
func BearerToken(r *http.Request) (string, bool) {
	return bearerToken(r)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "unauthorized", message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
