// Package tenant resolves which company a request operates in. The active
// company is derived per request from the caller's memberships and an
// optional X-Company-ID hint; it is never stored server-side.
package tenant

import (
	"context"
	"net/http"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/directory"
)

// Header carries the client's company hint.
const Header = "X-Company-ID"

// Source labels how the active company was resolved, for logging and metrics.
type Source string

const (
	// SourceHeader means the hint matched one of the caller's memberships.
	SourceHeader Source = "header"
	// SourceSingle means the caller has exactly one membership and no hint
	// was needed.
	SourceSingle Source = "single"
	// SourceAdminHint means a platform admin supplied a hint; admins may act
	// in any company without holding a membership there.
	SourceAdminHint Source = "admin_hint"
	// SourceNone means no active company could be determined. Requests still
	// proceed; authorization decides later whether one was required.
	SourceNone Source = "none"
)

// Resolve determines the active company for a user given the request hint.
// A hint naming a company the user does not belong to is silently ignored
// unless the user is a platform admin. With no usable hint, a sole
// membership resolves to that company; multiple memberships resolve to none.
func Resolve(user *directory.User, hint string) (string, Source) {
	if hint != "" {
		if user.MembershipIn(hint) != nil {
			return hint, SourceHeader
		}
		if user.IsPlatformAdmin() {
			return hint, SourceAdminHint
		}
	}
	if len(user.Memberships) == 1 {
		return user.Memberships[0].CompanyID, SourceSingle
	}
	return "", SourceNone
}

type contextKey int

const activeCompanyKey contextKey = iota

type activeCompany struct {
	id     string
	source Source
}

// ContextWithActiveCompany returns a context carrying the resolved company.
func ContextWithActiveCompany(ctx context.Context, id string, source Source) context.Context {
	return context.WithValue(ctx, activeCompanyKey, activeCompany{id: id, source: source})
}

// ActiveCompanyFromContext returns the resolved company id and how it was
// resolved. The id is empty when resolution yielded none.
func ActiveCompanyFromContext(ctx context.Context) (string, Source) {
	ac, ok := ctx.Value(activeCompanyKey).(activeCompany)
	if !ok {
		return "", SourceNone
	}
	return ac.id, ac.source
}

// Middleware resolves the active company for the authenticated user and
// stores it on the request context. It must run after auth middleware.
// onResolve, if non-nil, is invoked with the resolution source.
func Middleware(onResolve func(Source)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			id, source := Resolve(user, r.Header.Get(Header))
			if onResolve != nil {
				onResolve(source)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActiveCompany(r.Context(), id, source)))
		})
	}
}
