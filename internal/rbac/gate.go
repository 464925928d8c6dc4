// Package rbac enforces membership-role authorization on routes. Decisions
// are per company: the caller's role in the effective company must be among
// the roles a route allows. Platform admins bypass every check.
package rbac

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/tenant"
)

// maxBodyPeek bounds how much of a request body the gate will read when
// looking for a companyId field.
const maxBodyPeek = 1 << 20

type contextKey int

const resourceCompanyKey contextKey = iota

// ContextWithResourceCompany pins the effective company to the one owning
// the resource a request targets. It takes priority over every client-
// supplied company signal, so a forged header or body cannot widen access.
func ContextWithResourceCompany(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, resourceCompanyKey, companyID)
}

// ResourceCompanyFromContext returns the pinned resource company, if any.
func ResourceCompanyFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(resourceCompanyKey).(string)
	return id, ok && id != ""
}

// Gate builds role-requirement middleware. onDeny, if non-nil, is invoked
// with the denial reason before the 403 is written.
type Gate struct {
	onDeny func(r *http.Request, reason string)
}

// NewGate creates a Gate. Pass nil to skip denial observation.
func NewGate(onDeny func(r *http.Request, reason string)) *Gate {
	return &Gate{onDeny: onDeny}
}

// Require returns middleware that admits the request only if the caller
// holds one of the given roles in the effective company. The effective
// company is, in priority order: the resource's owning company pinned on the
// context, the resolved active company, a companyID route parameter, or a
// companyId field in the request body. When none is determinable the check
// degrades to "holds an allowed role in any company".
func (g *Gate) Require(roles ...directory.Role) func(http.Handler) http.Handler {
	allowed := make(map[directory.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				writeForbidden(w)
				return
			}

			if user.IsPlatformAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			companyID := effectiveCompany(r)
			if companyID != "" {
				m := user.MembershipIn(companyID)
				if m == nil || !allowed[m.Role] {
					g.deny(r, "company_role")
					writeForbidden(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// No company in play; accept an allowed role held anywhere.
			for _, m := range user.Memberships {
				if allowed[m.Role] {
					next.ServeHTTP(w, r)
					return
				}
			}
			g.deny(r, "no_matching_role")
			writeForbidden(w)
		})
	}
}

func (g *Gate) deny(r *http.Request, reason string) {
	if g.onDeny != nil {
		g.onDeny(r, reason)
	}
}

func effectiveCompany(r *http.Request) string {
	if id, ok := ResourceCompanyFromContext(r.Context()); ok {
		return id
	}
	if id, _ := tenant.ActiveCompanyFromContext(r.Context()); id != "" {
		return id
	}
	if id := chi.URLParam(r, "companyID"); id != "" {
		return id
	}
	return companyFromBody(r)
}

// companyFromBody peeks at a JSON body for a companyId field, restoring the
// body so the handler can decode it again.
func companyFromBody(r *http.Request) string {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodDelete {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var payload struct {
		CompanyID string `json:"companyId"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.CompanyID
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "forbidden", "message": "insufficient permissions"},
	})
}
