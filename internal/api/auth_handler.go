package api

import (
	"context"
	"net/http"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/identity"
	"github.com/propertyflow/propertyflow/internal/tenant"
)

// UserStore is the directory surface the API depends on. It is satisfied by
// directory.Store.
type UserStore interface {
	Sync(ctx context.Context, ident *identity.Identity) (*directory.User, error)
	GetByEmail(ctx context.Context, email string) (*directory.User, error)
	List(ctx context.Context) ([]*directory.User, error)
	CreateLocal(ctx context.Context, in directory.CreateUserInput) (*directory.User, error)
	CreateSession(ctx context.Context, userID string) (string, *directory.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users   UserStore
	auditor EventRecorder
}

func newAuthHandler(users UserStore, auditor EventRecorder) *authHandler {
	return &authHandler{users: users, auditor: auditor}
}

// Login handles POST /api/v1/auth/login. Only available with the local
// identity provider; OIDC deployments authenticate at the issuer.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if !directory.CheckPassword(u, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, _, err := h.users.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	if h.auditor != nil {
		recordEvent(h.auditor, r.WithContext(auth.ContextWithUser(r.Context(), u)),
			"auth.login", "session", "allowed", "")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  userView(u),
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = h.users.DeleteSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me. It reports the synced profile, the
// memberships, and the company the request resolved to.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	view := userView(u)
	activeID, source := tenant.ActiveCompanyFromContext(r.Context())
	view["activeCompanyId"] = activeID
	view["activeCompanySource"] = string(source)

	writeJSON(w, http.StatusOK, view)
}

func userView(u *directory.User) map[string]interface{} {
	memberships := u.Memberships
	if memberships == nil {
		memberships = []directory.Membership{}
	}
	return map[string]interface{}{
		"id":          u.ID,
		"email":       u.Email,
		"name":        u.Name,
		"memberships": memberships,
	}
}
