package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/propertyflow/propertyflow/internal/audit"
	"github.com/propertyflow/propertyflow/internal/directory"
)

// AuditLog is the read side of the audit store.
type AuditLog interface {
	ListRecent(ctx context.Context, limit int) ([]*audit.Event, error)
}

// adminHandler groups platform admin HTTP handlers.
type adminHandler struct {
	users    UserStore
	auditLog AuditLog
	auditor  EventRecorder
}

func newAdminHandler(users UserStore, auditLog AuditLog, auditor EventRecorder) *adminHandler {
	return &adminHandler{users: users, auditLog: auditLog, auditor: auditor}
}

// ListUsers handles GET /api/v1/admin/users.
func (h *adminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}

	views := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": views})
}

// CreateUser handles POST /api/v1/admin/users. It provisions a local-provider
// user with a password; OIDC users appear on their own via sync.
func (h *adminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in directory.CreateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}
	if in.Role != "" {
		if _, ok := directory.ParseRole(string(in.Role)); !ok {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid role")
			return
		}
	}

	u, err := h.users.CreateLocal(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", "user already exists")
		return
	}

	recordEvent(h.auditor, r, "admin.users.create", "user:"+u.ID, "allowed", "")
	writeJSON(w, http.StatusCreated, userView(u))
}

// ListAuditEvents handles GET /api/v1/admin/audit.
func (h *adminHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.auditLog == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": []*audit.Event{}})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.auditLog.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
