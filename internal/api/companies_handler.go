package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/company"
	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/rbac"
)

// CompanyStore is the company surface the API depends on. It is satisfied by
// company.Store.
type CompanyStore interface {
	CreateWithOwner(ctx context.Context, in company.CreateInput, ownerID string) (*company.Company, error)
	GetByID(ctx context.Context, id string) (*company.Company, error)
	Update(ctx context.Context, id string, in company.UpdateInput) (*company.Company, error)
	ListForUser(ctx context.Context, userID string) ([]*company.Company, error)
	ListAll(ctx context.Context) ([]*company.Company, error)
	ListMembers(ctx context.Context, companyID string) ([]*company.Member, error)
	AssignMember(ctx context.Context, companyID string, in company.AssignMemberInput) error
	UpdateMemberRole(ctx context.Context, companyID, userID string, role directory.Role) (bool, error)
}

// companyResource pins the company named in the route as the one this
// request is authorized against, so a different active company cannot
// satisfy the role check for it.
func companyResource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chi.URLParam(r, "companyID"); id != "" {
			r = r.WithContext(rbac.ContextWithResourceCompany(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// companiesHandler groups company HTTP handlers.
type companiesHandler struct {
	companies CompanyStore
	auditor   EventRecorder
}

func newCompaniesHandler(companies CompanyStore, auditor EventRecorder) *companiesHandler {
	return &companiesHandler{companies: companies, auditor: auditor}
}

// List handles GET /api/v1/companies. Platform admins see every company,
// everyone else their own.
func (h *companiesHandler) List(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())

	var (
		companies []*company.Company
		err       error
	)
	if u.IsPlatformAdmin() {
		companies, err = h.companies.ListAll(r.Context())
	} else {
		companies, err = h.companies.ListForUser(r.Context(), u.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list companies")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": companies})
}

// Create handles POST /api/v1/companies. Any authenticated user may create a
// company; the creator becomes its COMPANY_OWNER atomically.
func (h *companiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())

	var in company.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name is required")
		return
	}

	c, err := h.companies.CreateWithOwner(r.Context(), in, u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create company")
		return
	}

	recordEvent(h.auditor, r, "companies.create", "company:"+c.ID, "allowed", "")
	writeJSON(w, http.StatusCreated, c)
}

// Get handles GET /api/v1/companies/{companyID}. Non-members get 404 rather
// than 403 so company ids are not probeable.
func (h *companiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "companyID")

	u, ok := auth.UserFromContext(r.Context())
	if !ok || (!u.IsPlatformAdmin() && u.MembershipIn(id) == nil) {
		writeNotFound(w, "company not found")
		return
	}

	c, err := h.companies.GetByID(r.Context(), id)
	if errors.Is(err, company.ErrNotFound) {
		writeNotFound(w, "company not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load company")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/v1/companies/{companyID}.
func (h *companiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "companyID")

	var in company.UpdateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	c, err := h.companies.Update(r.Context(), id, in)
	if errors.Is(err, company.ErrNotFound) {
		writeNotFound(w, "company not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update company")
		return
	}

	recordEvent(h.auditor, r, "companies.update", "company:"+c.ID, "allowed", "")
	writeJSON(w, http.StatusOK, c)
}

// ListMembers handles GET /api/v1/companies/{companyID}/members.
func (h *companiesHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.companies.ListMembers(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// AddMember handles POST /api/v1/companies/{companyID}/members.
func (h *companiesHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	var req struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "userId is required")
		return
	}
	role, ok := directory.ParseRole(req.Role)
	if !ok || role == directory.RolePlatformAdmin {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid role")
		return
	}

	if err := h.companies.AssignMember(r.Context(), companyID, company.AssignMemberInput{
		UserID: req.UserID,
		Role:   role,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to add member")
		return
	}

	recordEvent(h.auditor, r, "companies.members.add", "company:"+companyID, "allowed", "")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"userId": req.UserID,
		"role":   role,
	})
}

// UpdateMemberRole handles PUT /api/v1/companies/{companyID}/members/{userID}.
func (h *companiesHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	userID := chi.URLParam(r, "userID")

	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	role, ok := directory.ParseRole(req.Role)
	if !ok || role == directory.RolePlatformAdmin {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid role")
		return
	}

	updated, err := h.companies.UpdateMemberRole(r.Context(), companyID, userID, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update member role")
		return
	}
	if !updated {
		writeNotFound(w, "membership not found")
		return
	}

	recordEvent(h.auditor, r, "companies.members.update", "company:"+companyID, "allowed", "")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"role":   role,
	})
}
