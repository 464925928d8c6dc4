package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/property"
	"github.com/propertyflow/propertyflow/internal/rbac"
	"github.com/propertyflow/propertyflow/internal/tenant"
)

// PropertyStore is the property surface the API depends on. It is satisfied
// by property.Store.
type PropertyStore interface {
	Create(ctx context.Context, companyID string, in property.CreateInput) (*property.Property, error)
	ListByCompanies(ctx context.Context, companyIDs []string) ([]*property.Property, error)
	ListAll(ctx context.Context) ([]*property.Property, error)
	GetByID(ctx context.Context, id string) (*property.Property, error)
	Update(ctx context.Context, id string, in property.UpdateInput) (*property.Property, error)
	Delete(ctx context.Context, id string) (bool, error)
	CreateUnit(ctx context.Context, p *property.Property, in property.CreateUnitInput) (*property.Unit, error)
	ListUnits(ctx context.Context, propertyID string) ([]*property.Unit, error)
}

const propertyKey contextKey = "property"

// propertiesHandler groups property and unit HTTP handlers.
type propertiesHandler struct {
	properties PropertyStore
	auditor    EventRecorder
}

func newPropertiesHandler(properties PropertyStore, auditor EventRecorder) *propertiesHandler {
	return &propertiesHandler{properties: properties, auditor: auditor}
}

// withProperty loads the property named by the route and establishes its
// owning company as the one this request is authorized against. Callers
// outside that company get 404, not 403, so property ids are not probeable.
func (h *propertiesHandler) withProperty(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.properties.GetByID(r.Context(), chi.URLParam(r, "propertyID"))
		if errors.Is(err, property.ErrNotFound) {
			writeNotFound(w, "property not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load property")
			return
		}

		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			writeNotFound(w, "property not found")
			return
		}
		if !u.IsPlatformAdmin() && u.MembershipIn(p.CompanyID) == nil {
			writeNotFound(w, "property not found")
			return
		}

		ctx := rbac.ContextWithResourceCompany(r.Context(), p.CompanyID)
		ctx = context.WithValue(ctx, propertyKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func propertyFromContext(ctx context.Context) *property.Property {
	p, _ := ctx.Value(propertyKey).(*property.Property)
	return p
}

// List handles GET /api/v1/properties. The scope is the active company when
// one resolved, otherwise every company the caller belongs to. Platform
// admins without a company hint see everything.
func (h *propertiesHandler) List(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())

	activeID, source := tenant.ActiveCompanyFromContext(r.Context())

	var (
		properties []*property.Property
		err        error
	)
	switch {
	case u.IsPlatformAdmin():
		// Admins scope only on an explicit hint; their own platform
		// membership resolving as "single" must not hide everything else.
		if activeID != "" && (source == tenant.SourceAdminHint || source == tenant.SourceHeader) {
			properties, err = h.properties.ListByCompanies(r.Context(), []string{activeID})
		} else {
			properties, err = h.properties.ListAll(r.Context())
		}
	case activeID != "":
		properties, err = h.properties.ListByCompanies(r.Context(), []string{activeID})
	default:
		properties, err = h.properties.ListByCompanies(r.Context(), u.CompanyIDs())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list properties")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"properties": properties})
}

// Create handles POST /api/v1/properties. The stored company is the one the
// request was authorized against, never the raw payload value.
func (h *propertiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in property.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Name == "" || in.Address == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name and address are required")
		return
	}

	companyID, _ := tenant.ActiveCompanyFromContext(r.Context())
	if companyID == "" {
		companyID = in.CompanyID
	}
	if companyID == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "companyId is required")
		return
	}

	p, err := h.properties.Create(r.Context(), companyID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create property")
		return
	}

	recordEvent(h.auditor, r, "properties.create", "property:"+p.ID, "allowed", "")
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/v1/properties/{propertyID}.
func (h *propertiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, propertyFromContext(r.Context()))
}

// Update handles PUT /api/v1/properties/{propertyID}.
func (h *propertiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := propertyFromContext(r.Context())

	var in property.UpdateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	updated, err := h.properties.Update(r.Context(), p.ID, in)
	if errors.Is(err, property.ErrNotFound) {
		writeNotFound(w, "property not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update property")
		return
	}

	recordEvent(h.auditor, r, "properties.update", "property:"+p.ID, "allowed", "")
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/properties/{propertyID}.
func (h *propertiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := propertyFromContext(r.Context())

	deleted, err := h.properties.Delete(r.Context(), p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete property")
		return
	}
	if !deleted {
		writeNotFound(w, "property not found")
		return
	}

	recordEvent(h.auditor, r, "properties.delete", "property:"+p.ID, "allowed", "")
	w.WriteHeader(http.StatusNoContent)
}

// CreateUnit handles POST /api/v1/properties/{propertyID}/units.
func (h *propertiesHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	p := propertyFromContext(r.Context())

	var in property.CreateUnitInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Number == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "number is required")
		return
	}

	unit, err := h.properties.CreateUnit(r.Context(), p, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create unit")
		return
	}

	recordEvent(h.auditor, r, "properties.units.create", "property:"+p.ID, "allowed", "")
	writeJSON(w, http.StatusCreated, unit)
}

// ListUnits handles GET /api/v1/properties/{propertyID}/units.
func (h *propertiesHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	p := propertyFromContext(r.Context())

	units, err := h.properties.ListUnits(r.Context(), p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list units")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"units": units})
}
