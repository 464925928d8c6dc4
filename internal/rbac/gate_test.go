package rbac

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/tenant"
)

func userWith(memberships ...directory.Membership) *directory.User {
	return &directory.User{ID: "u1", Email: "u1@example.com", Memberships: memberships}
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func withUser(req *http.Request, u *directory.User) *http.Request {
	return req.WithContext(auth.ContextWithUser(req.Context(), u))
}

func withActiveCompany(req *http.Request, id string) *http.Request {
	return req.WithContext(tenant.ContextWithActiveCompany(req.Context(), id, tenant.SourceHeader))
}

func TestRequirePlatformAdminBypass(t *testing.T) {
	gate := NewGate(nil)
	u := userWith(directory.Membership{CompanyID: "platform", Role: directory.RolePlatformAdmin})

	req := withUser(httptest.NewRequest(http.MethodDelete, "/properties/p1", nil), u)
	req = withActiveCompany(req, "someone-elses-company")

	rec, called := serve(t, gate.Require(directory.RoleCompanyOwner), req)
	if !called || rec.Code != http.StatusOK {
		t.Errorf("platform admin should bypass role checks, got %d", rec.Code)
	}
}

func TestRequireRoleInActiveCompany(t *testing.T) {
	gate := NewGate(nil)
	u := userWith(
		directory.Membership{CompanyID: "c1", Role: directory.RoleCompanyOwner},
		directory.Membership{CompanyID: "c2", Role: directory.RoleTenant},
	)

	t.Run("allowed role in effective company", func(t *testing.T) {
		req := withActiveCompany(withUser(httptest.NewRequest(http.MethodPost, "/properties", nil), u), "c1")
		rec, called := serve(t, gate.Require(directory.RoleCompanyOwner, directory.RolePropertyManager), req)
		if !called || rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("allowed role elsewhere does not help", func(t *testing.T) {
		// Owner of c1 acting in c2 where they are only a tenant.
		req := withActiveCompany(withUser(httptest.NewRequest(http.MethodPost, "/properties", nil), u), "c2")
		rec, called := serve(t, gate.Require(directory.RoleCompanyOwner), req)
		if called || rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("no membership in effective company", func(t *testing.T) {
		req := withActiveCompany(withUser(httptest.NewRequest(http.MethodPost, "/properties", nil), u), "c9")
		rec, called := serve(t, gate.Require(directory.RoleCompanyOwner), req)
		if called || rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})
}

func TestRequireResourceCompanyOverridesEverything(t *testing.T) {
	gate := NewGate(nil)
	u := userWith(
		directory.Membership{CompanyID: "c1", Role: directory.RoleCompanyOwner},
		directory.Membership{CompanyID: "c2", Role: directory.RoleTenant},
	)

	// Client claims c1 via header and body; the resource belongs to c2.
	body := strings.NewReader(`{"companyId":"c1","name":"x"}`)
	req := httptest.NewRequest(http.MethodPut, "/properties/p1", body)
	req = withActiveCompany(withUser(req, u), "c1")
	req = req.WithContext(ContextWithResourceCompany(req.Context(), "c2"))

	rec, called := serve(t, gate.Require(directory.RoleCompanyOwner), req)
	if called || rec.Code != http.StatusForbidden {
		t.Errorf("resource company must take priority, got %d", rec.Code)
	}
}

func TestRequireURLParamCompany(t *testing.T) {
	gate := NewGate(nil)
	u := userWith(directory.Membership{CompanyID: "c1", Role: directory.RoleCompanyOwner})

	router := chi.NewRouter()
	router.With(gate.Require(directory.RoleCompanyOwner)).
		Get("/companies/{companyID}/members", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	t.Run("member company", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/companies/c1/members", nil), u)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("foreign company", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/companies/c9/members", nil), u)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})
}

func TestRequireBodyCompany(t *testing.T) {
	gate := NewGate(nil)
	u := userWith(
		directory.Membership{CompanyID: "c1", Role: directory.RolePropertyManager},
		directory.Membership{CompanyID: "c2", Role: directory.RoleTenant},
	)

	t.Run("forged body company is checked, not trusted", func(t *testing.T) {
		// Manager of c1 posting a payload claiming c2.
		body := strings.NewReader(`{"companyId":"c2","name":"Building A"}`)
		req := withUser(httptest.NewRequest(http.MethodPost, "/properties", body), u)
		rec, called := serve(t, gate.Require(directory.RolePropertyManager), req)
		if called || rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 for body company without role, got %d", rec.Code)
		}
	})

	t.Run("body is restored for the handler", func(t *testing.T) {
		payload := `{"companyId":"c1","name":"Building A"}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/properties", strings.NewReader(payload)), u)

		var seen string
		handler := gate.Require(directory.RolePropertyManager)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				seen = string(b)
			}))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen != payload {
			t.Errorf("handler should see the original body, got %q", seen)
		}
	})
}

func TestRequireCoarseFallback(t *testing.T) {
	gate := NewGate(nil)

	t.Run("allowed role anywhere admits", func(t *testing.T) {
		u := userWith(
			directory.Membership{CompanyID: "c1", Role: directory.RoleTenant},
			directory.Membership{CompanyID: "c2", Role: directory.RoleMaintenance},
		)
		req := withUser(httptest.NewRequest(http.MethodGet, "/workorders", nil), u)
		rec, called := serve(t, gate.Require(directory.RoleMaintenance), req)
		if !called || rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("no allowed role anywhere denies", func(t *testing.T) {
		u := userWith(directory.Membership{CompanyID: "c1", Role: directory.RoleTenant})
		req := withUser(httptest.NewRequest(http.MethodGet, "/workorders", nil), u)
		rec, called := serve(t, gate.Require(directory.RoleCompanyOwner), req)
		if called || rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})
}

func TestRequireWithoutUser(t *testing.T) {
	gate := NewGate(nil)
	rec, called := serve(t, gate.Require(directory.RoleTenant), httptest.NewRequest(http.MethodGet, "/", nil))
	if called || rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without authenticated user, got %d", rec.Code)
	}
}

func TestRequireObservesDenials(t *testing.T) {
	var reasons []string
	gate := NewGate(func(r *http.Request, reason string) { reasons = append(reasons, reason) })

	u := userWith(directory.Membership{CompanyID: "c1", Role: directory.RoleTenant})
	req := withActiveCompany(withUser(httptest.NewRequest(http.MethodPost, "/properties", nil), u), "c1")
	serve(t, gate.Require(directory.RoleCompanyOwner), req)

	req2 := withUser(httptest.NewRequest(http.MethodGet, "/workorders", nil), u)
	serve(t, gate.Require(directory.RoleCompanyOwner), req2)

	if len(reasons) != 2 || reasons[0] != "company_role" || reasons[1] != "no_matching_role" {
		t.Errorf("unexpected denial reasons: %v", reasons)
	}
}

func TestResourceCompanyContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := ResourceCompanyFromContext(ctx); ok {
		t.Error("expected no resource company on empty context")
	}
	ctx = ContextWithResourceCompany(ctx, "c1")
	id, ok := ResourceCompanyFromContext(ctx)
	if !ok || id != "c1" {
		t.Errorf("expected c1, got (%q, %v)", id, ok)
	}
}
