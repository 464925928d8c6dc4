package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/directory"
)

func memberOf(roles map[string]directory.Role) *directory.User {
	u := &directory.User{ID: "u1", Email: "u1@example.com"}
	for id, role := range roles {
		u.Memberships = append(u.Memberships, directory.Membership{CompanyID: id, Role: role})
	}
	return u
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		user       *directory.User
		hint       string
		wantID     string
		wantSource Source
	}{
		{
			name:       "hint matching a membership wins",
			user:       memberOf(map[string]directory.Role{"c1": directory.RoleTenant, "c2": directory.RoleCompanyOwner}),
			hint:       "c2",
			wantID:     "c2",
			wantSource: SourceHeader,
		},
		{
			name:       "hint outside memberships is ignored",
			user:       memberOf(map[string]directory.Role{"c1": directory.RoleTenant, "c2": directory.RoleTenant}),
			hint:       "c9",
			wantID:     "",
			wantSource: SourceNone,
		},
		{
			name:       "ignored hint still falls back to sole membership",
			user:       memberOf(map[string]directory.Role{"c1": directory.RoleCompanyOwner}),
			hint:       "c9",
			wantID:     "c1",
			wantSource: SourceSingle,
		},
		{
			name:       "platform admin hint honored without membership",
			user:       memberOf(map[string]directory.Role{"platform": directory.RolePlatformAdmin}),
			hint:       "c7",
			wantID:     "c7",
			wantSource: SourceAdminHint,
		},
		{
			name:       "single membership without hint",
			user:       memberOf(map[string]directory.Role{"c1": directory.RoleMaintenance}),
			hint:       "",
			wantID:     "c1",
			wantSource: SourceSingle,
		},
		{
			name:       "multiple memberships without hint resolve to none",
			user:       memberOf(map[string]directory.Role{"c1": directory.RoleTenant, "c2": directory.RoleTenant}),
			hint:       "",
			wantID:     "",
			wantSource: SourceNone,
		},
		{
			name:       "no memberships",
			user:       &directory.User{ID: "u1"},
			hint:       "",
			wantID:     "",
			wantSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, source := Resolve(tt.user, tt.hint)
			if id != tt.wantID || source != tt.wantSource {
				t.Errorf("Resolve() = (%q, %q); want (%q, %q)", id, source, tt.wantID, tt.wantSource)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	user := memberOf(map[string]directory.Role{"c1": directory.RoleCompanyOwner})

	var gotID string
	var gotSource Source
	var observed []Source
	handler := Middleware(func(s Source) { observed = append(observed, s) })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID, gotSource = ActiveCompanyFromContext(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID != "c1" || gotSource != SourceSingle {
		t.Errorf("expected (c1, single), got (%q, %q)", gotID, gotSource)
	}
	if len(observed) != 1 || observed[0] != SourceSingle {
		t.Errorf("expected one observed resolution, got %v", observed)
	}
}

func TestMiddlewareHeaderHint(t *testing.T) {
	user := memberOf(map[string]directory.Role{"c1": directory.RoleTenant, "c2": directory.RoleTenant})

	var gotID string
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = ActiveCompanyFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	req.Header.Set(Header, "c2")
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID != "c2" {
		t.Errorf("expected c2, got %q", gotID)
	}
}

func TestMiddlewareWithoutUser(t *testing.T) {
	called := false
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if id, source := ActiveCompanyFromContext(r.Context()); id != "" || source != SourceNone {
			t.Errorf("expected no active company, got (%q, %q)", id, source)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler should still run without an authenticated user")
	}
}
