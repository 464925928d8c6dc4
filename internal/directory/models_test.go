package directory

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"PLATFORM_ADMIN", RolePlatformAdmin, true},
		{"COMPANY_OWNER", RoleCompanyOwner, true},
		{"PROPERTY_MANAGER", RolePropertyManager, true},
		{"MAINTENANCE", RoleMaintenance, true},
		{"TENANT", RoleTenant, true},
		{"tenant", "", false},
		{"ADMIN", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRoleFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims []string
		want   Role
	}{
		{"first recognized wins", []string{"PLATFORM_ADMIN", "TENANT"}, RolePlatformAdmin},
		{"skips unknown values", []string{"us-east-1_Abc", "COMPANY_OWNER"}, RoleCompanyOwner},
		{"no claims defaults to tenant", nil, RoleTenant},
		{"only unknown values defaults to tenant", []string{"group-a", "group-b"}, RoleTenant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleFromClaims(tt.claims); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUserIsPlatformAdmin(t *testing.T) {
	u := &User{Memberships: []Membership{
		{CompanyID: "c1", Role: RoleTenant},
		{CompanyID: "c2", Role: RolePlatformAdmin},
	}}
	if !u.IsPlatformAdmin() {
		t.Error("expected platform admin")
	}

	u2 := &User{
		Role:        RolePlatformAdmin, // legacy label must not grant admin
		Memberships: []Membership{{CompanyID: "c1", Role: RoleTenant}},
	}
	if u2.IsPlatformAdmin() {
		t.Error("legacy role label should not grant platform admin")
	}
}

func TestUserMembershipIn(t *testing.T) {
	u := &User{Memberships: []Membership{
		{CompanyID: "c1", Role: RoleCompanyOwner},
		{CompanyID: "c2", Role: RoleTenant},
	}}

	m := u.MembershipIn("c2")
	if m == nil || m.Role != RoleTenant {
		t.Fatalf("expected tenant membership in c2, got %+v", m)
	}
	if u.MembershipIn("c3") != nil {
		t.Error("expected nil membership for unknown company")
	}
}

func TestUserCompanyIDs(t *testing.T) {
	u := &User{Memberships: []Membership{
		{CompanyID: "c1"}, {CompanyID: "c2"},
	}}
	ids := u.CompanyIDs()
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("unexpected company ids: %v", ids)
	}

	empty := &User{}
	if got := empty.CompanyIDs(); len(got) != 0 {
		t.Errorf("expected no company ids, got %v", got)
	}
}

func TestCheckPassword(t *testing.T) {
	// Hash of "secret" is exercised through CreateLocal in integration; here
	// only the empty-hash guard matters.
	u := &User{}
	if CheckPassword(u, "anything") {
		t.Error("user without password hash must never authenticate")
	}
}

func TestHashToken(t *testing.T) {
	h1 := hashToken("tok")
	h2 := hashToken("tok")
	if h1 != h2 {
		t.Error("token hash should be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
	if h1 == "tok" {
		t.Error("stored hash must differ from the plaintext token")
	}
}

func TestDisplayNameFromEmail(t *testing.T) {
	if got := displayNameFromEmail("owner@acme.com"); got != "owner" {
		t.Errorf("expected owner, got %q", got)
	}
	if got := displayNameFromEmail("no-at-sign"); got != "no-at-sign" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
