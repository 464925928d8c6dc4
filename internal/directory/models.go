package directory

import "time"

// Role is a membership role within a company. PLATFORM_ADMIN is a superuser
// role that bypasses per-company checks everywhere.
type Role string

const (
	RolePlatformAdmin   Role = "PLATFORM_ADMIN"
	RoleCompanyOwner    Role = "COMPANY_OWNER"
	RolePropertyManager Role = "PROPERTY_MANAGER"
	RoleMaintenance     Role = "MAINTENANCE"
	RoleTenant          Role = "TENANT"
)

// ParseRole returns the Role for s and whether it is a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePlatformAdmin, RoleCompanyOwner, RolePropertyManager, RoleMaintenance, RoleTenant:
		return Role(s), true
	}
	return "", false
}

// RoleFromClaims picks the first recognized role out of the identity
// provider's role claims, defaulting to TENANT. The result is only ever used
// as the legacy user-level role label; membership roles are the sole
// authorization truth.
func RoleFromClaims(claims []string) Role {
	for _, c := range claims {
		if r, ok := ParseRole(c); ok {
			return r
		}
	}
	return RoleTenant
}

// Membership is a user's role within one company.
type Membership struct {
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
	Role        Role   `json:"role"`
}

// User is the internal user record, keyed by the identity provider's stable
// subject id. Email and name mirror the identity provider and are
// overwritten on every verified request.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Role         Role         `json:"role"` // legacy label, not authorization truth
	PasswordHash string       `json:"-"`
	Memberships  []Membership `json:"memberships"`
	CreatedAt    time.Time    `json:"created_at"`
}

// IsPlatformAdmin reports whether any membership carries PLATFORM_ADMIN.
func (u *User) IsPlatformAdmin() bool {
	for _, m := range u.Memberships {
		if m.Role == RolePlatformAdmin {
			return true
		}
	}
	return false
}

// MembershipIn returns the user's membership in the given company, or nil.
func (u *User) MembershipIn(companyID string) *Membership {
	for i := range u.Memberships {
		if u.Memberships[i].CompanyID == companyID {
			return &u.Memberships[i]
		}
	}
	return nil
}

// CompanyIDs returns the ids of all companies the user belongs to.
func (u *User) CompanyIDs() []string {
	ids := make([]string, len(u.Memberships))
	for i, m := range u.Memberships {
		ids[i] = m.CompanyID
	}
	return ids
}

// CreateUserInput holds the fields for an admin-created local user.
type CreateUserInput struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// Session is an active local-provider session.
type Session struct {
	TokenHash string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
