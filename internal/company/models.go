package company

import (
	"time"

	"github.com/propertyflow/propertyflow/internal/directory"
)

// Company is a management company, the tenancy boundary for all scoped data.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a user's membership row as exposed on the members listing.
type Member struct {
	UserID    string         `json:"userId"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      directory.Role `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateInput holds the fields accepted when creating a company.
type CreateInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// UpdateInput holds a partial update for a company. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
}

// AssignMemberInput adds or updates a user's membership in a company.
type AssignMemberInput struct {
	UserID string         `json:"userId"`
	Role   directory.Role `json:"role"`
}
