package property

import "time"

// Property is a building or complex managed by one company. CompanyID is
// stamped server-side from the authorization decision, never taken from the
// client payload.
type Property struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"companyId"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zipCode"`
	PropertyType string    `json:"propertyType"`
	CreatedAt    time.Time `json:"created_at"`
}

// Unit is a rentable unit within a property. It carries the owning company
// id denormalized from its property so unit queries scope the same way.
type Unit struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"propertyId"`
	CompanyID  string    `json:"companyId"`
	Number     string    `json:"number"`
	Bedrooms   int       `json:"bedrooms"`
	Bathrooms  float64   `json:"bathrooms"`
	Sqft       int       `json:"sqft"`
	RentAmount float64   `json:"rentAmount"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateInput holds the client-supplied fields for a new property. The
// companyId field is accepted for authorization only; the stored company is
// always the one the request was authorized against.
type CreateInput struct {
	CompanyID    string `json:"companyId"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	PropertyType string `json:"propertyType"`
}

// UpdateInput holds a partial update for a property. Nil fields are left
// unchanged. The owning company is never updatable.
type UpdateInput struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	ZipCode      *string `json:"zipCode"`
	PropertyType *string `json:"propertyType"`
}

// CreateUnitInput holds the client-supplied fields for a new unit.
type CreateUnitInput struct {
	Number     string  `json:"number"`
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	Sqft       int     `json:"sqft"`
	RentAmount float64 `json:"rentAmount"`
}
