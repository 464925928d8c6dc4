// Package property persists properties and units. Every read is scoped to a
// set of company ids except GetByID, which exists so the ownership of a
// targeted resource can be established before authorization.
package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a property or unit does not exist.
var ErrNotFound = errors.New("property not found")

// Store provides database operations for properties and units.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new property store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a property owned by companyID. The company comes from the
// caller's authorization decision, not from in.CompanyID.
func (s *Store) Create(ctx context.Context, companyID string, in CreateInput) (*Property, error) {
	p := &Property{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO properties (id, company_id, name, address, city, state, zip_code, property_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, company_id, name, address, city, state, zip_code, property_type, created_at`,
		uuid.NewString(), companyID, in.Name, in.Address, in.City, in.State, in.ZipCode, in.PropertyType,
	).Scan(&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.City, &p.State, &p.ZipCode, &p.PropertyType, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting property: %w", err)
	}
	return p, nil
}

// ListByCompanies returns all properties owned by any of the given
// companies, newest first. An empty set yields an empty list.
func (s *Store) ListByCompanies(ctx context.Context, companyIDs []string) ([]*Property, error) {
	if len(companyIDs) == 0 {
		return []*Property{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, name, address, city, state, zip_code, property_type, created_at
		 FROM properties WHERE company_id = ANY($1)
		 ORDER BY created_at DESC`, companyIDs)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

// ListAll returns every property, for platform admin views.
func (s *Store) ListAll(ctx context.Context) ([]*Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, name, address, city, state, zip_code, property_type, created_at
		 FROM properties ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

// GetByID retrieves a property regardless of company. Callers must check
// the returned CompanyID against the requester's memberships before using it.
func (s *Store) GetByID(ctx context.Context, id string) (*Property, error) {
	p := &Property{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, company_id, name, address, city, state, zip_code, property_type, created_at
		 FROM properties WHERE id = $1`, id,
	).Scan(&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.City, &p.State, &p.ZipCode, &p.PropertyType, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}
	return p, nil
}

// Update applies a partial update to a property. Fields left nil in the
// input keep their stored values.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Property, error) {
	p := &Property{}
	err := s.pool.QueryRow(ctx,
		`UPDATE properties SET
			name = COALESCE($2, name),
			address = COALESCE($3, address),
			city = COALESCE($4, city),
			state = COALESCE($5, state),
			zip_code = COALESCE($6, zip_code),
			property_type = COALESCE($7, property_type)
		 WHERE id = $1
		 RETURNING id, company_id, name, address, city, state, zip_code, property_type, created_at`,
		id, in.Name, in.Address, in.City, in.State, in.ZipCode, in.PropertyType,
	).Scan(&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.City, &p.State, &p.ZipCode, &p.PropertyType, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating property: %w", err)
	}
	return p, nil
}

// Delete removes a property and, via cascade, its units. It reports whether
// a row was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting property: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateUnit inserts a unit under a property, copying the property's owning
// company so unit rows are scopable without a join.
func (s *Store) CreateUnit(ctx context.Context, p *Property, in CreateUnitInput) (*Unit, error) {
	u := &Unit{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO units (id, property_id, company_id, number, bedrooms, bathrooms, sqft, rent_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, property_id, company_id, number, bedrooms, bathrooms, sqft, rent_amount, created_at`,
		uuid.NewString(), p.ID, p.CompanyID, in.Number, in.Bedrooms, in.Bathrooms, in.Sqft, in.RentAmount,
	).Scan(&u.ID, &u.PropertyID, &u.CompanyID, &u.Number, &u.Bedrooms, &u.Bathrooms, &u.Sqft, &u.RentAmount, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting unit: %w", err)
	}
	return u, nil
}

// ListUnits returns the units of a property ordered by unit number.
func (s *Store) ListUnits(ctx context.Context, propertyID string) ([]*Unit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, property_id, company_id, number, bedrooms, bathrooms, sqft, rent_amount, created_at
		 FROM units WHERE property_id = $1
		 ORDER BY number`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	units := []*Unit{}
	for rows.Next() {
		u := &Unit{}
		if err := rows.Scan(&u.ID, &u.PropertyID, &u.CompanyID, &u.Number, &u.Bedrooms, &u.Bathrooms, &u.Sqft, &u.RentAmount, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning unit row: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unit rows: %w", err)
	}
	return units, nil
}

func scanProperties(rows pgx.Rows) ([]*Property, error) {
	properties := []*Property{}
	for rows.Next() {
		p := &Property{}
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Address, &p.City, &p.State, &p.ZipCode, &p.PropertyType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning property row: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating property rows: %w", err)
	}
	return properties, nil
}
