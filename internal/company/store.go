// Package company persists companies and their membership rows. Membership
// rows in company_users are the authorization truth for every scoped check.
package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyflow/propertyflow/internal/directory"
)

// ErrNotFound is returned when a company does not exist.
var ErrNotFound = errors.New("company not found")

// Store provides database operations for companies and memberships.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new company store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateWithOwner inserts a company and makes ownerID its COMPANY_OWNER in
// the same transaction, so a company can never exist without an owner.
func (s *Store) CreateWithOwner(ctx context.Context, in CreateInput, ownerID string) (*Company, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c := &Company{}
	err = tx.QueryRow(ctx,
		`INSERT INTO companies (id, name, address, phone, email)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at`,
		uuid.NewString(), in.Name, in.Address, in.Phone, in.Email,
	).Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting company: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO company_users (id, user_id, company_id, role)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), ownerID, c.ID, directory.RoleCompanyOwner)
	if err != nil {
		return nil, fmt.Errorf("inserting owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing company creation: %w", err)
	}
	return c, nil
}

// GetByID retrieves a company by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at
		 FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting company: %w", err)
	}
	return c, nil
}

// Update applies a partial update to a company. Fields left nil in the
// input keep their stored values.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx,
		`UPDATE companies SET
			name = COALESCE($2, name),
			address = COALESCE($3, address),
			phone = COALESCE($4, phone),
			email = COALESCE($5, email)
		 WHERE id = $1
		 RETURNING id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at`,
		id, in.Name, in.Address, in.Phone, in.Email,
	).Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating company: %w", err)
	}
	return c, nil
}

// ListForUser returns the companies the user belongs to, ordered by name.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.name, COALESCE(c.address, ''), COALESCE(c.phone, ''), COALESCE(c.email, ''), c.created_at
		 FROM companies c JOIN company_users cu ON cu.company_id = c.id
		 WHERE cu.user_id = $1
		 ORDER BY c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing companies for user: %w", err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// ListAll returns every company, for platform admin views.
func (s *Store) ListAll(ctx context.Context) ([]*Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at
		 FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func scanCompanies(rows pgx.Rows) ([]*Company, error) {
	companies := []*Company{}
	for rows.Next() {
		c := &Company{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating company rows: %w", err)
	}
	return companies, nil
}

// ListMembers returns the membership rows of a company with user profiles.
func (s *Store) ListMembers(ctx context.Context, companyID string) ([]*Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, cu.role, cu.created_at
		 FROM company_users cu JOIN users u ON cu.user_id = u.id
		 WHERE cu.company_id = $1
		 ORDER BY cu.created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// AssignMember adds a user to a company or updates their role when the
// membership already exists.
func (s *Store) AssignMember(ctx context.Context, companyID string, in AssignMemberInput) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_users (id, user_id, company_id, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, company_id) DO UPDATE SET role = EXCLUDED.role`,
		uuid.NewString(), in.UserID, companyID, in.Role)
	if err != nil {
		return fmt.Errorf("assigning member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes an existing member's role. It reports whether a
// membership row was actually updated.
func (s *Store) UpdateMemberRole(ctx context.Context, companyID, userID string, role directory.Role) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE company_users SET role = $1 WHERE company_id = $2 AND user_id = $3`,
		role, companyID, userID)
	if err != nil {
		return false, fmt.Errorf("updating member role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
