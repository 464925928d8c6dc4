package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/propertyflow/propertyflow/internal/config"
	"github.com/propertyflow/propertyflow/internal/directory"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo companies, users, and properties",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const (
	seedSystemCompanyID = "00000000-0000-0000-0000-000000000000"
	seedTestCompanyID   = "11111111-1111-1111-1111-111111111111"
	seedPropertyID      = "22222222-2222-2222-2222-222222222222"
	seedPassword        = "password123"
)

type seedUser struct {
	id        string
	email     string
	name      string
	role      directory.Role
	companyID string
}

var seedUsers = []seedUser{
	{
		id:        "b4d80438-3001-70e6-f642-0d2bce3b7f7e",
		email:     "admin@test.com",
		name:      "System Admin",
		role:      directory.RolePlatformAdmin,
		companyID: seedSystemCompanyID,
	},
	{
		id:        "f428b478-b031-709f-e1d9-e65e6913e17d",
		email:     "landlord@test.com",
		name:      "Test Landlord",
		role:      directory.RoleCompanyOwner,
		companyID: seedTestCompanyID,
	},
	{
		id:        "d4c82478-7041-70e4-bd55-02ca501321ab",
		email:     "tenant@test.com",
		name:      "Test Tenant",
		role:      directory.RoleTenant,
		companyID: seedTestCompanyID,
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	companies := map[string]string{
		seedSystemCompanyID: "System Admin Group",
		seedTestCompanyID:   "Test Property Management",
	}
	for id, name := range companies {
		if _, err := pool.Exec(ctx,
			`INSERT INTO companies (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO NOTHING`, id, name); err != nil {
			return fmt.Errorf("seeding company %q: %w", name, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	for _, u := range seedUsers {
		if _, err := pool.Exec(ctx,
			`INSERT INTO users (id, email, name, role, password_hash)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name`,
			u.id, u.email, u.name, u.role, string(hash)); err != nil {
			return fmt.Errorf("seeding user %q: %w", u.email, err)
		}

		if _, err := pool.Exec(ctx,
			`INSERT INTO company_users (id, user_id, company_id, role)
			 VALUES (gen_random_uuid(), $1, $2, $3)
			 ON CONFLICT (user_id, company_id) DO UPDATE SET role = EXCLUDED.role`,
			u.id, u.companyID, u.role); err != nil {
			return fmt.Errorf("seeding membership for %q: %w", u.email, err)
		}

		slog.Info("seeded user", "email", u.email, "role", u.role, "company", u.companyID)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO properties (id, company_id, name, address, city, state, zip_code, property_type)
		 VALUES ($1, $2, 'Maple Court Apartments', '100 Maple Ct', 'Springfield', 'IL', '62704', 'APARTMENT')
		 ON CONFLICT (id) DO NOTHING`,
		seedPropertyID, seedTestCompanyID); err != nil {
		return fmt.Errorf("seeding property: %w", err)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Companies: %d\n", len(companies))
	fmt.Printf("Users:     %d (password: %s)\n", len(seedUsers), seedPassword)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/auth/login -d '{\"email\":\"landlord@test.com\",\"password\":\"%s\"}'\n", seedPassword)
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' http://localhost:8080/api/v1/properties\n")

	return nil
}
