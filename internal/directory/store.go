package directory

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/propertyflow/propertyflow/internal/identity"
)

// Store provides database operations for users, memberships, and local
// sessions. It is the only writer of user profile fields.
type Store struct {
	pool            *pgxpool.Pool
	sessionDuration time.Duration
}

// NewStore creates a new directory store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, sessionDuration time.Duration) *Store {
	if sessionDuration <= 0 {
		sessionDuration = 7 * 24 * time.Hour
	}
	return &Store{pool: pool, sessionDuration: sessionDuration}
}

// Sync upserts the user record for a verified identity and returns it with
// memberships loaded. It runs on every authenticated request: email and name
// always mirror the identity provider, while the legacy role label is set
// only on first insert and never updated from claims afterwards.
func (s *Store) Sync(ctx context.Context, ident *identity.Identity) (*User, error) {
	name := ident.Name
	if name == "" {
		name = displayNameFromEmail(ident.Email)
	}

	u := &User{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
		 RETURNING id, email, name, role, created_at`,
		ident.Subject, ident.Email, name, RoleFromClaims(ident.RoleClaims),
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("syncing user: %w", err)
	}

	if err := s.loadMemberships(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user and their memberships by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, role, COALESCE(password_hash, ''), created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	if err := s.loadMemberships(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail retrieves a user by email address, used by local login.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, role, COALESCE(password_hash, ''), created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	if err := s.loadMemberships(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns all users with memberships, ordered by created_at DESC.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, role, created_at
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	for _, u := range users {
		if err := s.loadMemberships(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// CreateLocal inserts a user with a bcrypt-hashed password for the local
// identity provider. ID defaults to a fresh UUID when not supplied.
func (s *Store) CreateLocal(ctx context.Context, in CreateUserInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	role := in.Role
	if role == "" {
		role = RoleTenant
	}
	name := in.Name
	if name == "" {
		name = displayNameFromEmail(in.Email)
	}

	u := &User{Memberships: []Membership{}}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, email, name, role, created_at`,
		id, in.Email, name, role, string(hash),
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// loadMemberships fills u.Memberships from the company_users join table.
func (s *Store) loadMemberships(ctx context.Context, u *User) error {
	rows, err := s.pool.Query(ctx,
		`SELECT cu.company_id, c.name, cu.role
		 FROM company_users cu JOIN companies c ON cu.company_id = c.id
		 WHERE cu.user_id = $1
		 ORDER BY cu.created_at`, u.ID)
	if err != nil {
		return fmt.Errorf("loading memberships: %w", err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.CompanyID, &m.CompanyName, &m.Role); err != nil {
			return fmt.Errorf("scanning membership row: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating membership rows: %w", err)
	}

	u.Memberships = memberships
	return nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func CheckPassword(u *User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CreateSession creates a new session for the given user. It returns the
// opaque plaintext token (to be sent to the client) and the stored session.
func (s *Store) CreateSession(ctx context.Context, userID string) (string, *Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}
	plaintext := hex.EncodeToString(b)
	tokenHash := hashToken(plaintext)

	now := time.Now()
	expiresAt := now.Add(s.sessionDuration)

	sess := &Session{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING token_hash, user_id, created_at, expires_at`,
		tokenHash, userID, now, expiresAt,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("creating session: %w", err)
	}

	return plaintext, sess, nil
}

// GetSessionUser looks up a session by its plaintext token and returns the
// associated user. Expired or unknown sessions return an error.
func (s *Store) GetSessionUser(ctx context.Context, plaintext string) (*User, error) {
	tokenHash := hashToken(plaintext)

	u := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT u.id, u.email, u.name, u.role, u.created_at
		 FROM sessions s JOIN users u ON s.user_id = u.id
		 WHERE s.token_hash = $1 AND s.expires_at > now()`,
		tokenHash,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting session user: %w", err)
	}
	return u, nil
}

// DeleteSession removes a session by its plaintext token.
func (s *Store) DeleteSession(ctx context.Context, plaintext string) error {
	tokenHash := hashToken(plaintext)
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CleanExpiredSessions deletes all sessions that have expired.
func (s *Store) CleanExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

func displayNameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
