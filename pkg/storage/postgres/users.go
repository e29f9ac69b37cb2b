package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

// UserStore persists users and roles
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates the store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
}

// CreateUser inserts a user, generating its id
func (s *UserStore) CreateUser(ctx context.Context, u *storage.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.RoleID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user with email %s", storage.ErrConflict, u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns a user by id
func (s *UserStore) GetUser(ctx context.Context, id string) (*storage.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail returns a user by email
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *UserStore) getUser(ctx context.Context, where string, arg interface{}) (*storage.User, error) {
	var u storage.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role_id, created_at, updated_at
		FROM users `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns a page of users and the total count
func (s *UserStore) ListUsers(ctx context.Context, p httputil.Pagination) ([]storage.User, int, error) {
	total, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, password_hash, role_id, created_at, updated_at
		FROM users`+listClause(userSortColumns, p))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []storage.User
	for rows.Next() {
		var u storage.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// UpdateUser updates mutable user fields
func (s *UserStore) UpdateUser(ctx context.Context, u *storage.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $1, email = $2, password_hash = $3, role_id = $4, updated_at = $5
		WHERE id = $6`,
		u.Name, u.Email, u.PasswordHash, u.RoleID, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s", storage.ErrConflict, u.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", storage.ErrNotFound, u.ID)
	}
	return nil
}

// DeleteUser removes a user
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", storage.ErrNotFound, id)
	}
	return nil
}

// CreateRole inserts a role
func (s *UserStore) CreateRole(ctx context.Context, name, description string) (*storage.Role, error) {
	role := &storage.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)`,
		role.ID, role.Name, role.Description, role.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: role %s", storage.ErrConflict, name)
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// GetRole returns a role by id
func (s *UserStore) GetRole(ctx context.Context, id string) (*storage.Role, error) {
	return s.getRole(ctx, `WHERE id = $1`, id)
}

// GetRoleByName returns a role by name
func (s *UserStore) GetRoleByName(ctx context.Context, name string) (*storage.Role, error) {
	return s.getRole(ctx, `WHERE name = $1`, name)
}

func (s *UserStore) getRole(ctx context.Context, where string, arg interface{}) (*storage.Role, error) {
	var r storage.Role
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM roles `+where, arg).
		Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: role", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &r, nil
}

// ListRoles returns all roles ordered by name
func (s *UserStore) ListRoles(ctx context.Context) ([]storage.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var out []storage.Role
	for rows.Next() {
		var r storage.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRole updates a role's description
func (s *UserStore) UpdateRole(ctx context.Context, id, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE roles SET description = $1 WHERE id = $2`, description, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: role %s", storage.ErrNotFound, id)
	}
	return nil
}

// DeleteRole removes a role. Users holding it are reassigned to the
// default role first, and its permission grants are dropped.
func (s *UserStore) DeleteRole(ctx context.Context, id, defaultRoleName string) error {
	defaultRole, err := s.GetRoleByName(ctx, defaultRoleName)
	if err != nil {
		return fmt.Errorf("default role %s: %w", defaultRoleName, err)
	}
	if defaultRole.ID == id {
		return fmt.Errorf("%w: cannot delete the default role", storage.ErrConflict)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET role_id = $1 WHERE role_id = $2`, defaultRole.ID, id); err != nil {
		return fmt.Errorf("failed to reassign users: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("failed to drop role grants: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: role %s", storage.ErrNotFound, id)
	}
	return tx.Commit()
}

// SeedRoles inserts the built-in roles if they are missing
func (s *UserStore) SeedRoles(ctx context.Context) error {
	builtins := []struct{ name, description string }{
		{auth.RoleOwner, "Business owner, bypasses permission checks"},
		{auth.RoleDeveloper, "Platform developer, bypasses permission checks"},
		{auth.RoleAdmin, "Platform administrator"},
		{auth.RoleStaff, "Branch staff member"},
		{auth.RoleCustomer, "Customer"},
	}
	for _, b := range builtins {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO roles (id, name, description, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), b.name, b.description, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", b.name, err)
		}
	}
	return nil
}

// isUniqueViolation matches unique constraint errors from postgres and
// sqlite without importing driver error types here.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
