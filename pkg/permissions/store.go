package permissions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore implements Store and the permission administration
// surface on top of database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over the given database
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// PermissionIDByName implements Store
func (s *PostgresStore) PermissionIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM permissions WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrPermissionNotDefined, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve permission %s: %w", name, err)
	}
	return id, nil
}

// BranchOverride implements Store
func (s *PostgresStore) BranchOverride(ctx context.Context, userID, permissionID, branchID string) (bool, bool, error) {
	var isAllowed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT is_allowed FROM branch_user_permissions
		WHERE user_id = $1 AND permission_id = $2 AND branch_id = $3`,
		userID, permissionID, branchID).Scan(&isAllowed)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to query branch override: %w", err)
	}
	return isAllowed, true, nil
}

// UserOverride implements Store
func (s *PostgresStore) UserOverride(ctx context.Context, userID, permissionID string) (bool, bool, error) {
	var isAllowed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT is_allowed FROM user_permissions
		WHERE user_id = $1 AND permission_id = $2`,
		userID, permissionID).Scan(&isAllowed)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to query user override: %w", err)
	}
	return isAllowed, true, nil
}

// HasRoleGrant implements Store
func (s *PostgresStore) HasRoleGrant(ctx context.Context, roleID, permissionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query role grant: %w", err)
	}
	return true, nil
}

// HasStaffProfile implements Store
func (s *PostgresStore) HasStaffProfile(ctx context.Context, userID, branchID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM staff_profiles WHERE user_id = $1 AND branch_id = $2`,
		userID, branchID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query staff profile: %w", err)
	}
	return true, nil
}

// HasAnyBranchPermission implements Store
func (s *PostgresStore) HasAnyBranchPermission(ctx context.Context, userID, branchID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM branch_user_permissions WHERE user_id = $1 AND branch_id = $2 LIMIT 1`,
		userID, branchID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query branch permissions: %w", err)
	}
	return true, nil
}

// CreatePermission inserts a permission, generating its id
func (s *PostgresStore) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	p := &Permission{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Description, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission %s: %w", name, err)
	}
	return p, nil
}

// GetPermission returns a permission by id
func (s *PostgresStore) GetPermission(ctx context.Context, id string) (*Permission, error) {
	var p Permission
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: permission %s", ErrResourceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

// ListPermissions returns all permissions ordered by name
func (s *PostgresStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePermission updates a permission's description
func (s *PostgresStore) UpdatePermission(ctx context.Context, id, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE permissions SET description = $1 WHERE id = $2`, description, id)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: permission %s", ErrResourceNotFound, id)
	}
	return nil
}

// DeletePermission removes a permission and all grants and overrides
// referencing it.
func (s *PostgresStore) DeletePermission(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM role_permissions WHERE permission_id = $1`,
		`DELETE FROM user_permissions WHERE permission_id = $1`,
		`DELETE FROM branch_user_permissions WHERE permission_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to cascade permission delete: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: permission %s", ErrResourceNotFound, id)
	}
	return tx.Commit()
}

// GrantRole grants a permission to a role, idempotently
func (s *PostgresStore) GrantRole(ctx context.Context, roleID, permissionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`,
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to grant permission to role: %w", err)
	}
	return nil
}

// RevokeRole removes a role grant
func (s *PostgresStore) RevokeRole(ctx context.Context, roleID, permissionID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to revoke role grant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: role grant", ErrResourceNotFound)
	}
	return nil
}

// ListRoleGrants returns the permissions granted to a role
func (s *PostgresStore) ListRoleGrants(ctx context.Context, roleID string) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role grants: %w", err)
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role grant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetUserOverride creates or updates a user-level override
func (s *PostgresStore) SetUserOverride(ctx context.Context, o UserOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_permissions (user_id, permission_id, is_allowed)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, permission_id) DO UPDATE SET is_allowed = $3`,
		o.UserID, o.PermissionID, o.IsAllowed)
	if err != nil {
		return fmt.Errorf("failed to set user override: %w", err)
	}
	return nil
}

// DeleteUserOverride removes a user-level override
func (s *PostgresStore) DeleteUserOverride(ctx context.Context, userID, permissionID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`,
		userID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to delete user override: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user override", ErrResourceNotFound)
	}
	return nil
}

// ListUserOverrides returns all overrides for a user
func (s *PostgresStore) ListUserOverrides(ctx context.Context, userID string) ([]UserOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, permission_id, is_allowed
		FROM user_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user overrides: %w", err)
	}
	defer rows.Close()

	var out []UserOverride
	for rows.Next() {
		var o UserOverride
		if err := rows.Scan(&o.UserID, &o.PermissionID, &o.IsAllowed); err != nil {
			return nil, fmt.Errorf("failed to scan user override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetBranchOverride creates or updates a branch-level override
func (s *PostgresStore) SetBranchOverride(ctx context.Context, o BranchOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branch_user_permissions (user_id, permission_id, branch_id, is_allowed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, permission_id, branch_id) DO UPDATE SET is_allowed = $4`,
		o.UserID, o.PermissionID, o.BranchID, o.IsAllowed)
	if err != nil {
		return fmt.Errorf("failed to set branch override: %w", err)
	}
	return nil
}

// DeleteBranchOverride removes a branch-level override
func (s *PostgresStore) DeleteBranchOverride(ctx context.Context, userID, permissionID, branchID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM branch_user_permissions
		WHERE user_id = $1 AND permission_id = $2 AND branch_id = $3`,
		userID, permissionID, branchID)
	if err != nil {
		return fmt.Errorf("failed to delete branch override: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: branch override", ErrResourceNotFound)
	}
	return nil
}

// ListBranchOverrides returns all overrides for a user at a branch
func (s *PostgresStore) ListBranchOverrides(ctx context.Context, userID, branchID string) ([]BranchOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, permission_id, branch_id, is_allowed
		FROM branch_user_permissions
		WHERE user_id = $1 AND branch_id = $2`, userID, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branch overrides: %w", err)
	}
	defer rows.Close()

	var out []BranchOverride
	for rows.Next() {
		var o BranchOverride
		if err := rows.Scan(&o.UserID, &o.PermissionID, &o.BranchID, &o.IsAllowed); err != nil {
			return nil, fmt.Errorf("failed to scan branch override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
