package permissions

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema holds the DDL for the permission tables. staff_profiles is
// created by the entity storage migrations; the staff lookup here only
// reads it.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS permissions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS role_permissions (
		role_id TEXT NOT NULL,
		permission_id TEXT NOT NULL,
		PRIMARY KEY (role_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		user_id TEXT NOT NULL,
		permission_id TEXT NOT NULL,
		is_allowed BOOLEAN NOT NULL,
		PRIMARY KEY (user_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS branch_user_permissions (
		user_id TEXT NOT NULL,
		permission_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		is_allowed BOOLEAN NOT NULL,
		PRIMARY KEY (user_id, permission_id, branch_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_branch_user_permissions_user_branch
		ON branch_user_permissions (user_id, branch_id)`,
	`CREATE TABLE IF NOT EXISTS blacklisted_tokens (
		token_hash TEXT PRIMARY KEY,
		expires_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the permission tables if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("permission migration failed: %w", err)
		}
	}
	return nil
}
