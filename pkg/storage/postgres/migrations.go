package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS business_settings (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL UNIQUE,
		currency TEXT NOT NULL DEFAULT 'USD',
		timezone TEXT NOT NULL DEFAULT 'UTC',
		language TEXT NOT NULL DEFAULT 'en',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_branches_business ON branches (business_id)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_branch ON devices (branch_id)`,
	`CREATE TABLE IF NOT EXISTS spaces (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		hourly_rate REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'available',
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_spaces_branch ON spaces (branch_id)`,
	`CREATE TABLE IF NOT EXISTS staff_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		salary REAL NOT NULL DEFAULT 0,
		hire_date TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, branch_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_staff_profiles_branch ON staff_profiles (branch_id)`,
	`CREATE TABLE IF NOT EXISTS payrolls (
		id TEXT PRIMARY KEY,
		staff_profile_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		amount REAL NOT NULL,
		period_start TIMESTAMP NOT NULL,
		period_end TIMESTAMP NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payrolls_branch ON payrolls (branch_id)`,
	`CREATE TABLE IF NOT EXISTS pricing_rules (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		space_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		rate_type TEXT NOT NULL DEFAULT 'hourly',
		rate REAL NOT NULL,
		starts_at TIMESTAMP NOT NULL,
		ends_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pricing_rules_branch ON pricing_rules (branch_id)`,
	`CREATE TABLE IF NOT EXISTS storage_usage (
		business_id TEXT PRIMARY KEY,
		bytes_used BIGINT NOT NULL DEFAULT 0,
		object_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the entity tables if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage migration failed: %w", err)
		}
	}
	return nil
}
