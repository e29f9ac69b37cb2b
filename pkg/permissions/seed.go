package permissions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// seedEntry pairs a permission name with its description
type seedEntry struct {
	Name        string
	Description string
}

// Catalog is the full set of permissions the service checks. Seeding is
// idempotent; existing rows are left untouched.
var Catalog = []seedEntry{
	{"REGISTER-OWNER", "Register business owner"},
	{"REGISTER-ADMIN", "Register admin user"},
	{"REGISTER-STAFF", "Register staff user"},

	{"CREATE-BRANCHES", "Create branches"},
	{"VIEW-BRANCHES", "View branches"},
	{"UPDATE-BRANCHES", "Update branches"},
	{"DELETE-BRANCHES", "Delete branches"},

	{"CREATE-BUSINESSES", "Create businesses"},
	{"VIEW-BUSINESSES", "View businesses"},
	{"UPDATE-BUSINESSES", "Update businesses"},
	{"DELETE-BUSINESSES", "Delete businesses"},

	{"CREATE-BUSINESS-SETTINGS", "Create business settings"},
	{"VIEW-BUSINESS-SETTINGS", "View business settings"},
	{"UPDATE-BUSINESS-SETTINGS", "Update business settings"},
	{"DELETE-BUSINESS-SETTINGS", "Delete business settings"},

	{"CREATE-DEVICES", "Create devices"},
	{"VIEW-DEVICES", "View devices"},
	{"UPDATE-DEVICES", "Update devices"},
	{"DELETE-DEVICES", "Delete devices"},

	{"CREATE-PAYROLLS", "Create payrolls"},
	{"VIEW-PAYROLLS", "View payrolls"},
	{"UPDATE-PAYROLLS", "Update payrolls"},
	{"DELETE-PAYROLLS", "Delete payrolls"},

	{"CREATE-PERMISSIONS", "Create permissions"},
	{"VIEW-PERMISSIONS", "View permissions"},
	{"UPDATE-PERMISSIONS", "Update permissions"},
	{"DELETE-PERMISSIONS", "Delete permissions"},

	{"CREATE-PRICING-RULES", "Create pricing rules"},
	{"VIEW-PRICING-RULES", "View pricing rules"},
	{"UPDATE-PRICING-RULES", "Update pricing rules"},
	{"DELETE-PRICING-RULES", "Delete pricing rules"},

	{"CREATE-ROLES", "Create roles"},
	{"VIEW-ROLES", "View roles"},
	{"UPDATE-ROLES", "Update roles"},
	{"DELETE-ROLES", "Delete roles"},

	{"CREATE-ROLE-PERMISSIONS", "Assign permissions to roles"},
	{"VIEW-ROLE-PERMISSIONS", "View role permissions"},
	{"UPDATE-ROLE-PERMISSIONS", "Update role permissions"},
	{"DELETE-ROLE-PERMISSIONS", "Delete role permissions"},

	{"CREATE-SPACES", "Create spaces"},
	{"VIEW-SPACES", "View spaces"},
	{"UPDATE-SPACES", "Update spaces"},
	{"DELETE-SPACES", "Delete spaces"},

	{"CREATE-STAFF-PROFILES", "Create staff profiles"},
	{"VIEW-STAFF-PROFILES", "View staff profiles"},
	{"UPDATE-STAFF-PROFILES", "Update staff profiles"},
	{"DELETE-STAFF-PROFILES", "Delete staff profiles"},

	{"VIEW-USERS", "View users"},
	{"UPDATE-USERS", "Update users"},
	{"DELETE-USERS", "Delete users"},
}

// Seed inserts the permission catalog, skipping names that already
// exist. Returns the number of rows inserted.
func Seed(ctx context.Context, db *sql.DB) (int, error) {
	inserted := 0
	now := time.Now().UTC()
	for _, entry := range Catalog {
		res, err := db.ExecContext(ctx, `
			INSERT INTO permissions (id, name, description, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), entry.Name, entry.Description, now)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed permission %s: %w", entry.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}
