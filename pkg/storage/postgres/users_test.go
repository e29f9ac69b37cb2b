package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

func TestUserStore_CreateAndLookup(t *testing.T) {
	db := setupStorageDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	u := &storage.User{Name: "Sam", Email: "sam@example.com", PasswordHash: "h", RoleID: "r-1"}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "sam@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Expected same user, got %+v", got)
	}

	dup := &storage.User{Name: "Other", Email: "sam@example.com", PasswordHash: "h", RoleID: "r-1"}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestUserStore_SeedRolesIdempotent(t *testing.T) {
	db := setupStorageDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	if err := store.SeedRoles(ctx); err != nil {
		t.Fatalf("SeedRoles failed: %v", err)
	}
	if err := store.SeedRoles(ctx); err != nil {
		t.Fatalf("Second SeedRoles failed: %v", err)
	}

	roles, err := store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}
	if len(roles) != 5 {
		t.Errorf("Expected 5 built-in roles, got %d", len(roles))
	}
}

func TestUserStore_DeleteRoleReassignsUsers(t *testing.T) {
	db := setupStorageDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	if err := store.SeedRoles(ctx); err != nil {
		t.Fatalf("SeedRoles failed: %v", err)
	}
	custom, err := store.CreateRole(ctx, "MANAGER", "Branch manager")
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	u := &storage.User{Name: "Pat", Email: "pat@example.com", PasswordHash: "h", RoleID: custom.ID}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// grant a permission to the role so the cascade has something to drop
	if _, err := db.Exec(`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, 'p-1')`, custom.ID); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	if err := store.DeleteRole(ctx, custom.ID, auth.RoleCustomer); err != nil {
		t.Fatalf("DeleteRole failed: %v", err)
	}

	got, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	defaultRole, err := store.GetRoleByName(ctx, auth.RoleCustomer)
	if err != nil {
		t.Fatalf("GetRoleByName failed: %v", err)
	}
	if got.RoleID != defaultRole.ID {
		t.Errorf("Expected user reassigned to default role, got %s", got.RoleID)
	}

	var grants int
	db.QueryRow(`SELECT COUNT(*) FROM role_permissions WHERE role_id = $1`, custom.ID).Scan(&grants)
	if grants != 0 {
		t.Errorf("Expected role grants dropped, got %d", grants)
	}

	if _, err := store.GetRole(ctx, custom.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected role gone, got %v", err)
	}
}

func TestUserStore_CannotDeleteDefaultRole(t *testing.T) {
	db := setupStorageDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	if err := store.SeedRoles(ctx); err != nil {
		t.Fatalf("SeedRoles failed: %v", err)
	}
	defaultRole, err := store.GetRoleByName(ctx, auth.RoleCustomer)
	if err != nil {
		t.Fatalf("GetRoleByName failed: %v", err)
	}

	if err := store.DeleteRole(ctx, defaultRole.ID, auth.RoleCustomer); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict deleting the default role, got %v", err)
	}
}
