package permissions

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE staff_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		branch_id TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("Failed to create staff_profiles: %v", err)
	}
	return db
}

func TestSeed_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := Seed(ctx, db)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if n != len(Catalog) {
		t.Errorf("Expected %d inserted, got %d", len(Catalog), n)
	}

	n, err = Seed(ctx, db)
	if err != nil {
		t.Fatalf("Second seed failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 inserted on reseed, got %d", n)
	}
}

func TestPostgresStore_PermissionIDByName(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	if _, err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	id, err := store.PermissionIDByName(ctx, "CREATE-BRANCHES")
	if err != nil {
		t.Fatalf("PermissionIDByName failed: %v", err)
	}
	if id == "" {
		t.Error("Expected non-empty permission id")
	}

	if _, err := store.PermissionIDByName(ctx, "NOT-A-PERMISSION"); !errors.Is(err, ErrPermissionNotDefined) {
		t.Errorf("Expected ErrPermissionNotDefined, got %v", err)
	}
}

func TestPostgresStore_OverrideLifecycle(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "TEST-PERM", "test")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}

	// user override: set, flip, delete
	if err := store.SetUserOverride(ctx, UserOverride{UserID: "u-1", PermissionID: perm.ID, IsAllowed: true}); err != nil {
		t.Fatalf("SetUserOverride failed: %v", err)
	}
	allowed, found, err := store.UserOverride(ctx, "u-1", perm.ID)
	if err != nil || !found || !allowed {
		t.Fatalf("Expected allow override, got allowed=%v found=%v err=%v", allowed, found, err)
	}

	if err := store.SetUserOverride(ctx, UserOverride{UserID: "u-1", PermissionID: perm.ID, IsAllowed: false}); err != nil {
		t.Fatalf("Flip override failed: %v", err)
	}
	allowed, found, _ = store.UserOverride(ctx, "u-1", perm.ID)
	if !found || allowed {
		t.Errorf("Expected flipped deny override, got allowed=%v found=%v", allowed, found)
	}

	if err := store.DeleteUserOverride(ctx, "u-1", perm.ID); err != nil {
		t.Fatalf("DeleteUserOverride failed: %v", err)
	}
	_, found, _ = store.UserOverride(ctx, "u-1", perm.ID)
	if found {
		t.Error("Expected override gone after delete")
	}

	if err := store.DeleteUserOverride(ctx, "u-1", perm.ID); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound deleting missing override, got %v", err)
	}
}

func TestPostgresStore_BranchOverrides(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "TEST-PERM", "test")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}

	o := BranchOverride{UserID: "u-1", PermissionID: perm.ID, BranchID: "b-1", IsAllowed: false}
	if err := store.SetBranchOverride(ctx, o); err != nil {
		t.Fatalf("SetBranchOverride failed: %v", err)
	}

	allowed, found, err := store.BranchOverride(ctx, "u-1", perm.ID, "b-1")
	if err != nil || !found || allowed {
		t.Errorf("Expected deny override at b-1, got allowed=%v found=%v err=%v", allowed, found, err)
	}

	// other branches unaffected
	_, found, _ = store.BranchOverride(ctx, "u-1", perm.ID, "b-2")
	if found {
		t.Error("Expected no override at b-2")
	}

	list, err := store.ListBranchOverrides(ctx, "u-1", "b-1")
	if err != nil {
		t.Fatalf("ListBranchOverrides failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 override, got %d", len(list))
	}

	ok, err := store.HasAnyBranchPermission(ctx, "u-1", "b-1")
	if err != nil || !ok {
		t.Errorf("Expected branch permission row to grant branch access, got %v %v", ok, err)
	}
}

func TestPostgresStore_RoleGrants(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "TEST-PERM", "test")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}

	if err := store.GrantRole(ctx, "r-1", perm.ID); err != nil {
		t.Fatalf("GrantRole failed: %v", err)
	}
	// idempotent
	if err := store.GrantRole(ctx, "r-1", perm.ID); err != nil {
		t.Fatalf("Second GrantRole failed: %v", err)
	}

	ok, err := store.HasRoleGrant(ctx, "r-1", perm.ID)
	if err != nil || !ok {
		t.Errorf("Expected grant, got %v %v", ok, err)
	}

	grants, err := store.ListRoleGrants(ctx, "r-1")
	if err != nil {
		t.Fatalf("ListRoleGrants failed: %v", err)
	}
	if len(grants) != 1 || grants[0].Name != "TEST-PERM" {
		t.Errorf("Unexpected grants: %+v", grants)
	}

	if err := store.RevokeRole(ctx, "r-1", perm.ID); err != nil {
		t.Fatalf("RevokeRole failed: %v", err)
	}
	ok, _ = store.HasRoleGrant(ctx, "r-1", perm.ID)
	if ok {
		t.Error("Expected grant gone after revoke")
	}
}

func TestPostgresStore_DeletePermissionCascades(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	perm, err := store.CreatePermission(ctx, "TEST-PERM", "test")
	if err != nil {
		t.Fatalf("CreatePermission failed: %v", err)
	}
	store.GrantRole(ctx, "r-1", perm.ID)
	store.SetUserOverride(ctx, UserOverride{UserID: "u-1", PermissionID: perm.ID, IsAllowed: true})
	store.SetBranchOverride(ctx, BranchOverride{UserID: "u-1", PermissionID: perm.ID, BranchID: "b-1", IsAllowed: true})

	if err := store.DeletePermission(ctx, perm.ID); err != nil {
		t.Fatalf("DeletePermission failed: %v", err)
	}

	if _, err := store.GetPermission(ctx, perm.ID); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected permission gone, got %v", err)
	}
	if ok, _ := store.HasRoleGrant(ctx, "r-1", perm.ID); ok {
		t.Error("Expected role grant cascade deleted")
	}
	if _, found, _ := store.UserOverride(ctx, "u-1", perm.ID); found {
		t.Error("Expected user override cascade deleted")
	}
	if _, found, _ := store.BranchOverride(ctx, "u-1", perm.ID, "b-1"); found {
		t.Error("Expected branch override cascade deleted")
	}
}

func TestPostgresStore_StaffProfileLookup(t *testing.T) {
	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	if _, err := db.Exec(`INSERT INTO staff_profiles (id, user_id, branch_id) VALUES ('sp-1', 'u-1', 'b-1')`); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ok, err := store.HasStaffProfile(ctx, "u-1", "b-1")
	if err != nil || !ok {
		t.Errorf("Expected staff profile found, got %v %v", ok, err)
	}
	ok, err = store.HasStaffProfile(ctx, "u-1", "b-2")
	if err != nil || ok {
		t.Errorf("Expected no staff profile at b-2, got %v %v", ok, err)
	}
}
