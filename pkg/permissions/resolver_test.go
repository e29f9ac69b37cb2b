package permissions

import (
	"context"
	"errors"
	"testing"

	"github.com/youssef3092004/Spacefy/pkg/auth"
)

// fakeStore is an in-memory Store for resolver tests
type fakeStore struct {
	permissions     map[string]string // name -> id
	branchOverrides map[string]bool   // user|perm|branch -> isAllowed
	userOverrides   map[string]bool   // user|perm -> isAllowed
	roleGrants      map[string]bool   // role|perm
	staffProfiles   map[string]bool   // user|branch
	branchPerms     map[string]bool   // user|branch
	err             error
	lookups         []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		permissions:     map[string]string{},
		branchOverrides: map[string]bool{},
		userOverrides:   map[string]bool{},
		roleGrants:      map[string]bool{},
		staffProfiles:   map[string]bool{},
		branchPerms:     map[string]bool{},
	}
}

func (f *fakeStore) PermissionIDByName(ctx context.Context, name string) (string, error) {
	f.lookups = append(f.lookups, name)
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.permissions[name]
	if !ok {
		return "", ErrPermissionNotDefined
	}
	return id, nil
}

func (f *fakeStore) BranchOverride(ctx context.Context, userID, permID, branchID string) (bool, bool, error) {
	if f.err != nil {
		return false, false, f.err
	}
	v, ok := f.branchOverrides[userID+"|"+permID+"|"+branchID]
	return v, ok, nil
}

func (f *fakeStore) UserOverride(ctx context.Context, userID, permID string) (bool, bool, error) {
	if f.err != nil {
		return false, false, f.err
	}
	v, ok := f.userOverrides[userID+"|"+permID]
	return v, ok, nil
}

func (f *fakeStore) HasRoleGrant(ctx context.Context, roleID, permID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.roleGrants[roleID+"|"+permID], nil
}

func (f *fakeStore) HasStaffProfile(ctx context.Context, userID, branchID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.staffProfiles[userID+"|"+branchID], nil
}

func (f *fakeStore) HasAnyBranchPermission(ctx context.Context, userID, branchID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.branchPerms[userID+"|"+branchID], nil
}

func staffPrincipal() *auth.Principal {
	return &auth.Principal{UserID: "u-1", RoleID: "r-staff", RoleName: auth.RoleStaff}
}

func TestAuthorize_BypassRolesSkipResolution(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, ResolverOptions{})
	ctx := context.Background()

	for _, role := range []string{auth.RoleOwner, auth.RoleDeveloper} {
		p := &auth.Principal{UserID: "u-1", RoleID: "r-1", RoleName: role}
		d, err := resolver.Authorize(ctx, p, "CREATE-BRANCHES", "b-1")
		if err != nil {
			t.Fatalf("Authorize failed for %s: %v", role, err)
		}
		if !d.Allowed || d.Layer != LayerBypass {
			t.Errorf("Expected bypass allow for %s, got %+v", role, d)
		}
	}
	if len(store.lookups) != 0 {
		t.Errorf("Expected no store lookups for bypass roles, got %v", store.lookups)
	}
}

func TestAuthorize_PermissionNotDefined(t *testing.T) {
	resolver := NewResolver(newFakeStore(), ResolverOptions{})

	_, err := resolver.Authorize(context.Background(), staffPrincipal(), "NOT-SEEDED", "")
	if !errors.Is(err, ErrPermissionNotDefined) {
		t.Errorf("Expected ErrPermissionNotDefined, got %v", err)
	}
}

func TestAuthorize_BranchOverrideDenyBeatsRoleGrant(t *testing.T) {
	store := newFakeStore()
	store.permissions["CREATE-BRANCHES"] = "p-1"
	store.roleGrants["r-staff|p-1"] = true
	store.userOverrides["u-1|p-1"] = true
	store.branchOverrides["u-1|p-1|b-1"] = false

	resolver := NewResolver(store, ResolverOptions{})
	d, err := resolver.Authorize(context.Background(), staffPrincipal(), "CREATE-BRANCHES", "b-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Layer != LayerBranchOverride {
		t.Errorf("Expected branch override deny to win, got %+v", d)
	}
}

func TestAuthorize_BranchOverrideAllow(t *testing.T) {
	store := newFakeStore()
	store.permissions["CREATE-BRANCHES"] = "p-1"
	store.branchOverrides["u-1|p-1|b-1"] = true

	resolver := NewResolver(store, ResolverOptions{})
	d, err := resolver.Authorize(context.Background(), staffPrincipal(), "CREATE-BRANCHES", "b-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Layer != LayerBranchOverride {
		t.Errorf("Expected branch override allow, got %+v", d)
	}
}

func TestAuthorize_BranchOverrideIgnoredWithoutBranch(t *testing.T) {
	store := newFakeStore()
	store.permissions["CREATE-BRANCHES"] = "p-1"
	store.branchOverrides["u-1|p-1|b-1"] = false
	store.roleGrants["r-staff|p-1"] = true

	resolver := NewResolver(store, ResolverOptions{})
	d, err := resolver.Authorize(context.Background(), staffPrincipal(), "CREATE-BRANCHES", "")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Layer != LayerRole {
		t.Errorf("Expected role grant to apply without a branch, got %+v", d)
	}
}

func TestAuthorize_UserOverrideBeatsRoleGrant(t *testing.T) {
	store := newFakeStore()
	store.permissions["DELETE-SPACES"] = "p-2"
	store.roleGrants["r-staff|p-2"] = true
	store.userOverrides["u-1|p-2"] = false

	resolver := NewResolver(store, ResolverOptions{})
	d, err := resolver.Authorize(context.Background(), staffPrincipal(), "DELETE-SPACES", "b-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Layer != LayerUserOverride {
		t.Errorf("Expected user override deny to beat role grant, got %+v", d)
	}
}

func TestAuthorize_RoleGrantAllows(t *testing.T) {
	store := newFakeStore()
	store.permissions["VIEW-DEVICES"] = "p-3"
	store.roleGrants["r-staff|p-3"] = true

	resolver := NewResolver(store, ResolverOptions{})
	d, err := resolver.Authorize(context.Background(), staffPrincipal(), "VIEW-DEVICES", "b-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !d.Allowed || d.Layer != LayerRole {
		t.Errorf("Expected role grant allow, got %+v", d)
	}
}

func TestAuthorize_DefaultDeny(t *testing.T) {
	store := newFakeStore()
	store.permissions["DELETE-BUSINESSES"] = "p-4"

	resolver := NewResolver(store, ResolverOptions{})
	d, err := resolver.Authorize(context.Background(), staffPrincipal(), "DELETE-BUSINESSES", "b-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if d.Allowed || d.Layer != LayerDefault {
		t.Errorf("Expected default deny, got %+v", d)
	}
}

func TestAuthorize_MemoCachesNameLookup(t *testing.T) {
	store := newFakeStore()
	store.permissions["VIEW-BRANCHES"] = "p-5"
	store.roleGrants["r-staff|p-5"] = true

	resolver := NewResolver(store, ResolverOptions{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := resolver.Authorize(ctx, staffPrincipal(), "VIEW-BRANCHES", ""); err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
	}
	if len(store.lookups) != 1 {
		t.Errorf("Expected 1 name lookup with memo, got %d", len(store.lookups))
	}
}

func TestAuthorize_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.permissions["VIEW-BRANCHES"] = "p-5"
	store.err = errors.New("connection reset")

	resolver := NewResolver(store, ResolverOptions{})
	if _, err := resolver.Authorize(context.Background(), staffPrincipal(), "VIEW-BRANCHES", "b-1"); err == nil {
		t.Error("Expected store error to propagate")
	}
}

func TestCanAccessBranch(t *testing.T) {
	store := newFakeStore()
	store.staffProfiles["u-staff|b-1"] = true
	store.branchPerms["u-admin|b-1"] = true

	resolver := NewResolver(store, ResolverOptions{})
	ctx := context.Background()

	cases := []struct {
		name   string
		p      *auth.Principal
		branch string
		want   bool
	}{
		{"owner bypasses", &auth.Principal{UserID: "x", RoleName: auth.RoleOwner}, "b-9", true},
		{"staff with profile", &auth.Principal{UserID: "u-staff", RoleName: auth.RoleStaff}, "b-1", true},
		{"staff without profile", &auth.Principal{UserID: "u-staff", RoleName: auth.RoleStaff}, "b-2", false},
		{"admin with branch permission", &auth.Principal{UserID: "u-admin", RoleName: auth.RoleAdmin}, "b-1", true},
		{"admin without branch permission", &auth.Principal{UserID: "u-admin", RoleName: auth.RoleAdmin}, "b-2", false},
	}
	for _, c := range cases {
		got, err := resolver.CanAccessBranch(ctx, c.p, c.branch)
		if err != nil {
			t.Fatalf("%s: CanAccessBranch failed: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestCheckOwnership(t *testing.T) {
	store := newFakeStore()
	store.staffProfiles["u-staff|b-1"] = true
	resolver := NewResolver(store, ResolverOptions{})
	ctx := context.Background()

	admin := &auth.Principal{UserID: "u-x", RoleName: auth.RoleAdmin}
	ok, err := resolver.CheckOwnership(ctx, admin, ScopeUser, &Ownership{OwnerID: "someone-else"})
	if err != nil || !ok {
		t.Errorf("Expected ADMIN to bypass ownership, got %v %v", ok, err)
	}

	owner := &auth.Principal{UserID: "u-1", RoleName: auth.RoleCustomer}
	ok, err = resolver.CheckOwnership(ctx, owner, ScopeUser, &Ownership{OwnerID: "u-1"})
	if err != nil || !ok {
		t.Errorf("Expected owner match, got %v %v", ok, err)
	}

	ok, err = resolver.CheckOwnership(ctx, owner, ScopeBusiness, &Ownership{OwnerID: "u-2"})
	if err != nil || ok {
		t.Errorf("Expected owner mismatch to deny, got %v %v", ok, err)
	}

	staff := &auth.Principal{UserID: "u-staff", RoleName: auth.RoleStaff}
	ok, err = resolver.CheckOwnership(ctx, staff, ScopeBranch, &Ownership{BranchID: "b-1"})
	if err != nil || !ok {
		t.Errorf("Expected branch scope to delegate to branch access, got %v %v", ok, err)
	}

	if _, err = resolver.CheckOwnership(ctx, owner, Scope(99), &Ownership{}); !errors.Is(err, ErrUnknownScope) {
		t.Errorf("Expected ErrUnknownScope, got %v", err)
	}

	if _, err = resolver.CheckOwnership(ctx, owner, ScopeUser, nil); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound for nil ownership, got %v", err)
	}
}
