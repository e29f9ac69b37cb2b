package permissions

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// Store is the persistence surface the resolver reads from
type Store interface {
	// PermissionIDByName resolves a permission name to its id,
	// returning ErrPermissionNotDefined when no such permission exists.
	PermissionIDByName(ctx context.Context, name string) (string, error)

	// BranchOverride returns the branch-level override for the user and
	// permission, found=false when none exists.
	BranchOverride(ctx context.Context, userID, permissionID, branchID string) (isAllowed, found bool, err error)

	// UserOverride returns the user-level override, found=false when
	// none exists.
	UserOverride(ctx context.Context, userID, permissionID string) (isAllowed, found bool, err error)

	// HasRoleGrant reports whether the role is granted the permission
	HasRoleGrant(ctx context.Context, roleID, permissionID string) (bool, error)

	// HasStaffProfile reports whether the user has a staff profile at
	// the branch.
	HasStaffProfile(ctx context.Context, userID, branchID string) (bool, error)

	// HasAnyBranchPermission reports whether the user has any
	// branch-level permission row at the branch.
	HasAnyBranchPermission(ctx context.Context, userID, branchID string) (bool, error)
}

// ResolverOptions tune the resolver
type ResolverOptions struct {
	// BypassRoles are role names that skip permission resolution
	// entirely. Defaults to OWNER and DEVELOPER.
	BypassRoles []string
	// MemoSize and MemoTTL size the permission name to id memo
	MemoSize int
	MemoTTL  time.Duration
	Metrics  *observability.Metrics
}

// Resolver answers authorization questions by walking the layered
// permission model: bypass roles, branch override, user override, role
// grant, then default deny. The first layer that has an opinion wins.
type Resolver struct {
	store   Store
	bypass  map[string]struct{}
	memo    *expirable.LRU[string, string]
	metrics *observability.Metrics
}

// NewResolver creates a resolver over the store
func NewResolver(store Store, opts ResolverOptions) *Resolver {
	roles := opts.BypassRoles
	if len(roles) == 0 {
		roles = []string{auth.RoleOwner, auth.RoleDeveloper}
	}
	bypass := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		bypass[r] = struct{}{}
	}

	size := opts.MemoSize
	if size < 1 {
		size = 256
	}
	ttl := opts.MemoTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Resolver{
		store:   store,
		bypass:  bypass,
		memo:    expirable.NewLRU[string, string](size, nil, ttl),
		metrics: opts.Metrics,
	}
}

// Authorize decides whether the principal may use the named permission.
// branchID may be empty for routes that are not branch scoped; the
// branch override layer is skipped in that case.
func (r *Resolver) Authorize(ctx context.Context, p *auth.Principal, permission, branchID string) (Decision, error) {
	if _, ok := r.bypass[p.RoleName]; ok {
		return r.decide(permission, true, LayerBypass), nil
	}

	permID, err := r.permissionID(ctx, permission)
	if err != nil {
		return Decision{Permission: permission}, err
	}

	if branchID != "" {
		isAllowed, found, err := r.store.BranchOverride(ctx, p.UserID, permID, branchID)
		if err != nil {
			return Decision{Permission: permission}, fmt.Errorf("branch override lookup: %w", err)
		}
		if found {
			return r.decide(permission, isAllowed, LayerBranchOverride), nil
		}
	}

	isAllowed, found, err := r.store.UserOverride(ctx, p.UserID, permID)
	if err != nil {
		return Decision{Permission: permission}, fmt.Errorf("user override lookup: %w", err)
	}
	if found {
		return r.decide(permission, isAllowed, LayerUserOverride), nil
	}

	granted, err := r.store.HasRoleGrant(ctx, p.RoleID, permID)
	if err != nil {
		return Decision{Permission: permission}, fmt.Errorf("role grant lookup: %w", err)
	}
	if granted {
		return r.decide(permission, true, LayerRole), nil
	}

	return r.decide(permission, false, LayerDefault), nil
}

// CanAccessBranch reports whether the principal may operate within the
// branch. Bypass roles always may; STAFF needs a staff profile at the
// branch; every other role needs at least one branch-level permission
// row there.
func (r *Resolver) CanAccessBranch(ctx context.Context, p *auth.Principal, branchID string) (bool, error) {
	if _, ok := r.bypass[p.RoleName]; ok {
		return true, nil
	}
	if p.RoleName == auth.RoleStaff {
		ok, err := r.store.HasStaffProfile(ctx, p.UserID, branchID)
		if err != nil {
			return false, fmt.Errorf("staff profile lookup: %w", err)
		}
		return ok, nil
	}
	ok, err := r.store.HasAnyBranchPermission(ctx, p.UserID, branchID)
	if err != nil {
		return false, fmt.Errorf("branch permission lookup: %w", err)
	}
	return ok, nil
}

// CheckOwnership decides whether the principal owns the resource.
// ADMIN bypasses ownership entirely. ScopeUser and ScopeBusiness
// compare the owner id; ScopeBranch delegates to CanAccessBranch.
func (r *Resolver) CheckOwnership(ctx context.Context, p *auth.Principal, scope Scope, own *Ownership) (bool, error) {
	if p.RoleName == auth.RoleAdmin {
		return true, nil
	}
	if own == nil {
		return false, ErrResourceNotFound
	}

	switch scope {
	case ScopeUser, ScopeBusiness:
		return own.OwnerID == p.UserID, nil
	case ScopeBranch:
		return r.CanAccessBranch(ctx, p, own.BranchID)
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownScope, scope)
	}
}

func (r *Resolver) permissionID(ctx context.Context, name string) (string, error) {
	if id, ok := r.memo.Get(name); ok {
		return id, nil
	}
	id, err := r.store.PermissionIDByName(ctx, name)
	if err != nil {
		return "", err
	}
	r.memo.Add(name, id)
	return id, nil
}

// InvalidateMemo drops the cached id for a permission name, used when
// permissions are deleted or renamed.
func (r *Resolver) InvalidateMemo(name string) {
	r.memo.Remove(name)
}

func (r *Resolver) decide(permission string, allowed bool, layer Layer) Decision {
	if r.metrics != nil {
		decision := "deny"
		if allowed {
			decision = "allow"
		}
		r.metrics.AuthzDecisionsTotal.WithLabelValues(permission, decision).Inc()
		r.metrics.AuthzLayerHitsTotal.WithLabelValues(string(layer)).Inc()
	}
	return Decision{Allowed: allowed, Layer: layer, Permission: permission}
}
