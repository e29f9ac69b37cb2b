package permissions

import (
	"errors"
	"time"
)

var (
	// ErrPermissionNotDefined is returned when a route references a
	// permission name that was never seeded. This is a server
	// configuration error, not a caller error.
	ErrPermissionNotDefined = errors.New("permission not defined")

	// ErrResourceNotFound is returned by ownership checks when the
	// guarded resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnknownScope is returned when an ownership check is wired with
	// a scope the resolver does not understand.
	ErrUnknownScope = errors.New("unknown ownership scope")
)

// Permission is a named capability such as CREATE-BRANCHES
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoleGrant allows every holder of a role to use a permission
type RoleGrant struct {
	RoleID       string `json:"roleId"`
	PermissionID string `json:"permissionId"`
}

// UserOverride allows or denies a permission for one user, across all
// branches. It beats the role grant and loses to branch overrides.
type UserOverride struct {
	UserID       string `json:"userId"`
	PermissionID string `json:"permissionId"`
	IsAllowed    bool   `json:"isAllowed"`
}

// BranchOverride allows or denies a permission for one user within one
// branch. It is the most specific layer and beats everything except the
// bypass roles.
type BranchOverride struct {
	UserID       string `json:"userId"`
	PermissionID string `json:"permissionId"`
	BranchID     string `json:"branchId"`
	IsAllowed    bool   `json:"isAllowed"`
}

// Layer identifies which resolution layer produced a decision
type Layer string

const (
	LayerBypass         Layer = "bypass"
	LayerBranchOverride Layer = "branch_override"
	LayerUserOverride   Layer = "user_override"
	LayerRole           Layer = "role"
	LayerDefault        Layer = "default"
)

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed    bool
	Layer      Layer
	Permission string
}

// Scope says which field of a resource an ownership check compares
// against the caller.
type Scope int

const (
	// ScopeUser compares the resource owner id to the caller's user id
	ScopeUser Scope = iota
	// ScopeBusiness compares the business owner id to the caller's user id
	ScopeBusiness
	// ScopeBranch delegates to the branch access check on the resource's branch
	ScopeBranch
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeBusiness:
		return "business"
	case ScopeBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Ownership describes who owns a resource and which branch it belongs to
type Ownership struct {
	OwnerID  string
	BranchID string
}
