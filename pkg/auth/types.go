// Package auth provides JWT token issuing and verification, the
// authenticated principal type, password hashing, and the blacklisted
// token store used for logout.
package auth

import (
	"context"
	"strings"

	"github.com/youssef3092004/Spacefy/pkg/contextkeys"
)

// Well-known role names. OWNER and DEVELOPER bypass permission checks,
// ADMIN bypasses ownership checks, STAFF is scoped to assigned branches.
const (
	RoleOwner     = "OWNER"
	RoleDeveloper = "DEVELOPER"
	RoleAdmin     = "ADMIN"
	RoleStaff     = "STAFF"
	RoleCustomer  = "CUSTOMER"
)

// Principal is the authenticated caller extracted from a verified token
type Principal struct {
	UserID   string `json:"userId"`
	RoleID   string `json:"roleId"`
	RoleName string `json:"roleName"`
}

// WithPrincipal stores the principal in the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}

// PrincipalFromContext retrieves the principal set by the auth middleware
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return p, ok
}

// FormatPermission turns a permission name like "CREATE-BRANCHES" into a
// human readable "Create Branches" for denial messages.
func FormatPermission(name string) string {
	parts := strings.Split(name, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
