// Package permissions implements layered authorization.
//
// A check for a named permission walks five layers and stops at the
// first one with an opinion:
//
//  1. bypass roles (OWNER, DEVELOPER) always allow
//  2. branch override: per user, per permission, per branch; allow or deny
//  3. user override: per user, per permission; allow or deny
//  4. role grant: per role, per permission; allow only
//  5. default deny
//
// A deny recorded at a more specific layer beats an allow at a broader
// one, so a user can hold a role-wide grant and still be locked out of
// a single branch.
//
// Branch access is a separate coarse check: STAFF need a staff profile
// at the branch, other roles need at least one branch-level permission
// row there. Ownership checks compare a resource's owner to the caller,
// with ADMIN bypassing and branch-scoped resources delegating to the
// branch access check.
//
// Route guards are exposed as gorilla/mux middleware:
//
//	r.Use(permissions.RequirePermission(resolver, "CREATE-BRANCHES", true))
package permissions
