package permissions

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/contextkeys"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// maxBodyPeek bounds how much of a request body the branch id lookup
// will buffer.
const maxBodyPeek = 1 << 20

// RequirePermission guards a route with a named permission. When
// branchScoped is true the branch id is resolved from the path, then
// the JSON body, then the query string, and the request is rejected
// with a 400 when none is present. The resolved branch id is stored in
// the context for downstream handlers.
func RequirePermission(resolver *Resolver, permission string, branchScoped bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			branchID := ""
			if branchScoped {
				branchID = extractBranchID(r)
				if branchID == "" {
					httputil.WriteBadRequest(w, "branchId is required")
					return
				}
			}

			decision, err := resolver.Authorize(r.Context(), p, permission, branchID)
			if err != nil {
				if errors.Is(err, ErrPermissionNotDefined) {
					observability.FromContext(r.Context()).WithField("permission", permission).
						Error("route references an unseeded permission")
					httputil.WriteErrorStatus(w, http.StatusInternalServerError,
						"Permission not defined: "+permission)
					return
				}
				observability.FromContext(r.Context()).WithError(err).Error("authorization failed")
				httputil.WriteError(w, err)
				return
			}

			if !decision.Allowed {
				httputil.WriteForbidden(w,
					"Access denied. You don't have permission to: "+auth.FormatPermission(permission))
				return
			}

			ctx := r.Context()
			if branchID != "" {
				ctx = contextkeys.WithBranchID(ctx, branchID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBranchAccess guards a route with the coarse branch access
// check instead of a named permission.
func RequireBranchAccess(resolver *Resolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			branchID := extractBranchID(r)
			if branchID == "" {
				httputil.WriteBadRequest(w, "branchId is required")
				return
			}

			allowed, err := resolver.CanAccessBranch(r.Context(), p, branchID)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("branch access check failed")
				httputil.WriteError(w, err)
				return
			}
			if !allowed {
				httputil.WriteForbidden(w, "Access denied. You don't have access to this branch")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextkeys.WithBranchID(r.Context(), branchID)))
		})
	}
}

// ResourceOwnership loads ownership facts for a resource id. The
// returned nil with no error means the resource does not exist.
type ResourceOwnership func(r *http.Request, id string) (*Ownership, error)

// RequireOwnership guards a route so only the resource owner (or an
// ADMIN) may pass. The resource id is taken from the {id} path
// variable.
func RequireOwnership(resolver *Resolver, scope Scope, load ResourceOwnership) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			id := mux.Vars(r)["id"]
			if id == "" {
				httputil.WriteBadRequest(w, "missing path parameter: id")
				return
			}

			own, err := load(r, id)
			if err != nil {
				if errors.Is(err, ErrResourceNotFound) {
					httputil.WriteNotFound(w, "Resource not found")
					return
				}
				observability.FromContext(r.Context()).WithError(err).Error("ownership lookup failed")
				httputil.WriteError(w, err)
				return
			}
			if own == nil {
				httputil.WriteNotFound(w, "Resource not found")
				return
			}

			allowed, err := resolver.CheckOwnership(r.Context(), p, scope, own)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("ownership check failed")
				httputil.WriteError(w, err)
				return
			}
			if !allowed {
				httputil.WriteForbidden(w, "Access denied. You don't own this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole guards a route so only the named roles may pass
func RequireRole(roles ...string) mux.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}
			if _, ok := allowed[p.RoleName]; !ok {
				httputil.WriteForbidden(w, "Access denied. Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBranchID resolves the branch id from the path, the JSON body,
// then the query string. The body is restored so handlers can still
// decode it.
func extractBranchID(r *http.Request) string {
	if id := mux.Vars(r)["branchId"]; id != "" {
		return id
	}

	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(data))
		if err == nil && len(data) > 0 {
			var body struct {
				BranchID string `json:"branchId"`
			}
			if json.Unmarshal(data, &body) == nil && body.BranchID != "" {
				return body.BranchID
			}
		}
	}

	return r.URL.Query().Get("branchId")
}
