// Package middleware provides the authentication middleware that guards
// every protected route.
package middleware

import (
	"net/http"
	"strings"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// TokenVerifier validates a raw bearer token and returns the principal
type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

// Authenticator verifies bearer tokens and attaches the principal to the
// request context.
type Authenticator struct {
	tokens    TokenVerifier
	blacklist *auth.Blacklist
}

// NewAuthenticator creates the auth middleware. blacklist may be nil in
// tests.
func NewAuthenticator(tokens TokenVerifier, blacklist *auth.Blacklist) *Authenticator {
	return &Authenticator{tokens: tokens, blacklist: blacklist}
}

// VerifyToken is the middleware protecting authenticated routes. It
// rejects missing, malformed, expired, and revoked tokens with a 401.
func (a *Authenticator) VerifyToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteUnauthorized(w, "Authorization header is required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.WriteUnauthorized(w, "Authorization header must be a Bearer token")
			return
		}

		if a.blacklist != nil {
			revoked, err := a.blacklist.IsBlacklisted(r.Context(), token)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("token blacklist check failed")
				httputil.WriteError(w, err)
				return
			}
			if revoked {
				httputil.WriteUnauthorized(w, "Token has been revoked")
				return
			}
		}

		principal, err := a.tokens.Verify(token)
		if err != nil {
			httputil.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = observability.WithUserID(ctx, principal.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
