package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/middleware"
	"github.com/youssef3092004/Spacefy/pkg/observability"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

type authHandler struct {
	deps  Deps
	authn *middleware.Authenticator
}

func newAuthHandler(deps Deps, authn *middleware.Authenticator) *authHandler {
	return &authHandler{deps: deps, authn: authn}
}

// RegisterRoutes registers the authentication endpoints. Register and
// login are public; registering privileged roles and logging out require
// a verified token.
func (h *authHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.register).Methods("POST")
	r.HandleFunc("/auth/login", h.login).Methods("POST")
	r.Handle("/auth/registerWithRole", wrap(h.registerWithRole, h.authn.VerifyToken)).Methods("POST")
	r.Handle("/auth/logout", wrap(h.logout, h.authn.VerifyToken)).Methods("POST")
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleName string `json:"roleName,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string        `json:"token"`
	User  *storage.User `json:"user"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	// the public endpoint always creates the default role; privileged
	// roles go through registerWithRole
	h.createAccount(w, r, req, h.deps.DefaultRole)
}

func (h *authHandler) registerWithRole(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	roleName := strings.ToUpper(strings.TrimSpace(req.RoleName))
	switch roleName {
	case auth.RoleOwner, auth.RoleAdmin, auth.RoleStaff:
	default:
		httputil.WriteBadRequest(w, "roleName must be one of OWNER, ADMIN, STAFF")
		return
	}

	permission := "REGISTER-" + roleName
	decision, err := h.deps.Resolver.Authorize(r.Context(), p, permission, "")
	if err != nil {
		if errors.Is(err, permissions.ErrPermissionNotDefined) {
			httputil.WriteErrorStatus(w, http.StatusInternalServerError, "Permission not defined: "+permission)
			return
		}
		httputil.WriteError(w, err)
		return
	}
	if !decision.Allowed {
		httputil.WriteForbidden(w, "Access denied. You don't have permission to: "+auth.FormatPermission(permission))
		return
	}

	h.createAccount(w, r, req, roleName)
}

func (h *authHandler) createAccount(w http.ResponseWriter, r *http.Request, req registerRequest, roleName string) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "name, email and password are required")
		return
	}

	role, err := h.deps.Users.GetRoleByName(r.Context(), roleName)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("role", roleName).Error("registration role is missing")
		httputil.WriteError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	user := &storage.User{
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if err := h.deps.Users.CreateUser(r.Context(), user); err != nil {
		writeStoreError(w, err, "User not found", "Email is already registered")
		return
	}

	token, err := h.deps.Tokens.Issue(&auth.Principal{UserID: user.ID, RoleID: role.ID, RoleName: role.Name})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, sessionResponse{Token: token, User: user})
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	user, err := h.deps.Users.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteUnauthorized(w, "Invalid email or password")
			return
		}
		httputil.WriteError(w, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		httputil.WriteUnauthorized(w, "Invalid email or password")
		return
	}

	role, err := h.deps.Users.GetRole(r.Context(), user.RoleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.deps.Tokens.Issue(&auth.Principal{UserID: user.ID, RoleID: role.ID, RoleName: role.Name})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, sessionResponse{Token: token, User: user})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if h.deps.Blacklist != nil && token != "" {
		if err := h.deps.Blacklist.Add(r.Context(), token, h.deps.Tokens.ExpiresAt(token)); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	httputil.WriteMessage(w, "Logged out successfully")
}
