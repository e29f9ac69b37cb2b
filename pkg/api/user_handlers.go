package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

type userHandler struct {
	deps Deps
}

func newUserHandler(deps Deps) *userHandler {
	return &userHandler{deps: deps}
}

func (h *userHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver
	inv := h.deps.Cacher.AutoInvalidate("users")
	// users own their own record; ADMIN bypasses inside the resolver
	self := permissions.RequireOwnership(res, permissions.ScopeUser, ownerOwnership(userSelfID))

	r.Handle("/users/getAll",
		wrap(h.getAll, permissions.RequirePermission(res, "VIEW-USERS", false), h.deps.Cacher.CacheList("users"))).Methods("GET")
	r.Handle("/users/getById/{id}",
		wrap(h.getByID, permissions.RequirePermission(res, "VIEW-USERS", false), h.deps.Cacher.CacheByID("users"))).Methods("GET")
	r.Handle("/users/update/{id}",
		wrap(h.update, permissions.RequirePermission(res, "UPDATE-USERS", false), self, inv)).Methods("PUT")
	r.Handle("/users/deleteById/{id}",
		wrap(h.deleteByID, permissions.RequirePermission(res, "DELETE-USERS", false), self, inv)).Methods("DELETE")
	r.Handle("/users/me", http.HandlerFunc(h.me)).Methods("GET")
}

// userSelfID makes the {id} path variable the owner of the user record
func userSelfID(ctx context.Context, id string) (string, error) {
	return id, nil
}

type userUpdateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *userHandler) getAll(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	users, total, err := h.deps.Users.ListUsers(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if users == nil {
		users = []storage.User{}
	}
	httputil.WriteList(w, users, p.Meta(total))
}

func (h *userHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	u, err := h.deps.Users.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "User not found", "")
		return
	}
	httputil.WriteData(w, u)
}

func (h *userHandler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	u, err := h.deps.Users.GetUser(r.Context(), p.UserID)
	if err != nil {
		writeStoreError(w, err, "User not found", "")
		return
	}
	httputil.WriteData(w, u)
}

func (h *userHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	u, err := h.deps.Users.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "User not found", "")
		return
	}

	var req userUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		u.PasswordHash = hash
	}

	if err := h.deps.Users.UpdateUser(r.Context(), u); err != nil {
		writeStoreError(w, err, "User not found", "Email is already registered")
		return
	}
	httputil.WriteData(w, u)
}

func (h *userHandler) deleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Users.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err, "User not found", "")
		return
	}
	httputil.WriteMessage(w, "User deleted successfully")
}
