package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

type roleHandler struct {
	deps Deps
}

func newRoleHandler(deps Deps) *roleHandler {
	return &roleHandler{deps: deps}
}

func (h *roleHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver

	r.Handle("/roles/create",
		wrap(h.create, permissions.RequirePermission(res, "CREATE-ROLES", false))).Methods("POST")
	r.Handle("/roles/getAll",
		wrap(h.getAll, permissions.RequirePermission(res, "VIEW-ROLES", false))).Methods("GET")
	r.Handle("/roles/getById/{id}",
		wrap(h.getByID, permissions.RequirePermission(res, "VIEW-ROLES", false))).Methods("GET")
	r.Handle("/roles/update/{id}",
		wrap(h.update, permissions.RequirePermission(res, "UPDATE-ROLES", false))).Methods("PUT")
	r.Handle("/roles/deleteById/{id}",
		wrap(h.deleteByID, permissions.RequirePermission(res, "DELETE-ROLES", false))).Methods("DELETE")
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *roleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	if name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	role, err := h.deps.Users.CreateRole(r.Context(), name, req.Description)
	if err != nil {
		writeStoreError(w, err, "Role not found", "Role already exists")
		return
	}
	httputil.WriteCreated(w, role)
}

func (h *roleHandler) getAll(w http.ResponseWriter, r *http.Request) {
	roles, err := h.deps.Users.ListRoles(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if roles == nil {
		roles = []storage.Role{}
	}
	httputil.WriteData(w, roles)
}

func (h *roleHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	role, err := h.deps.Users.GetRole(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Role not found", "")
		return
	}
	httputil.WriteData(w, role)
}

func (h *roleHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.deps.Users.UpdateRole(r.Context(), id, req.Description); err != nil {
		writeStoreError(w, err, "Role not found", "")
		return
	}
	role, err := h.deps.Users.GetRole(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Role not found", "")
		return
	}
	httputil.WriteData(w, role)
}

// deleteByID removes a role. Users holding it are moved to the default
// role and its permission grants are dropped.
func (h *roleHandler) deleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Users.DeleteRole(r.Context(), id, h.deps.DefaultRole); err != nil {
		writeStoreError(w, err, "Role not found", "The default role cannot be deleted")
		return
	}
	httputil.WriteMessage(w, "Role deleted successfully")
}
