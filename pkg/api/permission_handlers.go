package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/contextkeys"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
)

type permissionHandler struct {
	deps Deps
}

func newPermissionHandler(deps Deps) *permissionHandler {
	return &permissionHandler{deps: deps}
}

func (h *permissionHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver

	r.Handle("/permissions/create",
		wrap(h.create, permissions.RequirePermission(res, "CREATE-PERMISSIONS", false))).Methods("POST")
	r.Handle("/permissions/getAll",
		wrap(h.getAll, permissions.RequirePermission(res, "VIEW-PERMISSIONS", false))).Methods("GET")
	r.Handle("/permissions/getById/{id}",
		wrap(h.getByID, permissions.RequirePermission(res, "VIEW-PERMISSIONS", false))).Methods("GET")
	r.Handle("/permissions/update/{id}",
		wrap(h.update, permissions.RequirePermission(res, "UPDATE-PERMISSIONS", false))).Methods("PUT")
	r.Handle("/permissions/deleteById/{id}",
		wrap(h.deleteByID, permissions.RequirePermission(res, "DELETE-PERMISSIONS", false))).Methods("DELETE")
	r.Handle("/permissions/seed",
		wrap(h.seed, permissions.RequireRole(auth.RoleOwner, auth.RoleDeveloper))).Methods("POST")

	r.Handle("/rolePermissions/create",
		wrap(h.grantRole, permissions.RequirePermission(res, "CREATE-ROLE-PERMISSIONS", false))).Methods("POST")
	r.Handle("/rolePermissions/getByRole/{roleId}",
		wrap(h.listRoleGrants, permissions.RequirePermission(res, "VIEW-ROLE-PERMISSIONS", false))).Methods("GET")
	r.Handle("/rolePermissions/delete",
		wrap(h.revokeRole, permissions.RequirePermission(res, "DELETE-ROLE-PERMISSIONS", false))).Methods("DELETE")

	r.Handle("/userPermissions/set",
		wrap(h.setUserOverride, permissions.RequirePermission(res, "UPDATE-PERMISSIONS", false))).Methods("POST")
	r.Handle("/userPermissions/getByUser/{userId}",
		wrap(h.listUserOverrides, permissions.RequirePermission(res, "VIEW-PERMISSIONS", false))).Methods("GET")
	r.Handle("/userPermissions/delete",
		wrap(h.deleteUserOverride, permissions.RequirePermission(res, "UPDATE-PERMISSIONS", false))).Methods("DELETE")

	r.Handle("/branchUserPermissions/set",
		wrap(h.setBranchOverride, permissions.RequirePermission(res, "UPDATE-PERMISSIONS", true))).Methods("POST")
	r.Handle("/branchUserPermissions/getByUser/{branchId}/{userId}",
		wrap(h.listBranchOverrides, permissions.RequirePermission(res, "VIEW-PERMISSIONS", true))).Methods("GET")
	r.Handle("/branchUserPermissions/delete",
		wrap(h.deleteBranchOverride, permissions.RequirePermission(res, "UPDATE-PERMISSIONS", true))).Methods("DELETE")
}

type permissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *permissionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	p, err := h.deps.PermStore.CreatePermission(r.Context(), req.Name, req.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.deps.Resolver.InvalidateMemo(p.Name)
	httputil.WriteCreated(w, p)
}

func (h *permissionHandler) getAll(w http.ResponseWriter, r *http.Request) {
	perms, err := h.deps.PermStore.ListPermissions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if perms == nil {
		perms = []permissions.Permission{}
	}
	httputil.WriteData(w, perms)
}

func (h *permissionHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	p, err := h.deps.PermStore.GetPermission(r.Context(), id)
	if err != nil {
		writePermError(w, err)
		return
	}
	httputil.WriteData(w, p)
}

func (h *permissionHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req permissionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.deps.PermStore.UpdatePermission(r.Context(), id, req.Description); err != nil {
		writePermError(w, err)
		return
	}
	p, err := h.deps.PermStore.GetPermission(r.Context(), id)
	if err != nil {
		writePermError(w, err)
		return
	}
	httputil.WriteData(w, p)
}

func (h *permissionHandler) deleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	// fetch first so the memoized name lookup can be dropped
	p, err := h.deps.PermStore.GetPermission(r.Context(), id)
	if err != nil {
		writePermError(w, err)
		return
	}
	if err := h.deps.PermStore.DeletePermission(r.Context(), id); err != nil {
		writePermError(w, err)
		return
	}
	h.deps.Resolver.InvalidateMemo(p.Name)
	httputil.WriteMessage(w, "Permission deleted successfully")
}

func (h *permissionHandler) seed(w http.ResponseWriter, r *http.Request) {
	n, err := permissions.Seed(r.Context(), h.deps.DB)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessageCount(w, "Permissions seeded successfully", n)
}

type roleGrantRequest struct {
	RoleID       string `json:"roleId"`
	PermissionID string `json:"permissionId"`
}

func (h *permissionHandler) grantRole(w http.ResponseWriter, r *http.Request) {
	var req roleGrantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RoleID == "" || req.PermissionID == "" {
		httputil.WriteBadRequest(w, "roleId and permissionId are required")
		return
	}
	if err := h.deps.PermStore.GrantRole(r.Context(), req.RoleID, req.PermissionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Permission granted to role successfully")
}

func (h *permissionHandler) listRoleGrants(w http.ResponseWriter, r *http.Request) {
	roleID, ok := httputil.ParsePathStringOrError(w, r, "roleId")
	if !ok {
		return
	}
	grants, err := h.deps.PermStore.ListRoleGrants(r.Context(), roleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if grants == nil {
		grants = []permissions.Permission{}
	}
	httputil.WriteData(w, grants)
}

func (h *permissionHandler) revokeRole(w http.ResponseWriter, r *http.Request) {
	var req roleGrantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RoleID == "" || req.PermissionID == "" {
		httputil.WriteBadRequest(w, "roleId and permissionId are required")
		return
	}
	if err := h.deps.PermStore.RevokeRole(r.Context(), req.RoleID, req.PermissionID); err != nil {
		writePermError(w, err)
		return
	}
	httputil.WriteMessage(w, "Role grant revoked successfully")
}

type userOverrideRequest struct {
	UserID       string `json:"userId"`
	PermissionID string `json:"permissionId"`
	IsAllowed    *bool  `json:"isAllowed"`
}

func (h *permissionHandler) setUserOverride(w http.ResponseWriter, r *http.Request) {
	var req userOverrideRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PermissionID == "" || req.IsAllowed == nil {
		httputil.WriteBadRequest(w, "userId, permissionId and isAllowed are required")
		return
	}
	o := permissions.UserOverride{UserID: req.UserID, PermissionID: req.PermissionID, IsAllowed: *req.IsAllowed}
	if err := h.deps.PermStore.SetUserOverride(r.Context(), o); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, o)
}

func (h *permissionHandler) listUserOverrides(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "userId")
	if !ok {
		return
	}
	overrides, err := h.deps.PermStore.ListUserOverrides(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if overrides == nil {
		overrides = []permissions.UserOverride{}
	}
	httputil.WriteData(w, overrides)
}

func (h *permissionHandler) deleteUserOverride(w http.ResponseWriter, r *http.Request) {
	var req userOverrideRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PermissionID == "" {
		httputil.WriteBadRequest(w, "userId and permissionId are required")
		return
	}
	if err := h.deps.PermStore.DeleteUserOverride(r.Context(), req.UserID, req.PermissionID); err != nil {
		writePermError(w, err)
		return
	}
	httputil.WriteMessage(w, "User override deleted successfully")
}

type branchOverrideRequest struct {
	UserID       string `json:"userId"`
	PermissionID string `json:"permissionId"`
	BranchID     string `json:"branchId"`
	IsAllowed    *bool  `json:"isAllowed"`
}

func (h *permissionHandler) setBranchOverride(w http.ResponseWriter, r *http.Request) {
	var req branchOverrideRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PermissionID == "" || req.IsAllowed == nil {
		httputil.WriteBadRequest(w, "userId, permissionId and isAllowed are required")
		return
	}
	o := permissions.BranchOverride{
		UserID:       req.UserID,
		PermissionID: req.PermissionID,
		BranchID:     contextkeys.GetBranchID(r.Context()),
		IsAllowed:    *req.IsAllowed,
	}
	if err := h.deps.PermStore.SetBranchOverride(r.Context(), o); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, o)
}

func (h *permissionHandler) listBranchOverrides(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "userId")
	if !ok {
		return
	}
	overrides, err := h.deps.PermStore.ListBranchOverrides(r.Context(), userID, contextkeys.GetBranchID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if overrides == nil {
		overrides = []permissions.BranchOverride{}
	}
	httputil.WriteData(w, overrides)
}

func (h *permissionHandler) deleteBranchOverride(w http.ResponseWriter, r *http.Request) {
	var req branchOverrideRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PermissionID == "" {
		httputil.WriteBadRequest(w, "userId and permissionId are required")
		return
	}
	err := h.deps.PermStore.DeleteBranchOverride(r.Context(), req.UserID, req.PermissionID,
		contextkeys.GetBranchID(r.Context()))
	if err != nil {
		writePermError(w, err)
		return
	}
	httputil.WriteMessage(w, "Branch override deleted successfully")
}
