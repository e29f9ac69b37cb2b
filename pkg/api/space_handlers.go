package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/contextkeys"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

type spaceHandler struct {
	deps Deps
}

func newSpaceHandler(deps Deps) *spaceHandler {
	return &spaceHandler{deps: deps}
}

func (h *spaceHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver

	sinv := h.deps.Cacher.AutoInvalidate("spaces")
	spaceOwner := permissions.RequireOwnership(res, permissions.ScopeBranch, branchOwnership(h.deps.Spaces.GetSpaceBranchID))

	r.Handle("/spaces/create",
		wrap(h.createSpace, permissions.RequirePermission(res, "CREATE-SPACES", true), sinv)).Methods("POST")
	// branch-scoped lists skip the list cache: its key encodes only
	// pagination, which would collide across branches
	r.Handle("/spaces/getAll",
		wrap(h.getAllSpaces, permissions.RequirePermission(res, "VIEW-SPACES", true))).Methods("GET")
	r.Handle("/spaces/getById/{id}",
		wrap(h.getSpaceByID, permissions.RequirePermission(res, "VIEW-SPACES", false), h.deps.Cacher.CacheByID("spaces"))).Methods("GET")
	r.Handle("/spaces/update/{id}",
		wrap(h.updateSpace, permissions.RequirePermission(res, "UPDATE-SPACES", false), spaceOwner, sinv)).Methods("PUT")
	r.Handle("/spaces/deleteById/{id}",
		wrap(h.deleteSpaceByID, permissions.RequirePermission(res, "DELETE-SPACES", false), spaceOwner, sinv)).Methods("DELETE")
	r.Handle("/spaces/uploadImage/{id}",
		wrap(h.uploadSpaceImage, permissions.RequirePermission(res, "UPDATE-SPACES", false), spaceOwner, sinv)).Methods("POST")

	dinv := h.deps.Cacher.AutoInvalidate("devices")
	deviceOwner := permissions.RequireOwnership(res, permissions.ScopeBranch, branchOwnership(h.deps.Spaces.GetDeviceBranchID))

	r.Handle("/devices/create",
		wrap(h.createDevice, permissions.RequirePermission(res, "CREATE-DEVICES", true), dinv)).Methods("POST")
	r.Handle("/devices/getAll",
		wrap(h.getAllDevices, permissions.RequirePermission(res, "VIEW-DEVICES", true))).Methods("GET")
	r.Handle("/devices/getById/{id}",
		wrap(h.getDeviceByID, permissions.RequirePermission(res, "VIEW-DEVICES", false), h.deps.Cacher.CacheByID("devices"))).Methods("GET")
	r.Handle("/devices/update/{id}",
		wrap(h.updateDevice, permissions.RequirePermission(res, "UPDATE-DEVICES", false), deviceOwner, dinv)).Methods("PUT")
	r.Handle("/devices/deleteById/{id}",
		wrap(h.deleteDeviceByID, permissions.RequirePermission(res, "DELETE-DEVICES", false), deviceOwner, dinv)).Methods("DELETE")
}

type spaceRequest struct {
	BranchID   string  `json:"branchId"`
	Name       string  `json:"name"`
	Capacity   int     `json:"capacity"`
	HourlyRate float64 `json:"hourlyRate"`
	Status     string  `json:"status"`
}

func (h *spaceHandler) createSpace(w http.ResponseWriter, r *http.Request) {
	var req spaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	status := req.Status
	if status == "" {
		status = "available"
	}
	sp := &storage.Space{
		BranchID:   contextkeys.GetBranchID(r.Context()),
		Name:       req.Name,
		Capacity:   req.Capacity,
		HourlyRate: req.HourlyRate,
		Status:     status,
	}
	if err := h.deps.Spaces.CreateSpace(r.Context(), sp); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, sp)
}

func (h *spaceHandler) getAllSpaces(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	spaces, total, err := h.deps.Spaces.ListSpaces(r.Context(), contextkeys.GetBranchID(r.Context()), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if spaces == nil {
		spaces = []storage.Space{}
	}
	httputil.WriteList(w, spaces, p.Meta(total))
}

func (h *spaceHandler) getSpaceByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	sp, err := h.deps.Spaces.GetSpace(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Space not found", "")
		return
	}
	httputil.WriteData(w, sp)
}

func (h *spaceHandler) updateSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	sp, err := h.deps.Spaces.GetSpace(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Space not found", "")
		return
	}

	var req spaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name != "" {
		sp.Name = req.Name
	}
	if req.Capacity > 0 {
		sp.Capacity = req.Capacity
	}
	if req.HourlyRate > 0 {
		sp.HourlyRate = req.HourlyRate
	}
	if req.Status != "" {
		sp.Status = req.Status
	}

	if err := h.deps.Spaces.UpdateSpace(r.Context(), sp); err != nil {
		writeStoreError(w, err, "Space not found", "")
		return
	}
	httputil.WriteData(w, sp)
}

func (h *spaceHandler) deleteSpaceByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Spaces.DeleteSpace(r.Context(), id); err != nil {
		writeStoreError(w, err, "Space not found", "")
		return
	}
	httputil.WriteMessage(w, "Space deleted successfully")
}

func (h *spaceHandler) uploadSpaceImage(w http.ResponseWriter, r *http.Request) {
	if h.deps.Objects == nil {
		httputil.WriteErrorStatus(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	sp, err := h.deps.Spaces.GetSpace(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Space not found", "")
		return
	}
	branch, err := h.deps.Branches.Get(r.Context(), sp.BranchID)
	if err != nil {
		writeStoreError(w, err, "Branch not found", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	result, err := h.deps.Objects.Upload(r.Context(), branch.BusinessID, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sp.ImageURL = result.URL
	if err := h.deps.Spaces.UpdateSpace(r.Context(), sp); err != nil {
		writeStoreError(w, err, "Space not found", "")
		return
	}
	httputil.WriteData(w, sp)
}

type deviceRequest struct {
	BranchID string `json:"branchId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

func (h *spaceHandler) createDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	d := &storage.Device{
		BranchID: contextkeys.GetBranchID(r.Context()),
		Name:     req.Name,
		Type:     req.Type,
		Status:   status,
	}
	if err := h.deps.Spaces.CreateDevice(r.Context(), d); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, d)
}

func (h *spaceHandler) getAllDevices(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	devices, total, err := h.deps.Spaces.ListDevices(r.Context(), contextkeys.GetBranchID(r.Context()), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if devices == nil {
		devices = []storage.Device{}
	}
	httputil.WriteList(w, devices, p.Meta(total))
}

func (h *spaceHandler) getDeviceByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	d, err := h.deps.Spaces.GetDevice(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Device not found", "")
		return
	}
	httputil.WriteData(w, d)
}

func (h *spaceHandler) updateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	d, err := h.deps.Spaces.GetDevice(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Device not found", "")
		return
	}

	var req deviceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Type != "" {
		d.Type = req.Type
	}
	if req.Status != "" {
		d.Status = req.Status
	}

	if err := h.deps.Spaces.UpdateDevice(r.Context(), d); err != nil {
		writeStoreError(w, err, "Device not found", "")
		return
	}
	httputil.WriteData(w, d)
}

func (h *spaceHandler) deleteDeviceByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Spaces.DeleteDevice(r.Context(), id); err != nil {
		writeStoreError(w, err, "Device not found", "")
		return
	}
	httputil.WriteMessage(w, "Device deleted successfully")
}
