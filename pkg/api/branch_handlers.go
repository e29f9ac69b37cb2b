package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
)

// maxUploadSize bounds branch and space image uploads
const maxUploadSize = 10 << 20

type branchHandler struct {
	deps Deps
}

func newBranchHandler(deps Deps) *branchHandler {
	return &branchHandler{deps: deps}
}

func (h *branchHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver
	inv := h.deps.Cacher.AutoInvalidate("branches")
	access := permissions.RequireOwnership(res, permissions.ScopeBranch, branchOwnership(h.branchSelfID))

	r.Handle("/branches/create",
		wrap(h.create, permissions.RequirePermission(res, "CREATE-BRANCHES", false), inv)).Methods("POST")
	r.Handle("/branches/getAll",
		wrap(h.getAll, permissions.RequirePermission(res, "VIEW-BRANCHES", false), h.deps.Cacher.CacheList("branches"))).Methods("GET")
	r.Handle("/branches/getById/{id}",
		wrap(h.getByID, permissions.RequirePermission(res, "VIEW-BRANCHES", false), h.deps.Cacher.CacheByID("branches"))).Methods("GET")
	r.Handle("/branches/update/{id}",
		wrap(h.update, permissions.RequirePermission(res, "UPDATE-BRANCHES", false), access, inv)).Methods("PUT")
	r.Handle("/branches/deleteById/{id}",
		wrap(h.deleteByID, permissions.RequirePermission(res, "DELETE-BRANCHES", false), inv)).Methods("DELETE")
	r.Handle("/branches/deleteAll",
		wrap(h.deleteAll, permissions.RequirePermission(res, "DELETE-BRANCHES", false), inv)).Methods("DELETE")
	r.Handle("/branches/uploadImage/{id}",
		wrap(h.uploadImage, permissions.RequirePermission(res, "UPDATE-BRANCHES", false), access, inv)).Methods("POST")
}

// branchSelfID feeds the branch ownership check with the branch's own id
func (h *branchHandler) branchSelfID(ctx context.Context, id string) (string, error) {
	return id, nil
}

type branchRequest struct {
	BusinessID string `json:"businessId"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
}

func (h *branchHandler) create(w http.ResponseWriter, r *http.Request) {
	var req branchRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.BusinessID == "" || req.Name == "" {
		httputil.WriteBadRequest(w, "businessId and name are required")
		return
	}

	b := &storage.Branch{BusinessID: req.BusinessID, Name: req.Name, Address: req.Address, Phone: req.Phone}
	if err := h.deps.Branches.Create(r.Context(), b); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, b)
}

func (h *branchHandler) getAll(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	branches, total, err := h.deps.Branches.List(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if branches == nil {
		branches = []storage.Branch{}
	}
	httputil.WriteList(w, branches, p.Meta(total))
}

func (h *branchHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	b, err := h.deps.Branches.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Branch not found", "")
		return
	}
	httputil.WriteData(w, b)
}

func (h *branchHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	b, err := h.deps.Branches.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Branch not found", "")
		return
	}

	var req branchRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name != "" {
		b.Name = req.Name
	}
	if req.Address != "" {
		b.Address = req.Address
	}
	if req.Phone != "" {
		b.Phone = req.Phone
	}

	if err := h.deps.Branches.Update(r.Context(), b); err != nil {
		writeStoreError(w, err, "Branch not found", "")
		return
	}
	httputil.WriteData(w, b)
}

func (h *branchHandler) deleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Branches.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err, "Branch not found", "")
		return
	}
	httputil.WriteMessage(w, "Branch deleted successfully")
}

func (h *branchHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Branches.DeleteAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessageCount(w, "All branches deleted successfully", int(n))
}

func (h *branchHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	if h.deps.Objects == nil {
		httputil.WriteErrorStatus(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	b, err := h.deps.Branches.Get(r.Context(), id)
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

	result, err := h.deps.Objects.Upload(r.Context(), b.BusinessID, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	b.ImageURL = result.URL
	if err := h.deps.Branches.Update(r.Context(), b); err != nil {
		writeStoreError(w, err, "Branch not found", "")
		return
	}
	httputil.WriteData(w, b)
}
