package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage"
	"github.com/youssef3092004/Spacefy/pkg/usage"
)

type businessHandler struct {
	deps Deps
}

func newBusinessHandler(deps Deps) *businessHandler {
	return &businessHandler{deps: deps}
}

func (h *businessHandler) RegisterRoutes(r *mux.Router) {
	res := h.deps.Resolver
	inv := h.deps.Cacher.AutoInvalidate("businesses")
	owner := permissions.RequireOwnership(res, permissions.ScopeBusiness, ownerOwnership(h.deps.Businesses.GetOwnerID))

	r.Handle("/businesses/create",
		wrap(h.create, permissions.RequirePermission(res, "CREATE-BUSINESSES", false), inv)).Methods("POST")
	r.Handle("/businesses/getAll",
		wrap(h.getAll, permissions.RequirePermission(res, "VIEW-BUSINESSES", false), h.deps.Cacher.CacheList("businesses"))).Methods("GET")
	r.Handle("/businesses/getById/{id}",
		wrap(h.getByID, permissions.RequirePermission(res, "VIEW-BUSINESSES", false), h.deps.Cacher.CacheByID("businesses"))).Methods("GET")
	r.Handle("/businesses/update/{id}",
		wrap(h.update, permissions.RequirePermission(res, "UPDATE-BUSINESSES", false), owner, inv)).Methods("PUT")
	r.Handle("/businesses/deleteById/{id}",
		wrap(h.deleteByID, permissions.RequirePermission(res, "DELETE-BUSINESSES", false), owner, inv)).Methods("DELETE")
	r.Handle("/businesses/usage/{id}",
		wrap(h.getUsage, permissions.RequirePermission(res, "VIEW-BUSINESSES", false), owner)).Methods("GET")

	sinv := h.deps.Cacher.AutoInvalidate("businessSettings")
	r.Handle("/businessSettings/create",
		wrap(h.createSettings, permissions.RequirePermission(res, "CREATE-BUSINESS-SETTINGS", false), sinv)).Methods("POST")
	r.Handle("/businessSettings/getById/{id}",
		wrap(h.getSettings, permissions.RequirePermission(res, "VIEW-BUSINESS-SETTINGS", false), h.deps.Cacher.CacheByID("businessSettings"))).Methods("GET")
	r.Handle("/businessSettings/update/{id}",
		wrap(h.updateSettings, permissions.RequirePermission(res, "UPDATE-BUSINESS-SETTINGS", false), owner, sinv)).Methods("PUT")
	r.Handle("/businessSettings/deleteById/{id}",
		wrap(h.deleteSettings, permissions.RequirePermission(res, "DELETE-BUSINESS-SETTINGS", false), owner, sinv)).Methods("DELETE")
}

type businessRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *businessHandler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req businessRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	b := &storage.Business{OwnerID: p.UserID, Name: req.Name, Description: req.Description}
	if err := h.deps.Businesses.Create(r.Context(), b); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, b)
}

func (h *businessHandler) getAll(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r)
	businesses, total, err := h.deps.Businesses.List(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if businesses == nil {
		businesses = []storage.Business{}
	}
	httputil.WriteList(w, businesses, p.Meta(total))
}

func (h *businessHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	b, err := h.deps.Businesses.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Business not found", "")
		return
	}
	httputil.WriteData(w, b)
}

func (h *businessHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	b, err := h.deps.Businesses.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Business not found", "")
		return
	}

	var req businessRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name != "" {
		b.Name = req.Name
	}
	if req.Description != "" {
		b.Description = req.Description
	}

	if err := h.deps.Businesses.Update(r.Context(), b); err != nil {
		writeStoreError(w, err, "Business not found", "")
		return
	}
	httputil.WriteData(w, b)
}

func (h *businessHandler) deleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Businesses.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err, "Business not found", "")
		return
	}
	httputil.WriteMessage(w, "Business deleted successfully")
}

func (h *businessHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	rec, err := usage.Get(r.Context(), h.deps.DB, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, rec)
}

type settingsRequest struct {
	BusinessID string `json:"businessId"`
	Currency   string `json:"currency"`
	Timezone   string `json:"timezone"`
	Language   string `json:"language"`
}

func (h *businessHandler) createSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.BusinessID == "" {
		httputil.WriteBadRequest(w, "businessId is required")
		return
	}

	bs := &storage.BusinessSettings{
		BusinessID: req.BusinessID,
		Currency:   req.Currency,
		Timezone:   req.Timezone,
		Language:   req.Language,
	}
	if err := h.deps.Businesses.CreateSettings(r.Context(), bs); err != nil {
		writeStoreError(w, err, "Business not found", "Settings already exist for this business")
		return
	}
	httputil.WriteCreated(w, bs)
}

// settings routes address the business id, not the settings row id, so
// the ownership guard sees the owning business directly
func (h *businessHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	bs, err := h.deps.Businesses.GetSettings(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Business settings not found", "")
		return
	}
	httputil.WriteData(w, bs)
}

func (h *businessHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	bs, err := h.deps.Businesses.GetSettings(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Business settings not found", "")
		return
	}

	var req settingsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Currency != "" {
		bs.Currency = req.Currency
	}
	if req.Timezone != "" {
		bs.Timezone = req.Timezone
	}
	if req.Language != "" {
		bs.Language = req.Language
	}

	if err := h.deps.Businesses.UpdateSettings(r.Context(), bs); err != nil {
		writeStoreError(w, err, "Business settings not found", "")
		return
	}
	httputil.WriteData(w, bs)
}

func (h *businessHandler) deleteSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Businesses.DeleteSettings(r.Context(), id); err != nil {
		writeStoreError(w, err, "Business settings not found", "")
		return
	}
	httputil.WriteMessage(w, "Business settings deleted successfully")
}
