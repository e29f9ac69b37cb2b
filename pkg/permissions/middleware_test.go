package permissions

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/contextkeys"
)

func grantedResolver(t *testing.T) *Resolver {
	t.Helper()
	store := newFakeStore()
	store.permissions["CREATE-BRANCHES"] = "p-1"
	store.roleGrants["r-staff|p-1"] = true
	return NewResolver(store, ResolverOptions{})
}

func authedRequest(r *http.Request, p *auth.Principal) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func serve(router *mux.Router, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRequirePermission_Allowed(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/branches/create", okHandler()).Methods("POST")
	router.Use(RequirePermission(grantedResolver(t), "CREATE-BRANCHES", true))

	r := httptest.NewRequest("POST", "/api/branches/create", strings.NewReader(`{"branchId":"b-1","name":"x"}`))
	r = authedRequest(r, staffPrincipal())

	if w := serve(router, r); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequirePermission_DeniedMessage(t *testing.T) {
	store := newFakeStore()
	store.permissions["CREATE-BRANCHES"] = "p-1"
	resolver := NewResolver(store, ResolverOptions{})

	router := mux.NewRouter()
	router.Handle("/api/branches/create", okHandler()).Methods("POST")
	router.Use(RequirePermission(resolver, "CREATE-BRANCHES", true))

	r := httptest.NewRequest("POST", "/api/branches/create", strings.NewReader(`{"branchId":"b-1"}`))
	r = authedRequest(r, staffPrincipal())
	w := serve(router, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Create Branches") {
		t.Errorf("Expected humanized permission name in message, got %s", w.Body.String())
	}
}

func TestRequirePermission_MissingBranchID(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/branches/create", okHandler()).Methods("POST")
	router.Use(RequirePermission(grantedResolver(t), "CREATE-BRANCHES", true))

	r := httptest.NewRequest("POST", "/api/branches/create", strings.NewReader(`{"name":"x"}`))
	r = authedRequest(r, staffPrincipal())

	if w := serve(router, r); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without branchId, got %d", w.Code)
	}
}

func TestRequirePermission_BranchIDFromPath(t *testing.T) {
	var gotBranch string
	router := mux.NewRouter()
	router.Handle("/api/branches/{branchId}/devices/getAll", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBranch = contextkeys.GetBranchID(r.Context())
		w.WriteHeader(http.StatusOK)
	})).Methods("GET")

	store := newFakeStore()
	store.permissions["VIEW-DEVICES"] = "p-1"
	store.roleGrants["r-staff|p-1"] = true
	router.Use(RequirePermission(NewResolver(store, ResolverOptions{}), "VIEW-DEVICES", true))

	r := httptest.NewRequest("GET", "/api/branches/b-42/devices/getAll", nil)
	r = authedRequest(r, staffPrincipal())

	if w := serve(router, r); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if gotBranch != "b-42" {
		t.Errorf("Expected branch id from path in context, got %q", gotBranch)
	}
}

func TestRequirePermission_BranchIDFromQuery(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/devices/getAll", okHandler()).Methods("GET")
	store := newFakeStore()
	store.permissions["VIEW-DEVICES"] = "p-1"
	store.roleGrants["r-staff|p-1"] = true
	router.Use(RequirePermission(NewResolver(store, ResolverOptions{}), "VIEW-DEVICES", true))

	r := httptest.NewRequest("GET", "/api/devices/getAll?branchId=b-7", nil)
	r = authedRequest(r, staffPrincipal())

	if w := serve(router, r); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with query branchId, got %d", w.Code)
	}
}

func TestRequirePermission_BodyRestoredForHandler(t *testing.T) {
	var decoded map[string]string
	router := mux.NewRouter()
	router.Handle("/api/branches/create", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &decoded)
		w.WriteHeader(http.StatusOK)
	})).Methods("POST")
	router.Use(RequirePermission(grantedResolver(t), "CREATE-BRANCHES", true))

	r := httptest.NewRequest("POST", "/api/branches/create", strings.NewReader(`{"branchId":"b-1","name":"Downtown"}`))
	r = authedRequest(r, staffPrincipal())

	if w := serve(router, r); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if decoded["name"] != "Downtown" {
		t.Errorf("Expected handler to read restored body, got %v", decoded)
	}
}

func TestRequirePermission_UnseededPermissionIs500(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/branches/create", okHandler()).Methods("POST")
	router.Use(RequirePermission(NewResolver(newFakeStore(), ResolverOptions{}), "NOT-SEEDED", false))

	r := httptest.NewRequest("POST", "/api/branches/create", nil)
	r = authedRequest(r, staffPrincipal())
	w := serve(router, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 for unseeded permission, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Permission not defined: NOT-SEEDED") {
		t.Errorf("Expected config error message, got %s", w.Body.String())
	}
}

func TestRequirePermission_Unauthenticated(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/branches/create", okHandler()).Methods("POST")
	router.Use(RequirePermission(grantedResolver(t), "CREATE-BRANCHES", false))

	if w := serve(router, httptest.NewRequest("POST", "/api/branches/create", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without principal, got %d", w.Code)
	}
}

func TestRequireOwnership(t *testing.T) {
	resolver := NewResolver(newFakeStore(), ResolverOptions{})

	load := func(r *http.Request, id string) (*Ownership, error) {
		if id == "missing" {
			return nil, nil
		}
		return &Ownership{OwnerID: "u-owner"}, nil
	}

	router := mux.NewRouter()
	router.Handle("/api/businesses/getById/{id}", okHandler()).Methods("GET")
	router.Use(RequireOwnership(resolver, ScopeBusiness, load))

	// owner passes
	r := httptest.NewRequest("GET", "/api/businesses/getById/biz-1", nil)
	r = authedRequest(r, &auth.Principal{UserID: "u-owner", RoleName: auth.RoleCustomer})
	if w := serve(router, r); w.Code != http.StatusOK {
		t.Errorf("Expected owner to pass, got %d", w.Code)
	}

	// non-owner denied
	r = httptest.NewRequest("GET", "/api/businesses/getById/biz-1", nil)
	r = authedRequest(r, &auth.Principal{UserID: "u-other", RoleName: auth.RoleCustomer})
	if w := serve(router, r); w.Code != http.StatusForbidden {
		t.Errorf("Expected non-owner 403, got %d", w.Code)
	}

	// admin bypasses
	r = httptest.NewRequest("GET", "/api/businesses/getById/biz-1", nil)
	r = authedRequest(r, &auth.Principal{UserID: "u-x", RoleName: auth.RoleAdmin})
	if w := serve(router, r); w.Code != http.StatusOK {
		t.Errorf("Expected ADMIN bypass, got %d", w.Code)
	}

	// missing resource is 404
	r = httptest.NewRequest("GET", "/api/businesses/getById/missing", nil)
	r = authedRequest(r, &auth.Principal{UserID: "u-owner", RoleName: auth.RoleCustomer})
	if w := serve(router, r); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing resource, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/admin", okHandler()).Methods("GET")
	router.Use(RequireRole(auth.RoleOwner, auth.RoleAdmin))

	r := httptest.NewRequest("GET", "/api/admin", nil)
	r = authedRequest(r, &auth.Principal{UserID: "u-1", RoleName: auth.RoleAdmin})
	if w := serve(router, r); w.Code != http.StatusOK {
		t.Errorf("Expected allowed role to pass, got %d", w.Code)
	}

	r = httptest.NewRequest("GET", "/api/admin", nil)
	r = authedRequest(r, &auth.Principal{UserID: "u-1", RoleName: auth.RoleStaff})
	if w := serve(router, r); w.Code != http.StatusForbidden {
		t.Errorf("Expected disallowed role 403, got %d", w.Code)
	}
}
