package cache

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/observability"
)

func setupCacher(t *testing.T) (*Cacher, *Client) {
	t.Helper()
	_, client := setupCache(t)
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	inv := NewInvalidator(client, nil)
	cacher := NewCacher(client, inv, logger, CacherOptions{
		Enabled: true,
		TTLList: time.Minute,
		TTLByID: 2 * time.Minute,
	})
	return cacher, client
}

func successHandler(hits *int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"data":{"id":"b-1"},"source":"database"}`))
	}
}

func TestCacheList_HitServedFromCache(t *testing.T) {
	cacher, _ := setupCacher(t)

	var handlerHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getAll", successHandler(&handlerHits)).Methods("GET")
	sub.Use(cacher.CacheList("branches"))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/branches/getAll?page=1&limit=10", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, w.Code)
		}

		var env map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("Bad body: %v", err)
		}
		wantSource := "cache"
		if i == 0 {
			wantSource = "database"
		}
		if env["source"] != wantSource {
			t.Errorf("Request %d: expected source %q, got %v", i, wantSource, env["source"])
		}
	}

	if atomic.LoadInt64(&handlerHits) != 1 {
		t.Errorf("Expected handler to run once, ran %d times", handlerHits)
	}
}

func TestCacheList_DifferentPagesCachedSeparately(t *testing.T) {
	cacher, _ := setupCacher(t)

	var handlerHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getAll", successHandler(&handlerHits)).Methods("GET")
	sub.Use(cacher.CacheList("branches"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll?page=1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll?page=2", nil))

	if atomic.LoadInt64(&handlerHits) != 2 {
		t.Errorf("Expected separate cache entries per page, handler ran %d times", handlerHits)
	}
}

func TestCache_ErrorResponsesNotCached(t *testing.T) {
	cacher, _ := setupCacher(t)

	var handlerHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getAll", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&handlerHits, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":false,"error":"nope"}`))
	})).Methods("GET")
	sub.Use(cacher.CacheList("branches"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll", nil))

	if atomic.LoadInt64(&handlerHits) != 2 {
		t.Errorf("Expected failure envelope to never be cached, handler ran %d times", handlerHits)
	}
}

func TestCache_Non200NotCached(t *testing.T) {
	cacher, _ := setupCacher(t)

	var handlerHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getById/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&handlerHits, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"Branch not found"}`))
	})).Methods("GET")
	sub.Use(cacher.CacheByID("branches"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getById/missing", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getById/missing", nil))

	if atomic.LoadInt64(&handlerHits) != 2 {
		t.Errorf("Expected 404 to never be cached, handler ran %d times", handlerHits)
	}
}

func TestCache_FailsOpenWhenRedisDown(t *testing.T) {
	mr, client := setupCache(t)
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	cacher := NewCacher(client, NewInvalidator(client, nil), logger, CacherOptions{
		Enabled: true,
		TTLList: time.Minute,
		TTLByID: time.Minute,
	})
	mr.Close()

	var handlerHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getAll", successHandler(&handlerHits)).Methods("GET")
	sub.Use(cacher.CacheList("branches"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/branches/getAll", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected request to succeed with redis down, got %d", w.Code)
	}
	if atomic.LoadInt64(&handlerHits) != 1 {
		t.Errorf("Expected handler to serve the request, ran %d times", handlerHits)
	}
}

func TestAutoInvalidate_SweepsAfterMutation(t *testing.T) {
	cacher, client := setupCacher(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	var readHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getAll", successHandler(&readHits)).Methods("GET")
	sub.Handle("/update/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"data":{"id":"b-1"}}`))
	})).Methods("PUT")
	sub.Use(cacher.CacheList("branches"))
	sub.Use(cacher.AutoInvalidate("branches"))

	// warm the cache
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll", nil))
	if atomic.LoadInt64(&readHits) != 1 {
		t.Fatalf("Expected warm cache, handler ran %d times", readHits)
	}

	// mutate
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PUT", "/api/branches/update/b-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Mutation failed: %d", w.Code)
	}

	// sweep is async
	key := "branches:page=1:limit=10:sort=createdAt:order=desc"
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := client.Get(ctx, key); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected list cache entry swept after mutation")
}

func TestAutoInvalidate_RedisDownLeavesResponseUntouched(t *testing.T) {
	mr, client := setupCache(t)
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	cacher := NewCacher(client, NewInvalidator(client, nil), logger, CacherOptions{
		Enabled: true,
		TTLList: time.Minute,
		TTLByID: time.Minute,
	})

	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/update/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"data":{"id":"b-1"},"message":"Branch updated successfully"}`))
	})).Methods("PUT")
	sub.Use(cacher.AutoInvalidate("branches"))

	// the sweep runs against a dead redis; the response must not notice
	mr.Close()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PUT", "/api/branches/update/b-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 with redis down, got %d", w.Code)
	}
	var env map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if env["success"] != true || env["message"] != "Branch updated successfully" {
		t.Errorf("Expected mutation envelope untouched, got %s", w.Body.String())
	}

	// let the background sweep hit the closed client and drain
	time.Sleep(100 * time.Millisecond)
}

func TestAutoInvalidate_FailedMutationLeavesCache(t *testing.T) {
	cacher, client := setupCacher(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	var readHits int64
	router := mux.NewRouter()
	sub := router.PathPrefix("/api/branches").Subrouter()
	sub.Handle("/getAll", successHandler(&readHits)).Methods("GET")
	sub.Handle("/update/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"error":"denied"}`))
	})).Methods("PUT")
	sub.Use(cacher.CacheList("branches"))
	sub.Use(cacher.AutoInvalidate("branches"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/branches/getAll", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PUT", "/api/branches/update/b-1", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", w.Code)
	}

	// give any stray sweep a moment, then confirm the entry survived
	time.Sleep(100 * time.Millisecond)
	key := "branches:page=1:limit=10:sort=createdAt:order=desc"
	if _, err := client.Get(ctx, key); err != nil {
		t.Error("Expected cache entry to survive a failed mutation")
	}
}
