package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/youssef3092004/Spacefy/pkg/async"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// sweepTimeout bounds the fire-and-forget invalidation sweep
const sweepTimeout = 30 * time.Second

// Cacher provides the response cache and auto invalidation middleware
// for a router. Cache failures are never surfaced to callers: a broken
// redis degrades every read to a miss.
type Cacher struct {
	client  *Client
	inv     *Invalidator
	logger  *observability.Logger
	metrics *observability.Metrics
	ttlList time.Duration
	ttlByID time.Duration
	enabled bool
}

// CacherOptions configure a Cacher
type CacherOptions struct {
	Enabled bool
	TTLList time.Duration
	TTLByID time.Duration
	Metrics *observability.Metrics
}

// NewCacher creates the middleware provider
func NewCacher(client *Client, inv *Invalidator, logger *observability.Logger, opts CacherOptions) *Cacher {
	return &Cacher{
		client:  client,
		inv:     inv,
		logger:  logger,
		metrics: opts.Metrics,
		ttlList: opts.TTLList,
		ttlByID: opts.TTLByID,
		enabled: opts.Enabled,
	}
}

// captureWriter tees the response into a buffer while writing through
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

// CacheList caches paginated list responses for an entity under the
// list TTL. The key encodes page, limit, sort and order, so every page
// is cached independently.
func (c *Cacher) CacheList(entity string) mux.MiddlewareFunc {
	return c.cached(entity, c.ttlList, "list", func(r *http.Request) string {
		return ListKey(entity, httputil.ParsePagination(r))
	})
}

// CacheByID caches single-resource responses under the by-id TTL
func (c *Cacher) CacheByID(entity string) mux.MiddlewareFunc {
	return c.cached(entity, c.ttlByID, "by_id", func(r *http.Request) string {
		return IDKey(entity, mux.Vars(r)["id"])
	})
}

func (c *Cacher) cached(entity string, ttl time.Duration, category string, keyFn func(*http.Request) string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.enabled || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFn(r)
			if data, err := c.client.Get(r.Context(), key); err == nil {
				if c.metrics != nil {
					c.metrics.CacheHitsTotal.WithLabelValues(category).Inc()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write(data)
				return
			}
			// miss and redis failure look the same to the caller
			if c.metrics != nil {
				c.metrics.CacheMissesTotal.WithLabelValues(category).Inc()
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status != http.StatusOK {
				return
			}
			body, ok := markCached(cw.body.Bytes())
			if !ok {
				return
			}

			ctx := r.Context()
			if err := c.client.Set(ctx, key, body, ttl); err != nil {
				observability.FromContext(ctx).WithError(err).Warn("failed to cache response")
				return
			}
			shape := RequestShape{RouteEntity: entity, Params: mux.Vars(r)}
			if err := c.inv.IndexKey(ctx, key, shape); err != nil {
				observability.FromContext(ctx).WithError(err).Warn("failed to index cache key")
			}
		})
	}
}

// markCached verifies the body is a success envelope and rewrites its
// source so cache hits are distinguishable. Error envelopes and
// non-JSON bodies are never cached.
func markCached(body []byte) ([]byte, bool) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}
	success, ok := envelope["success"].(bool)
	if !ok || !success {
		return nil, false
	}
	envelope["source"] = "cache"
	out, err := json.Marshal(envelope)
	if err != nil {
		return nil, false
	}
	return out, true
}

// AutoInvalidate sweeps the entity's cache after successful mutations.
// The sweep runs in the background after the response is sent, so write
// latency never pays for cache maintenance.
func (c *Cacher) AutoInvalidate(entity string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status < 200 || cw.status >= 400 {
				return
			}

			shape := RequestShape{RouteEntity: entity, Params: copyParams(mux.Vars(r))}
			requestID := observability.GetRequestID(r.Context())
			async.SafeGo(c.logger, "cache-invalidation", func() {
				ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
				defer cancel()
				n, err := c.inv.Invalidate(ctx, shape)
				if err != nil {
					c.logger.WithError(err).WithFields(map[string]interface{}{
						"entity":     shape.RouteEntity,
						"request_id": requestID,
					}).Error("cache invalidation sweep failed")
					return
				}
				c.logger.WithFields(map[string]interface{}{
					"entity":       shape.RouteEntity,
					"keys_deleted": n,
					"request_id":   requestID,
				}).Debug("cache invalidation sweep completed")
			})
		})
	}
}

// copyParams snapshots route vars before the request context is recycled
func copyParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
