package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	AuthzLayerHitsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal          *prometheus.CounterVec
	CacheMissesTotal        *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec
	CacheKeysDeletedTotal   prometheus.Counter
	CacheErrorsTotal        *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	BranchesTotal       prometheus.Gauge
	StorageUsageBytes   *prometheus.GaugeVec
	BlacklistedTokens   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spacefy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spacefy_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"permission", "decision"},
		),
		AuthzLayerHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_authz_layer_hits_total",
				Help: "Which override layer produced the decision",
			},
			[]string{"layer"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"category"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"category"},
		),
		CacheInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_cache_invalidations_total",
				Help: "Total number of tag-based invalidation sweeps",
			},
			[]string{"entity"},
		),
		CacheKeysDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spacefy_cache_keys_deleted_total",
				Help: "Total number of cache keys removed by invalidation",
			},
		),
		CacheErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacefy_cache_errors_total",
				Help: "Total number of cache store errors (all fail open)",
			},
			[]string{"operation"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacefy_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacefy_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		BranchesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacefy_branches_total",
				Help: "Total number of branches",
			},
		),
		StorageUsageBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spacefy_storage_usage_bytes",
				Help: "Stored object bytes per business",
			},
			[]string{"business_id"},
		),
		BlacklistedTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacefy_blacklisted_tokens",
				Help: "Number of blacklisted session tokens",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AuthzDecisionsTotal,
		m.AuthzLayerHitsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidationsTotal,
		m.CacheKeysDeletedTotal,
		m.CacheErrorsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.BranchesTotal,
		m.StorageUsageBytes,
		m.BlacklistedTokens,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// Handler serves the registered metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
