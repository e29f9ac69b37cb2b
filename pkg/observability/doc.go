// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("addr", addr).Info("starting http server")
//
// Context-aware logging:
//
//	observability.FromContext(ctx).WithError(err).Error("invalidation sweep failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.CacheHitsTotal.WithLabelValues("list").Inc()
//
// HTTP instrumentation:
//
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// # OpenTelemetry
//
// Tracing and metric export are initialized from config and shut down with the
// server; handlers are wrapped with otelhttp at the router level.
package observability
