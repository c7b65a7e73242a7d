// Package observability provides structured logging, Prometheus metrics,
// health probes, and graceful shutdown for the TapeCert service.
//
// # Structured Logging
//
// Logger wraps stdlib slog with JSON output:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("username", "shop1").Info("certificate created")
//
// WithContext pulls the request ID and authenticated identity out of a
// request context so handler logs correlate with access logs:
//
//	logger.WithContext(r.Context()).Warn("image rejected")
//
// # Prometheus Metrics
//
// NewMetrics registers HTTP, auth, certificate, cache, and database-pool
// metrics on a registry; HTTPMetricsMiddleware instruments the router and
// RegisterMetricsEndpoint exposes /metrics on the ops port.
//
// # Health Checks
//
// HealthChecker probes PostgreSQL (required) and Redis (optional, only
// degrades). RegisterHealthRoutes exposes /health, /health/live, and
// /health/ready.
//
// # Shutdown
//
// ShutdownManager drains the API and ops servers on SIGINT/SIGTERM, then
// runs registered cleanup functions (store close, cache close) under a
// shared timeout.
package observability
