// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry tracing for the agora server.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org", slug).Info("organization resolved")
//
// Request handlers should use FromContext, which carries the request id and
// the authenticated user id.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AccessDecisionsTotal.WithLabelValues("allow").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, redisClient)
//	status := checker.Check(ctx)
//
// # Tracing
//
// InitOTel installs an OTLP gRPC exporter when enabled. Tracer is safe to use
// either way; without a provider the spans are no-ops.
package observability
