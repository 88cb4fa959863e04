package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access decisions by outcome
	AccessDecisionsTotal *prometheus.CounterVec

	// Vote engine
	VoteJoinDuration         prometheus.Histogram
	VoteJoinErrorsTotal      prometheus.Counter
	VotesJoinedTotal         prometheus.Counter
	VoteNormalizationsTotal  *prometheus.CounterVec
	VotesCastTotal           *prometheus.CounterVec
	IssueAggregationDuration prometheus.Histogram

	// Region cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// builds unregistered collectors, which is what tests want.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agora_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_access_decisions_total",
				Help: "Access decisions by outcome",
			},
			[]string{"outcome"},
		),
		VoteJoinDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agora_vote_join_duration_seconds",
				Help:    "Time spent attaching votes to content objects",
				Buckets: prometheus.DefBuckets,
			},
		),
		VoteJoinErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agora_vote_join_errors_total",
				Help: "Vote joins that failed",
			},
		),
		VotesJoinedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agora_votes_joined_total",
				Help: "Votes read by the vote join after geofencing",
			},
		),
		VoteNormalizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_vote_normalizations_total",
				Help: "Legacy vote object types rewritten on read",
			},
			[]string{"result"},
		),
		VotesCastTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_votes_cast_total",
				Help: "Votes cast, split by insert or update",
			},
			[]string{"result"},
		),
		IssueAggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agora_issue_aggregation_duration_seconds",
				Help:    "Time spent computing issue metadata",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_region_cache_hits_total",
				Help: "Region postcode cache hits by tier",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agora_region_cache_misses_total",
				Help: "Region postcode cache misses",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.AccessDecisionsTotal,
			m.VoteJoinDuration,
			m.VoteJoinErrorsTotal,
			m.VotesJoinedTotal,
			m.VoteNormalizationsTotal,
			m.VotesCastTotal,
			m.IssueAggregationDuration,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
		)
	}

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. Requests are labelled by
// route template rather than raw path to keep cardinality bounded.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
