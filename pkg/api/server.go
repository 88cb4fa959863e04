package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/agora/pkg/access"
	"github.com/platinummonkey/agora/pkg/httputil"
	"github.com/platinummonkey/agora/pkg/middleware"
	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/rbac"
	"github.com/platinummonkey/agora/pkg/storage"
	"github.com/platinummonkey/agora/pkg/votes"
)

// RegionInvalidator drops cached postcodes for a region
type RegionInvalidator interface {
	Invalidate(ctx context.Context, regionID string) error
}

// Dependencies is everything the server wires together. Store, Tokens,
// Engine, Joiner, Aggregator and Caster are required; the rest may be nil.
type Dependencies struct {
	Store      storage.Store
	Tokens     middleware.Authenticator
	Engine     *access.Engine
	Loader     access.TargetLoader
	Joiner     *votes.Joiner
	Aggregator *votes.Aggregator
	Caster     *votes.Caster

	RegionCache  RegionInvalidator
	VoteLimiter  *middleware.RateLimiter
	Health       *observability.HealthChecker
	Metrics      *observability.Metrics
	Registry     *prometheus.Registry
	Logger       *observability.Logger
	MaxBodyBytes int64
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	api     *mux.Router
	deps    Dependencies
	content *ContentHandlers
	votes   *VoteHandlers
	regions *RegionHandlers
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Loader == nil {
		deps.Loader = access.NewStoreTargetLoader(deps.Store)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router:  mux.NewRouter(),
		deps:    deps,
		content: NewContentHandlers(deps.Store, deps.Joiner, deps.Aggregator),
		votes:   NewVoteHandlers(deps.Caster, deps.VoteLimiter),
		regions: NewRegionHandlers(deps.Store, deps.RegionCache),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RecoveryMiddleware(s.panicLogger()))
	s.router.Use(middleware.RequestIDMiddleware(s.deps.Logger))
	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}

	if s.deps.Health != nil {
		observability.RegisterHealthRoutes(s.router, s.deps.Health)
	}
	if s.deps.Registry != nil {
		observability.RegisterMetricsEndpoint(s.router, s.deps.Registry)
	}

	// Everything under /api/v1 is authenticated, scoped to a tenant and
	// authorized before a handler runs.
	s.api = s.router.PathPrefix(strings.TrimSuffix(rbac.APIPrefix, "/")).Subrouter()
	s.api.Use(httputil.MaxBytesMiddleware(s.deps.MaxBodyBytes))
	s.api.Use(httputil.ContentTypeMiddleware)
	s.api.Use(middleware.NewAuthMiddleware(s.deps.Tokens).Handler)
	s.api.Use(middleware.OrgContextMiddleware(s.deps.Store))
	s.api.Use(access.Middleware(s.deps.Engine, s.deps.Loader))

	s.votes.RegisterRoutes(s.api)
	s.regions.RegisterRoutes(s.api)
	s.content.RegisterRoutes(s.api)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "Not found")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped in OpenTelemetry server instrumentation
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "agora")
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers extra routes under /api/v1 so that they pass
// through authentication and the access engine.
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.api)
}

func (s *Server) panicLogger() httputil.PanicLogger {
	if s.deps.Logger != nil {
		return s.deps.Logger
	}
	return observability.GetLogger(context.Background())
}

// collectionPattern matches any content collection segment
var collectionPattern = strings.Join(models.Collections(), "|")
