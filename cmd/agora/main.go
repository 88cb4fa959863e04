package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/agora/pkg/access"
	"github.com/platinummonkey/agora/pkg/api"
	"github.com/platinummonkey/agora/pkg/async"
	"github.com/platinummonkey/agora/pkg/auth"
	"github.com/platinummonkey/agora/pkg/config"
	"github.com/platinummonkey/agora/pkg/maintenance"
	"github.com/platinummonkey/agora/pkg/middleware"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
	"github.com/platinummonkey/agora/pkg/storage/sqlstore"
	"github.com/platinummonkey/agora/pkg/votes"
)

var (
	issueToken = flag.String("issue-token", "", "Issue an API token for the given user ID, print it and exit")
	tokenTTL   = flag.Duration("token-ttl", 0, "Lifetime of a token issued with -issue-token (0 never expires)")
	sweepOnce  = flag.Bool("sweep-once", false, "Run every maintenance job once and exit")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agora: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	ctx := observability.WithLogger(context.Background(), logger)

	store, err := sqlstore.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if *issueToken != "" {
		token, err := auth.NewTokenManager(store).Issue(ctx, *issueToken, *tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	sweeper := maintenance.NewSweeper(store, logger)
	if *sweepOnce {
		fixed, err := sweeper.NormalizeLegacyVotes(ctx)
		if err != nil {
			return err
		}
		purged, err := sweeper.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{
			"votes_normalized": fixed,
			"tokens_purged":    purged,
		}).Info("Maintenance sweep complete")
		return nil
	}

	return serve(ctx, cfg, logger, store, sweeper)
}

func serve(ctx context.Context, cfg *config.Config, logger *observability.Logger, store *sqlstore.Store, sweeper *maintenance.Sweeper) error {
	tp, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			// postcode lookups and vote limiting both work without redis
			logger.WithError(err).Warn("Redis unavailable, continuing without it")
			redisClient = nil
		}
	}

	geofence := votes.NewGeofenceResolver(store)
	var (
		resolver    votes.PostcodeResolver = geofence
		regionCache api.RegionInvalidator
	)
	if cfg.Storage.CacheEnabled {
		cached := votes.NewCachedResolver(geofence, redisClient, votes.CacheConfig{
			Entries: cfg.Storage.L1CacheEntries,
			TTL:     cfg.Storage.CacheTTL,
		}, metrics)
		resolver, regionCache = cached, cached
	}

	tracker := async.NewTracker()
	joiner := votes.NewJoiner(store, resolver, metrics).WithLauncher(tracker.Go)

	var limiter *middleware.RateLimiter
	if redisClient != nil && cfg.Votes.RateLimitRequests > 0 {
		limiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Votes.RateLimitRequests,
			WindowDuration:    cfg.Votes.RateLimitWindow,
		}, "agora:ratelimit:votes")
	}

	server := api.NewServer(api.Dependencies{
		Store:        store,
		Tokens:       auth.NewTokenManager(store),
		Engine:       access.NewEngine(nil, access.NewOwnershipResolver(store), metrics),
		Joiner:       joiner,
		Aggregator:   votes.NewAggregator(store, joiner, metrics),
		Caster:       votes.NewCaster(store, metrics),
		RegionCache:  regionCache,
		VoteLimiter:  limiter,
		Health:       observability.NewHealthChecker(store, redisClient),
		Metrics:      metrics,
		Registry:     registry,
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, tp, logger)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	// background vote fixes still need the store, so they drain before it closes
	shutdown.RegisterShutdownFunc(tracker.Wait)

	if cfg.Maintenance.Enabled {
		scheduler, err := maintenance.NewScheduler(sweeper, cfg.Maintenance.Schedules)
		if err != nil {
			return err
		}
		scheduler.Start()
		shutdown.RegisterShutdownFunc(scheduler.Stop)
		logger.Infof("Maintenance scheduler started with %d jobs", scheduler.Jobs())
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if path := os.Getenv("AGORA_CONFIG_FILE"); path != "" {
		go func() {
			err := config.Watch(watchCtx, path, func(next *config.Config) {
				logger.SetLevel(next.Observability.Level())
				logger.Infof("Configuration reloaded, log level %s", next.Observability.Level())
			}, func(err error) {
				logger.WithError(err).Warn("Configuration reload failed")
			})
			if err != nil {
				logger.WithError(err).Warn("Configuration watcher stopped")
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting agora on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err, ok := <-serveErr; ok {
			logger.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	start := time.Now()
	err = shutdown.WaitForShutdown(waitCtx)
	logger.Infof("Server ran for %s", time.Since(start).Round(time.Second))
	return err
}
