// Package main provides the entrypoint for the pickup planner API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api"
	"github.com/ishigakitour/pickup/internal/api/handler"
	"github.com/ishigakitour/pickup/internal/api/middleware"
	"github.com/ishigakitour/pickup/internal/auth"
	"github.com/ishigakitour/pickup/internal/config"
	"github.com/ishigakitour/pickup/internal/database"
	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/environment/openmeteo"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pickup-api"

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.NewLogger(os.Stdout, serviceName, Version)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting pickup API")

	if cfg.JWTSigningKey == "" {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics(tp.Meters())
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	planMetrics, err := planning.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize planning metrics")
		os.Exit(1)
	}

	checks := map[string]handler.CheckFunc{}

	// Roster and feature flag storage: Postgres when configured, memory otherwise
	var (
		rosterRepo roster.Repository
		ffRepo     featureflags.Repository
		pool       *pgxpool.Pool
	)
	if cfg.UseDatabase {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.InitSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		rosterRepo = roster.NewPostgresRepository(pool)
		ffRepo = featureflags.NewPostgresRepository(pool)
		checks["postgres"] = pool.Ping
	} else {
		log.Warn().Msg("database disabled - roster and flags are kept in memory")
		rosterRepo = roster.NewInMemoryRepository()
		ffRepo = featureflags.NewInMemoryRepository()
	}

	rosterService := roster.NewService(rosterRepo)

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	// Shared environment snapshots written by the worker
	registry := resilience.NewRegistry()

	var store environment.SnapshotStore
	if cfg.RedisURL != "" {
		redisClient, err := environment.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		redisStore := environment.NewRedisStore(redisClient)
		store = redisStore
		checks["redis"] = redisStore.Ping
		log.Info().Msg("environment snapshot store connected")
	}

	envService := environment.NewService(environment.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:  cfg.OpenMeteoURL,
			Registry: registry,
			Logger:   log,
		}),
		Store:  store,
		Logger: log,
	})
	log.Info().Msg("environment service initialized")

	// Route sources
	var remote routesource.Source
	if cfg.OptimizerURL != "" {
		remote = routesource.NewRemoteOptimizer(routesource.RemoteConfig{
			BaseURL:  cfg.OptimizerURL,
			Timeout:  cfg.OptimizerTimeout,
			Registry: registry,
			Logger:   log,
		})
		log.Info().
			Str("optimizer_url", cfg.OptimizerURL).
			Msg("remote optimizer configured")
	} else {
		log.Warn().Msg("remote optimizer not configured - plans use the local estimate")
	}

	dispatcher := dispatch.New()
	planningService := planning.NewService(planning.ServiceConfig{
		Remote:        remote,
		Roster:        rosterService,
		Environment:   envService,
		Flags:         ffService,
		Dispatcher:    dispatcher,
		Metrics:       planMetrics,
		RemoteTimeout: cfg.PlanTimeout,
		Logger:        log,
	})
	if err := planningService.RegisterMarkers(rosterService); err != nil {
		log.Fatal().Err(err).Msg("failed to register marker actions")
	}
	log.Info().Msg("planning service initialized")

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.SigningKey(),
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		}),
	})
	log.Info().Msg("auth service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		AuthService:        authService,
		FeatureFlagService: ffService,
		Planning:           planningService,
		Roster:             rosterService,
		Environment:        envService,
		Dispatcher:         dispatcher,
		Registry:           registry,
		Checks:             checks,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequireTLS:         cfg.RequireTLS,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PlanTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
