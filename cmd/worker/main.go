// Package main provides the entrypoint for the pickup background worker.
// It keeps the shared environment snapshots fresh for upcoming tour days.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/config"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/environment/openmeteo"
	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/telemetry"
	"github.com/ishigakitour/pickup/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pickup-worker"

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
		Msg("starting pickup worker")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Snapshots are only useful to the API when they are shared
	var store environment.SnapshotStore
	if cfg.RedisURL != "" {
		redisClient, err := environment.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		store = environment.NewRedisStore(redisClient)
	} else {
		log.Warn().Msg("REDIS_URL not set - refreshed conditions stay in this process")
	}

	envService := environment.NewService(environment.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:  cfg.OpenMeteoURL,
			Registry: resilience.NewRegistry(),
			Logger:   log,
		}),
		Store:  store,
		Logger: log,
	})

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Days:        cfg.Worker.RefreshDays,
			Concurrency: cfg.Worker.Concurrency,
			Interval:    cfg.Worker.RefreshInterval,
		},
		Logger:    log,
		Refresher: envService,
	})

	var wg sync.WaitGroup

	// Scheduled refresh
	wg.Add(1)
	go func() {
		defer wg.Done()
		refreshJob.Start(ctx)
	}()

	// On-demand jobs
	if cfg.Worker.PubSubProjectID != "" {
		pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.PubSubProjectID,
			SubscriptionName: cfg.Worker.PubSubSubscription,
			Processor:        worker.NewJobProcessor(refreshJob, log),
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().Msg("PUBSUB_PROJECT_ID not set - on-demand jobs disabled")
	}

	// Worker also exposes a health endpoint for Cloud Run
	server := &http.Server{
		Addr:         ":" + cfg.Worker.HealthPort,
		Handler:      worker.HealthHandler(Version, refreshJob),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	wg.Wait()
	log.Info().Msg("worker stopped")
}
