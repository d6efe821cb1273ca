// Package api provides the HTTP API for the pickup planner.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/handler"
	"github.com/ishigakitour/pickup/internal/api/middleware"
	"github.com/ishigakitour/pickup/internal/auth"
	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/roster"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	AuthService        *auth.Service
	FeatureFlagService *featureflags.Service
	Planning           *planning.Service
	Roster             *roster.Service
	Environment        *environment.Service
	Dispatcher         *dispatch.Dispatcher
	Registry           *resilience.Registry

	// Checks feed the readiness and status endpoints.
	Checks map[string]handler.CheckFunc

	// CORSAllowedOrigins lists dashboard origins. Empty allows any origin.
	CORSAllowedOrigins []string

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
// Route groups whose service is nil are not mounted.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "pickup-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.SecurityHeaders)           // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)           // JSON content type
	r.Use(middleware.RequireJSON)               // Reject non-JSON bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Checks:    cfg.Checks,
		Registry:  cfg.Registry,
		Flags:     cfg.FeatureFlagService,
		Planning:  cfg.Planning,
	})

	// Create rate limit middleware for different endpoint categories
	planRateLimit := middleware.RateLimitByIP(middleware.PlanRateLimit)         // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Get("/health", opsHandler.HealthCheck)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})
		r.Get("/status", opsHandler.SystemStatus)

		// Stateless schedule tools
		schedules := handler.NewPlanHandler(cfg.Planning, cfg.Logger)
		r.Route("/schedule", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Post("/validate", schedules.ValidateSchedule)
			r.Post("/statistics", schedules.ScheduleStatistics)
			r.Post("/classify", schedules.ClassifyPickup)
		})

		// Plans - may call the remote optimizer, stricter rate limiting
		if cfg.Planning != nil {
			r.Route("/plans", func(r chi.Router) {
				r.With(planRateLimit).Post("/", schedules.CreatePlan)
				r.With(standardRateLimit).Get("/latest", schedules.GetLatestPlan)
			})
		}

		if cfg.Roster != nil {
			rosterHandler := handler.NewRosterHandler(cfg.Roster, cfg.Logger)
			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)

				r.Route("/guests", func(r chi.Router) {
					r.Get("/", rosterHandler.ListGuests)
					r.Post("/", rosterHandler.CreateGuest)
					r.Route("/{guestID}", func(r chi.Router) {
						r.Get("/", rosterHandler.GetGuest)
						r.Put("/", rosterHandler.UpdateGuest)
						r.Delete("/", rosterHandler.DeleteGuest)
					})
				})

				r.Route("/vehicles", func(r chi.Router) {
					r.Get("/", rosterHandler.ListVehicles)
					r.Post("/", rosterHandler.CreateVehicle)
					r.Route("/{vehicleID}", func(r chi.Router) {
						r.Get("/", rosterHandler.GetVehicle)
						r.Put("/", rosterHandler.UpdateVehicle)
						r.Delete("/", rosterHandler.DeleteVehicle)
					})
				})

				r.Get("/tour", rosterHandler.GetTour)
				r.Put("/tour", rosterHandler.UpdateTour)
			})
		}

		environmentHandler := handler.NewEnvironmentHandler(cfg.Environment, cfg.FeatureFlagService, cfg.Logger)
		r.With(standardRateLimit).Get("/environment", environmentHandler.GetEnvironment)

		if cfg.Dispatcher != nil {
			markerHandler := handler.NewMarkerHandler(cfg.Dispatcher, cfg.Logger)
			r.Route("/markers/{markerID}/actions", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", markerHandler.ListActions)
				r.Post("/{action}", markerHandler.Dispatch)
			})
		}

		// Admin endpoints (operator token with the admin role)
		if cfg.AuthService != nil && cfg.FeatureFlagService != nil {
			featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.Auth(cfg.AuthService))
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Use(middleware.RateLimitByOperator(middleware.AdminRateLimit))

				r.Route("/flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
					r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
				})
			})
		}
	})

	return r
}
