// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/database"
)

// DevSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// Config holds configuration shared by the api and worker processes.
type Config struct {
	Environment string
	Port        string
	LogFormat   string
	LogLevel    string

	Database database.Config

	// UseDatabase selects the Postgres repositories. When false the
	// roster and flags live in memory.
	UseDatabase bool

	// RedisURL enables the shared environment snapshot store.
	RedisURL string

	// OptimizerURL enables the remote route optimizer.
	OptimizerURL     string
	OptimizerTimeout time.Duration
	PlanTimeout      time.Duration

	OpenMeteoURL string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	CORSAllowedOrigins []string
	RequireTLS         bool

	Telemetry TelemetryConfig
	Worker    WorkerConfig
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	HealthPort      string
	RefreshInterval time.Duration
	RefreshDays     int
	Concurrency     int

	// PubSubProjectID and PubSubSubscription enable the job subscriber.
	PubSubProjectID    string
	PubSubSubscription string
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	env := getEnvOrDefault("APP_ENV", "development")
	return Config{
		Environment: env,
		Port:        getEnvOrDefault("PORT", getEnvOrDefault("APP_PORT", "8080")),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "json"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),

		Database:    database.ConfigFromEnv(),
		UseDatabase: getEnvBool("DB_ENABLED", os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""),

		RedisURL: os.Getenv("REDIS_URL"),

		OptimizerURL:     os.Getenv("OPTIMIZER_URL"),
		OptimizerTimeout: getEnvDuration("OPTIMIZER_TIMEOUT", 15*time.Second),
		PlanTimeout:      getEnvDuration("PLAN_TIMEOUT", 20*time.Second),

		OpenMeteoURL: os.Getenv("OPEN_METEO_URL"),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     getEnvOrDefault("JWT_ISSUER", "pickup-api"),
		JWTAudience:   getEnvOrDefault("JWT_AUDIENCE", "pickup-dashboard"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RequireTLS:         getEnvBool("REQUIRE_TLS", env == "production"),

		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		},

		Worker: WorkerConfig{
			HealthPort:         getEnvOrDefault("WORKER_HEALTH_PORT", "8081"),
			RefreshInterval:    getEnvDuration("ENVIRONMENT_REFRESH_INTERVAL", 30*time.Minute),
			RefreshDays:        getEnvInt("ENVIRONMENT_REFRESH_DAYS", 3),
			Concurrency:        getEnvInt("WORKER_CONCURRENCY", 3),
			PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
		},
	}
}

// Production reports whether the process runs in production.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// Validate reports settings that make the process unsafe to start.
func (c Config) Validate() error {
	if c.Production() && (c.JWTSigningKey == "" || c.JWTSigningKey == DevSigningKey) {
		return errors.New("config: JWT_SIGNING_KEY must be set in production")
	}
	if c.Worker.RefreshDays < 1 {
		return errors.New("config: ENVIRONMENT_REFRESH_DAYS must be at least 1")
	}
	if c.Worker.PubSubProjectID != "" && c.Worker.PubSubSubscription == "" {
		return errors.New("config: PUBSUB_SUBSCRIPTION is required with PUBSUB_PROJECT_ID")
	}
	return nil
}

// SigningKey returns the configured JWT key or the development key.
func (c Config) SigningKey() string {
	if c.JWTSigningKey == "" {
		return DevSigningKey
	}
	return c.JWTSigningKey
}

// NewLogger builds the process logger. LOG_FORMAT=console switches to the
// human-readable writer; an unknown LOG_LEVEL falls back to info.
func (c Config) NewLogger(w io.Writer, service, version string) zerolog.Logger {
	if c.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("env", c.Environment).
		Logger()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
