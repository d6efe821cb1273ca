package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig is one request budget.
type RateLimitConfig struct {
	// Name labels the budget in 429 responses.
	Name         string
	RequestLimit int
	WindowLength time.Duration
}

// Budgets used by the router.
var (
	// AdminRateLimit applies to flag changes, per operator (10 req/min).
	AdminRateLimit = RateLimitConfig{Name: "admin", RequestLimit: 10, WindowLength: time.Minute}

	// PlanRateLimit applies to plan computation, which may call the
	// remote optimizer (30 req/min).
	PlanRateLimit = RateLimitConfig{Name: "plan", RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit applies to roster, schedule and marker endpoints
	// (100 req/min).
	StandardRateLimit = RateLimitConfig{Name: "standard", RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client address. Run chi's RealIP
// first so X-Forwarded-For is honoured.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(httprate.KeyByRealIP)
}

// RateLimitByOperator limits requests per authenticated operator, so one
// operator shares a budget across devices. Anonymous requests are keyed by
// address.
func RateLimitByOperator(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limiter(keyByOperatorOrIP)
}

func (cfg RateLimitConfig) limiter(key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(cfg.exceeded),
	)
}

func keyByOperatorOrIP(r *http.Request) (string, error) {
	if id := GetOperatorID(r.Context()); id != "" {
		return "operator:" + id, nil
	}
	return httprate.KeyByRealIP(r)
}

// exceeded writes a 429 problem with Retry-After set to the full window.
func (cfg RateLimitConfig) exceeded(w http.ResponseWriter, r *http.Request) {
	name := cfg.Name
	if name == "" {
		name = "request"
	}
	detail := fmt.Sprintf("%s rate limit exceeded: %d requests per %s", name, cfg.RequestLimit, windowLabel(cfg.WindowLength))

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(cfg.WindowLength)))
	writeProblem(w, r, http.StatusTooManyRequests, detail)
}

func retryAfterSeconds(window time.Duration) int {
	return max(1, int(math.Ceil(window.Seconds())))
}

func windowLabel(window time.Duration) string {
	switch {
	case window == time.Minute:
		return "minute"
	case window == time.Hour:
		return "hour"
	case window%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(window/time.Minute))
	default:
		return window.String()
	}
}
