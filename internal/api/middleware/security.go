package middleware

import (
	"net/http"

	"github.com/ishigakitour/pickup/internal/api/models"
)

// securityHeaders are set on every response.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	// The dashboard reads positions from its own map, never from the browser.
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
}

// SecurityHeaders sets the fixed security headers and marks responses
// Cache-Control: no-store, since rosters and plans carry guest names and
// hotels. Handlers may set their own Cache-Control.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		h.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a load balancer reports as plain HTTP
// via X-Forwarded-Proto. Requests without the header and health checks are
// let through.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto == "" || proto == "https" || quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			models.NewProblem(models.ProblemTypeTLSRequired, "TLS required",
				http.StatusForbidden, GetRequestID(r.Context())).
				WithDetail("This endpoint requires HTTPS").
				WithInstance(r.URL.Path).
				Write(w)
		})
	}
}
