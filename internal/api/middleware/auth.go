package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/auth"
)

// operatorKey is the context key for the authenticated operator.
type operatorKey struct{}

// Auth creates authentication middleware that validates operator bearer tokens.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract bearer token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeProblem(w, r, http.StatusUnauthorized, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeProblem(w, r, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := authHeader[len(bearerPrefix):]
			if tokenString == "" {
				writeProblem(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			// Validate the token
			operator, err := authService.ValidateAccessToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccessTokenExpired):
					writeProblem(w, r, http.StatusUnauthorized, "access token has expired")
				case errors.Is(err, auth.ErrInvalidAccessToken):
					writeProblem(w, r, http.StatusUnauthorized, "invalid access token")
				default:
					writeProblem(w, r, http.StatusUnauthorized, "authentication failed")
				}
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("operator.id", operator.ID))
			noteOperator(r.Context(), operator.ID)
			ctx := context.WithValue(r.Context(), operatorKey{}, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeProblem writes the standard problem for status. The response
// package imports this one, so middleware writes problems directly.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	models.ProblemFor(status, GetRequestID(r.Context())).
		WithDetail(detail).
		WithInstance(r.URL.Path).
		Write(w)
}

// RequireRole rejects requests whose operator lacks role. It must run
// after Auth.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetOperator(r.Context()).HasRole(role) {
				writeProblem(w, r, http.StatusForbidden, "operator lacks the "+string(role)+" role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetOperator retrieves the authenticated operator from the context.
// Returns nil if not authenticated.
func GetOperator(ctx context.Context) *auth.Operator {
	if op, ok := ctx.Value(operatorKey{}).(*auth.Operator); ok {
		return op
	}
	return nil
}

// GetOperatorID returns the authenticated operator id, or "".
func GetOperatorID(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.ID
	}
	return ""
}
