package worker

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthHandler serves the worker's liveness and job metrics endpoints.
func HealthHandler(version string, job *RefreshJob) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "version": version})
	})

	r.Get("/metrics/refresh", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, job.MetricsSnapshot())
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
