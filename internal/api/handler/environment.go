package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/api/response"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
)

// EnvironmentHandler serves tour-day conditions.
type EnvironmentHandler struct {
	service *environment.Service
	flags   *featureflags.Service
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEnvironmentHandler creates a new EnvironmentHandler. flags may be nil.
func NewEnvironmentHandler(service *environment.Service, flags *featureflags.Service, logger zerolog.Logger) *EnvironmentHandler {
	return &EnvironmentHandler{service: service, flags: flags, logger: logger, now: time.Now}
}

// GetEnvironment handles GET /v1/environment?date=YYYY-MM-DD. The date
// defaults to today on the island.
func (h *EnvironmentHandler) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		response.ServiceUnavailable(w, r, "environment service is not configured")
		return
	}

	date := environment.Today(h.now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := environment.ParseDate(raw)
		if err != nil {
			response.BadRequest(w, r, "invalid date", []models.FieldError{
				{Field: "date", Message: "must be in YYYY-MM-DD format", Code: "invalid"},
			})
			return
		}
		date = parsed
	}

	var conditions *environment.Conditions
	var err error
	if h.flags.EnvironmentCachedOnly(r.Context()) {
		conditions, err = h.service.Cached(r.Context(), date)
	} else {
		conditions, err = h.service.Get(r.Context(), date)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewEnvironmentResponse(conditions))
}
