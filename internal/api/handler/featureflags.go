package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/api/response"
	"github.com/ishigakitour/pickup/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	all := h.service.GetAllFlags(r.Context())
	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(all))}
	for _, flag := range all {
		list.Items = append(list.Items, *flag)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })
	response.JSON(w, r, http.StatusOK, list)
}

// UpsertFeatureFlags handles PUT /v1/admin/flags - update feature flags.
// Every update is checked before any is written.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input featureflags.FlagUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if len(input.Updates) == 0 {
		response.BadRequest(w, r, "at least one update is required", []models.FieldError{
			{Field: "updates", Message: "must not be empty", Code: "required"},
		})
		return
	}

	var errs []models.FieldError
	flags := make([]*featureflags.Flag, 0, len(input.Updates))
	for i, u := range input.Updates {
		if err := u.Validate(); err != nil {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("updates[%d]", i),
				Message: err.Error(),
				Code:    "invalid",
			})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid flag updates", errs)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	keys := make([]string, 0, len(flags))
	for _, f := range flags {
		keys = append(keys, f.Key)
	}
	h.logger.Info().
		Str("operator_id", GetOperatorID(r.Context())).
		Strs("flags", keys).
		Str("reason", input.Reason).
		Msg("feature flags updated")

	response.NoContent(w, r)
}

// ResetFeatureFlag handles DELETE /v1/admin/flags/{key} - drop the stored
// override so the flag reads as its default.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !featureflags.IsKnown(key) {
		response.NotFound(w, r, fmt.Sprintf("flag %q is not defined", key))
		return
	}
	if err := h.service.ResetFlag(r.Context(), key); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info().
		Str("operator_id", GetOperatorID(r.Context())).
		Str("flag", key).
		Msg("feature flag reset")

	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
