package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/api/response"
	"github.com/ishigakitour/pickup/internal/dispatch"
)

// MarkerHandler routes map marker interactions to registered handlers.
type MarkerHandler struct {
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger
}

// NewMarkerHandler creates a new MarkerHandler.
func NewMarkerHandler(dispatcher *dispatch.Dispatcher, logger zerolog.Logger) *MarkerHandler {
	return &MarkerHandler{dispatcher: dispatcher, logger: logger}
}

// ListActions handles GET /v1/markers/{markerID}/actions.
func (h *MarkerHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	markerID := chi.URLParam(r, "markerID")
	actions := h.dispatcher.Actions(markerID)
	if len(actions) == 0 {
		response.NotFound(w, r, "no actions registered for marker "+markerID)
		return
	}
	response.JSON(w, r, http.StatusOK, models.MarkerActions{MarkerID: markerID, Actions: actions})
}

// Dispatch handles POST /v1/markers/{markerID}/actions/{action}. The body
// is passed to the handler untouched and may be empty.
func (h *MarkerHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	markerID := chi.URLParam(r, "markerID")
	action := chi.URLParam(r, "action")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(w, r, "could not read request body", nil)
		return
	}
	var payload json.RawMessage
	if len(body) > 0 {
		if !json.Valid(body) {
			response.BadRequest(w, r, "request body must be JSON", nil)
			return
		}
		payload = body
	}

	result, err := h.dispatcher.Dispatch(r.Context(), markerID, action, payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.MarkerActionResponse{
		MarkerID: markerID,
		Action:   action,
		Result:   result,
	})
}
