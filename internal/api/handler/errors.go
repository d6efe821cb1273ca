package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/api/response"
	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// maxBodyBytes bounds request bodies; a full day's roster fits comfortably.
const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into v, rejecting unknown fields and
// trailing data. It writes the 400 response itself and reports false on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, r, "request body is required", nil)
			return false
		}
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if dec.More() {
		response.BadRequest(w, r, "request body must contain a single JSON object", nil)
		return false
	}
	return true
}

// fieldErrors converts core validation errors to problem field errors.
func fieldErrors(errs []schedule.FieldError) []models.FieldError {
	out := make([]models.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, models.FieldError{Field: fe.Field, Message: fe.Message, Code: "invalid"})
	}
	return out
}

// writeError maps domain errors onto RFC 7807 responses. Anything it does
// not recognise is logged and reported as a 500 without internal detail.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var validation *schedule.ValidationError
	var upstream *routesource.Error

	switch {
	case errors.As(err, &validation):
		response.BadRequest(w, r, "request failed validation", fieldErrors(validation.Errors))
	case errors.Is(err, planning.ErrInvalidSourceMode),
		errors.Is(err, environment.ErrInvalidDate),
		errors.Is(err, featureflags.ErrUnknownFlag),
		errors.Is(err, featureflags.ErrInvalidValue):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, schedule.ErrNoVehicles):
		response.Unprocessable(w, r, "at least one vehicle is required to plan pickups")
	case errors.Is(err, roster.ErrGuestNotFound),
		errors.Is(err, roster.ErrVehicleNotFound),
		errors.Is(err, featureflags.ErrFlagNotFound),
		errors.Is(err, dispatch.ErrNoHandler),
		errors.Is(err, planning.ErrNoPlan),
		errors.Is(err, planning.ErrNotInPlan):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, planning.ErrRemoteNotConfigured),
		errors.Is(err, planning.ErrRosterNotConfigured):
		response.ServiceUnavailable(w, r, err.Error())
	case errors.As(err, &upstream) && !errors.Is(err, routesource.ErrUnavailable):
		response.BadGateway(w, r, err.Error())
	case errors.Is(err, routesource.ErrUnavailable),
		errors.Is(err, environment.ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request cancelled")
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
