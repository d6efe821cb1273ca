package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/api/response"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// RosterHandler handles guest, vehicle and tour endpoints.
type RosterHandler struct {
	service *roster.Service
	logger  zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(service *roster.Service, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{service: service, logger: logger}
}

// ListGuests handles GET /v1/guests.
func (h *RosterHandler) ListGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := h.service.ListGuests(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.GuestList{Items: guests})
}

// CreateGuest handles POST /v1/guests. Any client-supplied id is replaced.
func (h *RosterHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var input schedule.Guest
	if !decodeJSON(w, r, &input) {
		return
	}

	guest, err := h.service.CreateGuest(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/guests/"+guest.ID, guest)
}

// GetGuest handles GET /v1/guests/{guestID}.
func (h *RosterHandler) GetGuest(w http.ResponseWriter, r *http.Request) {
	guest, err := h.service.GetGuest(r.Context(), chi.URLParam(r, "guestID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, guest)
}

// UpdateGuest handles PUT /v1/guests/{guestID}.
func (h *RosterHandler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	var input models.GuestUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	guest, err := h.service.UpdateGuest(r.Context(), chi.URLParam(r, "guestID"), input.Patch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, guest)
}

// DeleteGuest handles DELETE /v1/guests/{guestID}.
func (h *RosterHandler) DeleteGuest(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGuest(r.Context(), chi.URLParam(r, "guestID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}

// ListVehicles handles GET /v1/vehicles.
func (h *RosterHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListVehicles(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.VehicleList{Items: vehicles})
}

// CreateVehicle handles POST /v1/vehicles.
func (h *RosterHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var input schedule.Vehicle
	if !decodeJSON(w, r, &input) {
		return
	}

	vehicle, err := h.service.CreateVehicle(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/vehicles/"+vehicle.ID, vehicle)
}

// GetVehicle handles GET /v1/vehicles/{vehicleID}.
func (h *RosterHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.GetVehicle(r.Context(), chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, vehicle)
}

// UpdateVehicle handles PUT /v1/vehicles/{vehicleID}.
func (h *RosterHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var input models.VehicleUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	vehicle, err := h.service.UpdateVehicle(r.Context(), chi.URLParam(r, "vehicleID"), input.Patch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, vehicle)
}

// DeleteVehicle handles DELETE /v1/vehicles/{vehicleID}.
func (h *RosterHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteVehicle(r.Context(), chi.URLParam(r, "vehicleID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}

// GetTour handles GET /v1/tour.
func (h *RosterHandler) GetTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.service.Tour(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tour)
}

// UpdateTour handles PUT /v1/tour.
func (h *RosterHandler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	var input models.TourUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	tour, err := h.service.UpdateTour(r.Context(), input.Patch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, tour)
}
