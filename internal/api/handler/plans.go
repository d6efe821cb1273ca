package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/api/response"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// PlanHandler handles plan computation and the stateless schedule tools.
type PlanHandler struct {
	service *planning.Service
	logger  zerolog.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(service *planning.Service, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{service: service, logger: logger}
}

// CreatePlan handles POST /v1/plans - compute and store a new plan.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var input models.PlanRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	plan, err := h.service.Plan(r.Context(), planning.PlanRequest{
		Source:      planning.SourceMode(input.Source),
		Guests:      input.Guests,
		Vehicles:    input.Vehicles,
		Tour:        input.Tour,
		Environment: input.Environment,
		Policy:      input.Policy,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, "/v1/plans/latest", plan)
}

// GetLatestPlan handles GET /v1/plans/latest - the most recent plan.
func (h *PlanHandler) GetLatestPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.Latest()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, plan)
}

// ValidateSchedule handles POST /v1/schedule/validate - check routes
// supplied by the caller without planning.
func (h *PlanHandler) ValidateSchedule(w http.ResponseWriter, r *http.Request) {
	var input models.ValidateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	policy := schedule.DefaultThresholdPolicy()
	if input.Policy != nil {
		policy = input.Policy.WithDefaults()
	}

	report := schedule.ValidatePlan(schedule.ValidationInput{
		Routes:       input.Routes,
		Vehicles:     input.Vehicles,
		Environment:  input.Environment,
		Policy:       policy,
		Unassigned:   input.Unassigned,
		ActivityType: input.ActivityType,
	})
	response.JSON(w, r, http.StatusOK, report)
}

// ScheduleStatistics handles POST /v1/schedule/statistics.
func (h *PlanHandler) ScheduleStatistics(w http.ResponseWriter, r *http.Request) {
	var input models.StatisticsRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	response.JSON(w, r, http.StatusOK, schedule.Summarize(input.Routes, input.Vehicles))
}

// ClassifyPickup handles POST /v1/schedule/classify - label one pickup
// time against a preferred window.
func (h *PlanHandler) ClassifyPickup(w http.ResponseWriter, r *http.Request) {
	var input models.ClassifyRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	var errs []models.FieldError
	if input.PickupTime == nil {
		errs = append(errs, models.FieldError{Field: "pickupTime", Message: "is required", Code: "required"})
	}
	if input.Window == nil {
		errs = append(errs, models.FieldError{Field: "window", Message: "is required", Code: "required"})
	} else if !input.Window.Valid() {
		errs = append(errs, models.FieldError{Field: "window", Message: "start must be before end", Code: "invalid"})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "request failed validation", errs)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ClassifyResponse{
		PickupTime:     *input.PickupTime,
		Window:         *input.Window,
		TimeCompliance: schedule.Classify(*input.PickupTime, *input.Window),
	})
}
