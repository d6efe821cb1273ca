// Package response writes JSON bodies and problem documents for the
// pickup API. Every writer echoes the request id so dispatchers can quote
// it when reporting a bad plan.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/ishigakitour/pickup/internal/api/middleware"
	"github.com/ishigakitour/pickup/internal/api/models"
)

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, "", data)
}

// Created writes a 201 pointing at location.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	write(w, r, http.StatusCreated, location, data)
}

// Accepted writes a 202 for work that finishes later, such as a plan
// waiting on the optimizer.
func Accepted(w http.ResponseWriter, r *http.Request, location string, data any) {
	write(w, r, http.StatusAccepted, location, data)
}

// NoContent writes a bodiless 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	stampRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func write(w http.ResponseWriter, r *http.Request, status int, location string, data any) {
	stampRequestID(w, r)
	h := w.Header()
	h.Set("Content-Type", "application/json")
	if location != "" {
		h.Set("Location", location)
	}
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func stampRequestID(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set(middleware.RequestIDHeader, id)
	}
}

// Error writes problem with its instance set to the request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

func fail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	Error(w, r, models.ProblemFor(status, middleware.GetRequestID(r.Context())).WithDetail(detail))
}

// BadRequest writes a 400 listing the offending fields.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusUnauthorized, detail)
}

func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusForbidden, detail)
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusNotFound, detail)
}

func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusConflict, detail)
}

// Unprocessable writes a 422 for requests that parse but cannot be
// planned.
func Unprocessable(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusUnprocessableEntity, detail)
}

// InternalError writes a 500. detail must not carry internal error text.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusInternalServerError, detail)
}

// BadGateway writes a 502 for optimizer or provider answers that could
// not be used.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusBadGateway, detail)
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	fail(w, r, http.StatusServiceUnavailable, detail)
}
