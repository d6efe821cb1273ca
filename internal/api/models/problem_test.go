package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/api/models"
)

func TestProblemFor(t *testing.T) {
	tests := []struct {
		status   int
		wantType string
		title    string
	}{
		{http.StatusBadRequest, models.ProblemTypeValidation, "Validation error"},
		{http.StatusUnauthorized, models.ProblemTypeUnauthorized, "Unauthorized"},
		{http.StatusForbidden, models.ProblemTypeForbidden, "Forbidden"},
		{http.StatusNotFound, models.ProblemTypeNotFound, "Not found"},
		{http.StatusConflict, models.ProblemTypeConflict, "Conflict"},
		{http.StatusUnsupportedMediaType, models.ProblemTypeUnsupportedType, "Unsupported media type"},
		{http.StatusUnprocessableEntity, models.ProblemTypeUnprocessable, "Unprocessable request"},
		{http.StatusTooManyRequests, models.ProblemTypeTooManyRequests, "Too many requests"},
		{http.StatusInternalServerError, models.ProblemTypeInternal, "Internal server error"},
		{http.StatusBadGateway, models.ProblemTypeBadGateway, "Bad gateway"},
		{http.StatusServiceUnavailable, models.ProblemTypeUnavailable, "Service unavailable"},
		{http.StatusTeapot, "about:blank", "I'm a teapot"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := models.ProblemFor(tt.status, "req_123")

			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.title, p.Title)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, "req_123", p.TraceID)
			assert.Empty(t, p.Detail)
			assert.Empty(t, p.Instance)
		})
	}
}

func TestProblem_Builders(t *testing.T) {
	fieldErrors := []models.FieldError{
		{Field: "guests[0].location.lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"},
		{Field: "guests[0].name", Message: "required", Code: "REQUIRED"},
	}

	p := models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, "req_1").
		WithDetail("This endpoint requires HTTPS").
		WithInstance("/v1/plans").
		WithErrors(fieldErrors)

	assert.Equal(t, models.ProblemTypeTLSRequired, p.Type)
	assert.Equal(t, http.StatusForbidden, p.Status)
	assert.Equal(t, "This endpoint requires HTTPS", p.Detail)
	assert.Equal(t, "/v1/plans", p.Instance)
	assert.Equal(t, fieldErrors, p.Errors)
}

func TestNewBadRequest(t *testing.T) {
	p := models.NewBadRequest("req_123", "invalid data", nil)

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "invalid data", p.Detail)
	assert.Nil(t, p.Errors)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "peopleCount", Message: "must be between 1 and 50"},
	}).WithInstance("/v1/guests")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ProblemTypeValidation, body["type"])
	assert.Equal(t, "invalid input", body["detail"])
	assert.Equal(t, "/v1/guests", body["instance"])
	assert.Equal(t, "req_test123", body["traceId"])
	require.Len(t, body["errors"], 1)
}

func TestProblem_WriteOmitsEmptyFields(t *testing.T) {
	w := httptest.NewRecorder()
	models.ProblemFor(http.StatusNotFound, "req_9").Write(w)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
	assert.NotContains(t, body, "errors")
	assert.Contains(t, body, "traceId")
}
