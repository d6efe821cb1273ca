package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/api"
	"github.com/ishigakitour/pickup/internal/api/handler"
	"github.com/ishigakitour/pickup/internal/api/models"
	"github.com/ishigakitour/pickup/internal/auth"
	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/schedule"
)

const testSigningKey = "test-secret-key-for-testing-only"

type testServer struct {
	router   http.Handler
	roster   *roster.Service
	flags    *featureflags.Service
	auth     *auth.Service
	registry *resilience.Registry
}

type testOptions struct {
	checks map[string]handler.CheckFunc
}

func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)

	rosterService := roster.NewService(roster.NewInMemoryRepository())
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})
	envService := environment.NewService(environment.ServiceConfig{Logger: logger})
	dispatcher := dispatch.New()

	planner := planning.NewService(planning.ServiceConfig{
		Roster:      rosterService,
		Environment: envService,
		Flags:       flags,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	require.NoError(t, planner.RegisterMarkers(rosterService))

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: testSigningKey,
			Issuer:     "pickup-api",
			Audience:   "pickup-dashboard",
		}),
	})

	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "remote-optimizer", Registry: registry})

	router := api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2026-10-01T00:00:00Z",
		Logger:             logger,
		AuthService:        authService,
		FeatureFlagService: flags,
		Planning:           planner,
		Roster:             rosterService,
		Environment:        envService,
		Dispatcher:         dispatcher,
		Registry:           registry,
		Checks:             opts.checks,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	})

	return &testServer{
		router:   router,
		roster:   rosterService,
		flags:    flags,
		auth:     authService,
		registry: registry,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) token(t *testing.T, roles ...auth.Role) string {
	t.Helper()
	tok, err := s.auth.IssueToken(auth.Operator{ID: "op_test", Name: "Test", Roles: roles}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func testGuest(name, hotel string, people int) schedule.Guest {
	return schedule.Guest{
		Name:        name,
		HotelName:   hotel,
		Location:    schedule.Point{Lat: 24.3448, Lng: 124.1551},
		PeopleCount: people,
		PreferredWindow: schedule.Window{
			Start: schedule.Clock(8, 30),
			End:   schedule.Clock(9, 30),
		},
	}
}

func seedRoster(t *testing.T, s *testServer) {
	t.Helper()
	ctx := context.Background()
	for _, g := range []schedule.Guest{
		testGuest("Tanaka", "ANA InterContinental Ishigaki", 2),
		testGuest("Smith", "Fusaki Beach Resort", 3),
		testGuest("Sato", "Hotel Miyahira", 1),
	} {
		_, err := s.roster.CreateGuest(ctx, g)
		require.NoError(t, err)
	}
	_, err := s.roster.CreateVehicle(ctx, schedule.Vehicle{Name: "Van 1", DriverName: "Higa", Capacity: 8})
	require.NoError(t, err)
}

func TestRouter_HealthCheck(t *testing.T) {
	s := newTestServer(t, testOptions{})

	for _, path := range []string{"/health", "/v1/ops/health"} {
		w := s.do(t, http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

		health := decode[models.Health](t, w)
		assert.Equal(t, models.HealthStatusOK, health.Status)
		assert.Equal(t, "test", health.Details["version"])
	}
}

func TestRouter_ReadinessCheck(t *testing.T) {
	s := newTestServer(t, testOptions{checks: map[string]handler.CheckFunc{
		"postgres": func(context.Context) error { return nil },
	}})

	w := s.do(t, http.MethodGet, "/v1/ops/ready", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.HealthStatusOK, decode[models.Health](t, w).Status)
}

func TestRouter_ReadinessCheck_FailingSubsystem(t *testing.T) {
	s := newTestServer(t, testOptions{checks: map[string]handler.CheckFunc{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}})

	w := s.do(t, http.MethodGet, "/v1/ops/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusFail, health.Status)
	assert.Equal(t, "connection refused", health.Details["redis"])
}

func TestRouter_SystemStatus(t *testing.T) {
	s := newTestServer(t, testOptions{checks: map[string]handler.CheckFunc{
		"redis": func(context.Context) error { return nil },
	}})
	require.NoError(t, s.flags.SetFlag(context.Background(), &featureflags.Flag{
		Key: featureflags.FlagForceLocalEstimate, Value: true,
	}))

	w := s.do(t, http.MethodGet, "/v1/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	status := decode[models.SystemStatus](t, w)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "redis", status.Subsystems[0].Name)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "remote-optimizer", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	assert.Equal(t, []string{featureflags.FlagForceLocalEstimate}, status.ActiveFlags)
	assert.Nil(t, status.LatestPlan)
}

func TestRouter_SystemStatus_DegradedProvider(t *testing.T) {
	s := newTestServer(t, testOptions{})
	s.registry.RecordFailure("remote-optimizer", errors.New("upstream status 502"))

	w := s.do(t, http.MethodGet, "/v1/status", nil)

	status := decode[models.SystemStatus](t, w)
	require.Len(t, status.Providers, 1)
	require.NotNil(t, status.Providers[0].Message)
	assert.Equal(t, "upstream status 502", *status.Providers[0].Message)
	assert.NotNil(t, status.Providers[0].LastFailureAt)
}

func TestRouter_GuestLifecycle(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/guests", testGuest("Tanaka", "Hotel Miyahira", 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[schedule.Guest](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/v1/guests/"+created.ID, w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/v1/guests/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Tanaka", decode[schedule.Guest](t, w).Name)

	w = s.do(t, http.MethodPut, "/v1/guests/"+created.ID, map[string]interface{}{"peopleCount": 4})
	assert.Equal(t, http.StatusOK, w.Code)
	updated := decode[schedule.Guest](t, w)
	assert.Equal(t, 4, updated.PeopleCount)
	assert.Equal(t, "Hotel Miyahira", updated.HotelName)

	w = s.do(t, http.MethodGet, "/v1/guests", nil)
	assert.Len(t, decode[models.GuestList](t, w).Items, 1)

	w = s.do(t, http.MethodDelete, "/v1/guests/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/guests/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_CreateGuest_ValidationError(t *testing.T) {
	s := newTestServer(t, testOptions{})

	bad := testGuest("", "Hotel Miyahira", 0)
	w := s.do(t, http.MethodPost, "/v1/guests", bad)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.TraceID)

	fields := make([]string, 0, len(problem.Errors))
	for _, fe := range problem.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "peopleCount")
}

func TestRouter_RejectsUnknownFields(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/vehicles", `{"name":"Van","capacity":8,"seats":8}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[models.Problem](t, w).Detail, "seats")
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/vehicles", `name=Van`, "Content-Type", "application/x-www-form-urlencoded")

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_VehicleAndTour(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/vehicles", schedule.Vehicle{Name: "Van 1", Capacity: 8})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vehicle := decode[schedule.Vehicle](t, w)

	w = s.do(t, http.MethodPut, "/v1/vehicles/"+vehicle.ID, map[string]interface{}{"capacity": 60})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/v1/tour", map[string]interface{}{
		"date":             "2026-10-20",
		"activityType":     "kayak",
		"plannedStartTime": "09:30",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/v1/tour", nil)
	tour := decode[roster.Tour](t, w)
	assert.Equal(t, "2026-10-20", tour.Date)
	assert.Equal(t, "kayak", tour.ActivityType)
	assert.Equal(t, schedule.Clock(9, 30), tour.PlannedStart)
	assert.Equal(t, roster.DefaultActivityLocation, tour.Activity)
}

func TestRouter_CreatePlan_FromRoster(t *testing.T) {
	s := newTestServer(t, testOptions{})
	seedRoster(t, s)

	w := s.do(t, http.MethodGet, "/v1/plans/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/v1/plans", models.PlanRequest{Source: "estimate"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/v1/plans/latest", w.Header().Get("Location"))

	plan := decode[planning.Plan](t, w)
	assert.NotEmpty(t, plan.ID)
	assert.True(t, plan.Estimated)
	require.Len(t, plan.Routes, 1)
	assert.Len(t, plan.Routes[0].Stops, 3)
	assert.Empty(t, plan.Unassigned)
	assert.Equal(t, 6, plan.Statistics.Summary.TotalGuests)
	require.NotNil(t, plan.Conditions)
	assert.Equal(t, "seasonal", plan.Conditions.Source)

	w = s.do(t, http.MethodGet, "/v1/plans/latest", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, plan.ID, decode[planning.Plan](t, w).ID)

	w = s.do(t, http.MethodGet, "/v1/status", nil)
	status := decode[models.SystemStatus](t, w)
	require.NotNil(t, status.LatestPlan)
	assert.Equal(t, plan.ID, status.LatestPlan.ID)
}

func TestRouter_CreatePlan_AutoFallsBackWithoutRemote(t *testing.T) {
	s := newTestServer(t, testOptions{})
	seedRoster(t, s)

	w := s.do(t, http.MethodPost, "/v1/plans", `{}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	plan := decode[planning.Plan](t, w)
	assert.True(t, plan.Estimated)
	assert.Equal(t, planning.ErrRemoteNotConfigured.Error(), plan.FallbackReason)
}

func TestRouter_CreatePlan_Errors(t *testing.T) {
	s := newTestServer(t, testOptions{})
	seedRoster(t, s)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid source", models.PlanRequest{Source: "fastest"}, http.StatusBadRequest},
		{"no vehicles", `{"source":"estimate","vehicles":[]}`, http.StatusUnprocessableEntity},
		{"remote not configured", models.PlanRequest{Source: "remote"}, http.StatusServiceUnavailable},
		{"invalid inline guest", models.PlanRequest{
			Source: "estimate",
			Guests: []schedule.Guest{testGuest("Tanaka", "", 2)},
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/plans", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_ClassifyPickup(t *testing.T) {
	s := newTestServer(t, testOptions{})

	tests := []struct {
		pickup string
		want   schedule.Compliance
	}{
		{"08:59", schedule.ComplianceEarly},
		{"09:00", schedule.ComplianceAcceptable},
		{"09:30", schedule.ComplianceAcceptable},
		{"09:31", schedule.ComplianceLate},
	}

	for _, tt := range tests {
		t.Run(tt.pickup, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/schedule/classify",
				`{"pickupTime":"`+tt.pickup+`","window":{"start":"09:00","end":"09:30"}}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[models.ClassifyResponse](t, w).TimeCompliance)
		})
	}
}

func TestRouter_ClassifyPickup_Validation(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/schedule/classify", `{"window":{"start":"10:00","end":"09:00"}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	require.Len(t, problem.Errors, 2)
	assert.Equal(t, "pickupTime", problem.Errors[0].Field)
	assert.Equal(t, "window", problem.Errors[1].Field)
}

func testRoute() schedule.VehicleRoute {
	return schedule.VehicleRoute{
		VehicleID:       "v1",
		VehicleName:     "Van 1",
		TotalDistanceKm: 12.5,
		EfficiencyScore: 80,
		Stops: []schedule.RouteStop{
			{Guest: schedule.Guest{ID: "g1", Name: "Tanaka", HotelName: "Fusaki Beach Resort", PeopleCount: 3}, PickupTime: schedule.Clock(9, 0), TimeCompliance: schedule.ComplianceAcceptable},
			{Guest: schedule.Guest{ID: "g2", Name: "Smith", HotelName: "Hotel Miyahira", PeopleCount: 3}, PickupTime: schedule.Clock(9, 20), TimeCompliance: schedule.ComplianceLate},
		},
	}
}

func TestRouter_ValidateSchedule(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/schedule/validate", models.ValidateRequest{
		Routes:      []schedule.VehicleRoute{testRoute()},
		Vehicles:    []schedule.Vehicle{{ID: "v1", Name: "Van 1", Capacity: 4}},
		Environment: &schedule.Environment{Condition: schedule.WeatherRainy, WindSpeedKph: 12},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[schedule.Report](t, w)

	kinds := make([]schedule.WarningKind, 0, len(report.Warnings))
	for _, warning := range report.Warnings {
		kinds = append(kinds, warning.Kind)
	}
	assert.Equal(t, []schedule.WarningKind{schedule.WarningOvercapacity, schedule.WarningTimeCompliance}, kinds)
	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, schedule.RecommendRainBuffer, report.Recommendations[0].Kind)
}

func TestRouter_ScheduleStatistics(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodPost, "/v1/schedule/statistics", models.StatisticsRequest{
		Routes:   []schedule.VehicleRoute{testRoute()},
		Vehicles: []schedule.Vehicle{{ID: "v1", Name: "Van 1", Capacity: 8}},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[schedule.Statistics](t, w)
	assert.Equal(t, 6, stats.Summary.TotalGuests)
	assert.Equal(t, 2, stats.Summary.TotalStops)
	assert.Equal(t, 1, stats.Compliance.Late)
}

func TestRouter_GetEnvironment(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodGet, "/v1/environment?date=2026-07-15", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]interface{}](t, w)
	assert.Equal(t, "2026-07-15", resp["date"])
	assert.Equal(t, "seasonal", resp["source"])
	assert.NotEmpty(t, resp["seaState"])
	assert.NotEmpty(t, resp["tideStage"])
}

func TestRouter_GetEnvironment_InvalidDate(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodGet, "/v1/environment?date=15-07-2026", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "date", problem.Errors[0].Field)
}

func TestRouter_MarkerActions(t *testing.T) {
	s := newTestServer(t, testOptions{})
	guest, err := s.roster.CreateGuest(context.Background(), testGuest("Tanaka", "Hotel Miyahira", 2))
	require.NoError(t, err)
	marker := schedule.GuestMarkerID(guest.ID)

	w := s.do(t, http.MethodGet, "/v1/markers/"+marker+"/actions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"details", "move", "select"}, decode[models.MarkerActions](t, w).Actions)

	w = s.do(t, http.MethodPost, "/v1/markers/"+marker+"/actions/move", `{"lat":24.3901,"lng":124.2463}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	moved, err := s.roster.GetGuest(context.Background(), guest.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.Point{Lat: 24.3901, Lng: 124.2463}, moved.Location)

	w = s.do(t, http.MethodPost, "/v1/markers/"+marker+"/actions/move", `{"lat":24.3901}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/markers/"+marker+"/actions/select", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/v1/markers/"+marker+"/actions/explode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/v1/markers/depot/actions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminFlags_RequiresAdmin(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodGet, "/v1/admin/flags", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/v1/admin/flags", nil, "Authorization", s.token(t, auth.RoleDispatcher))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/v1/admin/flags", nil, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AdminFlags_ListAndUpdate(t *testing.T) {
	s := newTestServer(t, testOptions{})
	admin := s.token(t, auth.RoleAdmin)

	w := s.do(t, http.MethodGet, "/v1/admin/flags", nil, "Authorization", admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[featureflags.FlagList](t, w)
	require.Len(t, list.Items, 4)
	assert.Equal(t, featureflags.FlagDistributorWraparound, list.Items[0].Key)

	w = s.do(t, http.MethodPut, "/v1/admin/flags", featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{
			{Key: featureflags.FlagDistributorWraparound, Value: true},
			{Key: featureflags.FlagRemoteTimeoutSeconds, Value: 5},
		},
		Reason: "manual rebalancing today",
	}, "Authorization", admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	ctx := context.Background()
	assert.True(t, s.flags.DistributorWraparound(ctx))
	assert.Equal(t, 5*time.Second, s.flags.RemoteTimeout(ctx, time.Minute))

	w = s.do(t, http.MethodPost, "/v1/admin/flags/invalidate", nil, "Authorization", admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, s.flags.DistributorWraparound(ctx))
}

func TestRouter_AdminFlags_RejectsBadUpdates(t *testing.T) {
	s := newTestServer(t, testOptions{})
	admin := s.token(t, auth.RoleAdmin)

	w := s.do(t, http.MethodPut, "/v1/admin/flags", featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{
			{Key: featureflags.FlagForceLocalEstimate, Value: true},
			{Key: featureflags.FlagDistributorWraparound, Value: "yes"},
			{Key: "dark_mode", Value: true},
			{Key: featureflags.FlagRemoteTimeoutSeconds, Value: -1},
		},
	}, "Authorization", admin)

	require.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	require.Len(t, problem.Errors, 3)
	assert.Equal(t, "updates[1]", problem.Errors[0].Field)
	assert.Equal(t, "updates[2]", problem.Errors[1].Field)
	assert.Equal(t, "updates[3]", problem.Errors[2].Field)

	// Nothing is written when any update is rejected.
	assert.False(t, s.flags.ForceLocalEstimate(context.Background()))
}

func TestRouter_AdminFlags_Reset(t *testing.T) {
	s := newTestServer(t, testOptions{})
	admin := s.token(t, auth.RoleAdmin)
	ctx := context.Background()

	require.NoError(t, s.flags.SetFlag(ctx, &featureflags.Flag{
		Key: featureflags.FlagForceLocalEstimate, Value: true,
	}))

	w := s.do(t, http.MethodDelete, "/v1/admin/flags/"+featureflags.FlagForceLocalEstimate, nil, "Authorization", admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.False(t, s.flags.ForceLocalEstimate(ctx))

	w = s.do(t, http.MethodDelete, "/v1/admin/flags/dark_mode", nil, "Authorization", admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/v1/admin/flags/"+featureflags.FlagForceLocalEstimate, nil,
		"Authorization", s.token(t, auth.RoleDispatcher))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodOptions, "/v1/plans", nil,
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", http.MethodPost,
	)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = s.do(t, http.MethodOptions, "/v1/plans", nil,
		"Origin", "https://evil.example",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_NotFound(t *testing.T) {
	s := newTestServer(t, testOptions{})

	w := s.do(t, http.MethodGet, "/v1/me", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
