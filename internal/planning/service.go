package planning

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// Roster supplies stored guests, vehicles and tour settings.
type Roster interface {
	ListGuests(ctx context.Context) ([]schedule.Guest, error)
	ListVehicles(ctx context.Context) ([]schedule.Vehicle, error)
	Tour(ctx context.Context) (*roster.Tour, error)
}

// EnvironmentSource supplies tour-day conditions.
type EnvironmentSource interface {
	Get(ctx context.Context, date time.Time) (*environment.Conditions, error)
	Cached(ctx context.Context, date time.Time) (*environment.Conditions, error)
}

// Flags are the runtime switches planning consults.
type Flags interface {
	ForceLocalEstimate(ctx context.Context) bool
	DistributorWraparound(ctx context.Context) bool
	EnvironmentCachedOnly(ctx context.Context) bool
	RemoteTimeout(ctx context.Context, fallback time.Duration) time.Duration
}

// ServiceConfig holds configuration for the planning service.
type ServiceConfig struct {
	// Remote is the optimizer. When nil, remote mode fails and auto mode
	// always falls back.
	Remote routesource.Source

	// Estimate is the degraded-mode source (default: LocalEstimate).
	Estimate routesource.Source

	// Roster is read when a request omits guests, vehicles or the tour.
	Roster Roster

	// Environment is optional; without it plans validate without weather.
	Environment EnvironmentSource

	// Flags is optional; without it every flag reads as off.
	Flags Flags

	// Dispatcher receives per-plan marker handlers (optional).
	Dispatcher *dispatch.Dispatcher

	// Metrics is optional.
	Metrics *Metrics

	Policy schedule.ThresholdPolicy

	// RemoteTimeout bounds one optimizer call including retries
	// (default: 20s). The remote_timeout_seconds flag overrides it.
	RemoteTimeout time.Duration

	AverageSpeedKph   float64
	StopBufferMinutes int

	Logger zerolog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service computes plans.
type Service struct {
	remote        routesource.Source
	estimate      routesource.Source
	roster        Roster
	environment   EnvironmentSource
	flags         Flags
	metrics       *Metrics
	markers       *planMarkers
	policy        schedule.ThresholdPolicy
	remoteTimeout time.Duration
	distribute    schedule.DistributeOptions
	logger        zerolog.Logger
	now           func() time.Time

	latest atomic.Pointer[Plan]
}

// NewService creates a planning service.
func NewService(cfg ServiceConfig) *Service {
	estimate := cfg.Estimate
	if estimate == nil {
		estimate = routesource.NewLocalEstimate(routesource.EstimateConfig{
			AverageSpeedKph:   cfg.AverageSpeedKph,
			StopBufferMinutes: cfg.StopBufferMinutes,
		})
	}

	var flags Flags = (*featureflags.Service)(nil)
	if cfg.Flags != nil {
		flags = cfg.Flags
	}

	remoteTimeout := cfg.RemoteTimeout
	if remoteTimeout == 0 {
		remoteTimeout = 20 * time.Second
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		remote:        cfg.Remote,
		estimate:      estimate,
		roster:        cfg.Roster,
		environment:   cfg.Environment,
		flags:         flags,
		metrics:       cfg.Metrics,
		markers:       newPlanMarkers(cfg.Dispatcher, cfg.Logger),
		policy:        cfg.Policy.WithDefaults(),
		remoteTimeout: remoteTimeout,
		distribute: schedule.DistributeOptions{
			AverageSpeedKph:   cfg.AverageSpeedKph,
			StopBufferMinutes: cfg.StopBufferMinutes,
		},
		logger: cfg.Logger,
		now:    now,
	}
}

// Latest returns the most recently computed plan.
func (s *Service) Latest() (*Plan, error) {
	plan := s.latest.Load()
	if plan == nil {
		return nil, ErrNoPlan
	}
	return plan, nil
}

// RemoteConfigured reports whether a remote optimizer is wired.
func (s *Service) RemoteConfigured() bool {
	return s.remote != nil
}

// Plan computes a schedule. Input problems are returned as
// *schedule.ValidationError, a tour without vehicles as
// schedule.ErrNoVehicles, and a failed remote-only run as a
// *routesource.Error.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	start := s.now()
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "planning.Plan")
	defer span.End()

	mode, err := ParseSourceMode(string(req.Source))
	if err != nil {
		return nil, err
	}

	in, err := s.resolveInputs(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := validateInputs(in); err != nil {
		return nil, err
	}
	if len(in.vehicles) == 0 {
		return nil, schedule.ErrNoVehicles
	}

	policy := s.policy
	if req.Policy != nil {
		policy = req.Policy.WithDefaults()
	}

	plan := &Plan{
		ID:           newPlanID(),
		CreatedAt:    start,
		Date:         in.tour.Date,
		ActivityType: in.tour.ActivityType,
		PlannedStart: in.tour.PlannedStart,
		Policy:       policy,
	}
	plan.Environment, plan.Conditions = s.resolveEnvironment(ctx, req, in.tour)

	stops, err := s.sequence(ctx, mode, in, plan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequencing failed")
		return nil, err
	}

	opts := s.distribute
	opts.Destination = &in.tour.Activity
	opts.Overflow = schedule.OverflowUnassigned
	if s.flags.DistributorWraparound(ctx) {
		opts.Overflow = schedule.OverflowWrap
	}
	plan.Overflow = opts.Overflow

	dist, err := schedule.Distribute(stops, in.vehicles, opts)
	if err != nil {
		return nil, err
	}
	plan.Routes = nonNil(dist.Routes)
	plan.Unassigned = nonNil(dist.Unassigned)

	plan.Report = schedule.ValidatePlan(schedule.ValidationInput{
		Routes:       plan.Routes,
		Vehicles:     in.vehicles,
		Environment:  plan.Environment,
		Policy:       policy,
		Unassigned:   plan.Unassigned,
		ActivityType: in.tour.ActivityType,
	})
	plan.Statistics = schedule.Summarize(plan.Routes, in.vehicles)

	s.markers.publish(plan, &s.latest)

	elapsed := s.now().Sub(start)
	s.metrics.recordPlan(ctx, plan, mode, elapsed)
	span.SetAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.String("plan.source", string(plan.Source)),
		attribute.Bool("plan.estimated", plan.Estimated),
		attribute.Int("plan.routes", len(plan.Routes)),
		attribute.Int("plan.unassigned", len(plan.Unassigned)),
	)

	s.logger.Info().
		Str("plan_id", plan.ID).
		Str("mode", string(mode)).
		Str("source", string(plan.Source)).
		Bool("estimated", plan.Estimated).
		Str("fallback_reason", plan.FallbackReason).
		Int("guests", len(in.guests)).
		Int("vehicles", len(in.vehicles)).
		Int("routes", len(plan.Routes)).
		Int("unassigned", len(plan.Unassigned)).
		Int("warnings", len(plan.Report.Warnings)).
		Dur("duration", elapsed).
		Msg("plan computed")

	return plan, nil
}

type planInputs struct {
	guests   []schedule.Guest
	vehicles []schedule.Vehicle
	tour     roster.Tour
}

func (s *Service) resolveInputs(ctx context.Context, req PlanRequest) (*planInputs, error) {
	in := &planInputs{guests: req.Guests, vehicles: req.Vehicles}

	if (in.guests == nil || in.vehicles == nil || req.Tour == nil) && s.roster == nil {
		return nil, ErrRosterNotConfigured
	}

	var err error
	if in.guests == nil {
		if in.guests, err = s.roster.ListGuests(ctx); err != nil {
			return nil, fmt.Errorf("loading guests: %w", err)
		}
	}
	if in.vehicles == nil {
		if in.vehicles, err = s.roster.ListVehicles(ctx); err != nil {
			return nil, fmt.Errorf("loading vehicles: %w", err)
		}
	}
	if req.Tour != nil {
		in.tour = *req.Tour
	} else {
		t, err := s.roster.Tour(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading tour settings: %w", err)
		}
		in.tour = *t
	}

	// Inline vehicles may omit ids; routes and markers need one.
	for i := range in.vehicles {
		if in.vehicles[i].ID == "" {
			vehicles := make([]schedule.Vehicle, len(in.vehicles))
			copy(vehicles, in.vehicles)
			for j := range vehicles {
				if vehicles[j].ID == "" {
					vehicles[j].ID = fmt.Sprintf("vehicle-%d", j+1)
				}
			}
			in.vehicles = vehicles
			break
		}
	}
	return in, nil
}

func validateInputs(in *planInputs) error {
	var fields []schedule.FieldError
	for _, err := range []error{
		schedule.ValidateInputs(in.guests, in.vehicles),
		in.tour.Validate(),
	} {
		if err == nil {
			continue
		}
		var verr *schedule.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		fields = append(fields, verr.Errors...)
	}
	if len(fields) > 0 {
		return &schedule.ValidationError{Errors: fields}
	}
	return nil
}

func (s *Service) resolveEnvironment(ctx context.Context, req PlanRequest, tour roster.Tour) (*schedule.Environment, *environment.Conditions) {
	if req.Environment != nil {
		env := *req.Environment
		return &env, nil
	}
	if s.environment == nil {
		return nil, nil
	}

	date, err := environment.ParseDate(tour.Date)
	if err != nil {
		return nil, nil
	}

	var c *environment.Conditions
	if s.flags.EnvironmentCachedOnly(ctx) {
		c, err = s.environment.Cached(ctx, date)
	} else {
		c, err = s.environment.Get(ctx, date)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("date", tour.Date).Msg("planning without environment data")
		return nil, nil
	}
	return c.ForValidation(), c
}

// sequence fetches an ordered stop list from the source the mode selects
// and fills the source fields of plan.
func (s *Service) sequence(ctx context.Context, mode SourceMode, in *planInputs, plan *Plan) ([]schedule.ScheduledStop, error) {
	if len(in.guests) == 0 {
		return nil, nil
	}

	req := routesource.Request{
		Date:         in.tour.Date,
		ActivityType: in.tour.ActivityType,
		PlannedStart: in.tour.PlannedStart,
		Activity:     in.tour.Activity,
		Departure:    in.tour.Departure,
		Guests:       in.guests,
		Vehicles:     in.vehicles,
	}

	switch mode {
	case SourceEstimate:
		return s.fetch(ctx, s.estimate, req, plan)

	case SourceRemote:
		if s.remote == nil {
			return nil, ErrRemoteNotConfigured
		}
		return s.fetchRemote(ctx, req, plan)

	default:
		var reason string
		switch {
		case s.remote == nil:
			reason = ErrRemoteNotConfigured.Error()
		case s.flags.ForceLocalEstimate(ctx):
			reason = "remote optimizer disabled by the " + featureflags.FlagForceLocalEstimate + " flag"
		default:
			stops, err := s.fetchRemote(ctx, req, plan)
			if err == nil {
				return stops, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			reason = err.Error()
			s.logger.Warn().Err(err).Str("plan_id", plan.ID).Msg("remote optimizer failed, using local estimate")
		}

		stops, err := s.fetch(ctx, s.estimate, req, plan)
		if err != nil {
			return nil, err
		}
		plan.FallbackReason = reason
		return stops, nil
	}
}

func (s *Service) fetchRemote(ctx context.Context, req routesource.Request, plan *Plan) ([]schedule.ScheduledStop, error) {
	ctx, cancel := context.WithTimeout(ctx, s.flags.RemoteTimeout(ctx, s.remoteTimeout))
	defer cancel()
	return s.fetch(ctx, s.remote, req, plan)
}

func (s *Service) fetch(ctx context.Context, src routesource.Source, req routesource.Request, plan *Plan) ([]schedule.ScheduledStop, error) {
	res, err := src.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	plan.Source = res.Kind
	plan.SourceName = src.Name()
	plan.Estimated = res.Estimated
	if res.Kind == routesource.KindRemote {
		plan.SourceEfficiencyScore = res.EfficiencyScore
		plan.SourceDistanceKm = res.TotalDistanceKm
		plan.SourceDuration = res.DurationLabel
	}
	return res.Stops, nil
}

func newPlanID() string {
	return "pln_" + uuid.New().String()[:22]
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
