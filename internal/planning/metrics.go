package planning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ishigakitour/pickup/internal/planning"

// Metrics holds the planning instruments.
type Metrics struct {
	plansTotal      metric.Int64Counter
	fallbacksTotal  metric.Int64Counter
	unassignedTotal metric.Int64Counter
	planDuration    metric.Float64Histogram
}

// NewMetrics creates the planning instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	plansTotal, err := meter.Int64Counter(
		"pickup.plans.total",
		metric.WithDescription("Number of computed plans by route source"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacksTotal, err := meter.Int64Counter(
		"pickup.plans.fallbacks",
		metric.WithDescription("Number of plans that fell back to the local estimate"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}

	unassignedTotal, err := meter.Int64Counter(
		"pickup.plans.unassigned_guests",
		metric.WithDescription("Number of guest groups left without a vehicle"),
		metric.WithUnit("{guest}"),
	)
	if err != nil {
		return nil, err
	}

	planDuration, err := meter.Float64Histogram(
		"pickup.plans.duration",
		metric.WithDescription("Time to compute a plan in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		plansTotal:      plansTotal,
		fallbacksTotal:  fallbacksTotal,
		unassignedTotal: unassignedTotal,
		planDuration:    planDuration,
	}, nil
}

func (m *Metrics) recordPlan(ctx context.Context, plan *Plan, mode SourceMode, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("source.mode", string(mode)),
		attribute.String("source.kind", string(plan.Source)),
		attribute.Bool("estimated", plan.Estimated),
	)
	m.plansTotal.Add(ctx, 1, attrs)
	m.planDuration.Record(ctx, elapsed.Seconds(), attrs)
	if plan.FallbackReason != "" {
		m.fallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source.mode", string(mode))))
	}
	if n := len(plan.Unassigned); n > 0 {
		m.unassignedTotal.Add(ctx, int64(n))
	}
}
