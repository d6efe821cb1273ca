package schedule

import (
	"fmt"
	"math"
)

// Severity grades a warning or recommendation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// WarningKind identifies the rule that produced a warning.
type WarningKind string

const (
	WarningOvercapacity         WarningKind = "overcapacity"
	WarningUnknownVehicle       WarningKind = "unknown_vehicle"
	WarningTimeCompliance       WarningKind = "time_compliance"
	WarningUnassigned           WarningKind = "unassigned"
	WarningInsufficientCapacity WarningKind = "insufficient_capacity"
)

// RecommendationKind identifies the rule that produced a recommendation.
type RecommendationKind string

const (
	RecommendRainBuffer     RecommendationKind = "rain_buffer"
	RecommendWeatherRisk    RecommendationKind = "weather_sensitive_activity"
	RecommendWindCaution    RecommendationKind = "wind_caution"
	RecommendDistanceBuffer RecommendationKind = "distance_buffer"
	RecommendLowTide        RecommendationKind = "low_tide"
	RecommendConsolidate    RecommendationKind = "consolidate_routes"
)

// WeatherCondition is the coarse weather state used by the rules.
type WeatherCondition string

const (
	WeatherSunny   WeatherCondition = "sunny"
	WeatherCloudy  WeatherCondition = "cloudy"
	WeatherRainy   WeatherCondition = "rainy"
	WeatherStormy  WeatherCondition = "stormy"
	WeatherFoggy   WeatherCondition = "foggy"
	WeatherUnknown WeatherCondition = "unknown"
)

// Wet reports whether the condition calls for a rain buffer.
func (c WeatherCondition) Wet() bool {
	return c == WeatherRainy || c == WeatherStormy
}

// Environment is the read-only weather, wind and tide input to Validate.
type Environment struct {
	Condition    WeatherCondition `json:"condition"`
	WindSpeedKph float64          `json:"windSpeedKph"`
	TideLevelCm  *float64         `json:"tideLevelCm,omitempty"`
}

// Warning is a detected problem with the schedule.
type Warning struct {
	Severity  Severity    `json:"severity"`
	Kind      WarningKind `json:"kind"`
	Message   string      `json:"message"`
	VehicleID string      `json:"vehicleId,omitempty"`
	GuestID   string      `json:"guestId,omitempty"`
	Amount    int         `json:"amount,omitempty"`
}

// Recommendation is advice derived from the environment or aggregates.
type Recommendation struct {
	Severity Severity           `json:"severity"`
	Kind     RecommendationKind `json:"kind"`
	Message  string             `json:"message"`
}

// Report is the validator output. Both lists are always non-nil.
type Report struct {
	Warnings        []Warning        `json:"warnings"`
	Recommendations []Recommendation `json:"recommendations"`
}

// HasErrors reports whether any warning has error severity.
func (r *Report) HasErrors() bool {
	for _, w := range r.Warnings {
		if w.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidationInput carries everything ValidatePlan looks at.
type ValidationInput struct {
	Routes      []VehicleRoute
	Vehicles    []Vehicle
	Environment *Environment
	Policy      ThresholdPolicy

	// Unassigned stops from distribution, reported one warning each.
	Unassigned []RouteStop

	// ActivityType selects tide and weather sensitivity rules.
	ActivityType string
}

// Validate checks routes against vehicle capacities and the environment.
// It is pure: identical inputs give identical reports.
func Validate(routes []VehicleRoute, vehicles []Vehicle, env *Environment, policy ThresholdPolicy) Report {
	return ValidatePlan(ValidationInput{
		Routes:      routes,
		Vehicles:    vehicles,
		Environment: env,
		Policy:      policy,
	})
}

// ValidatePlan evaluates every rule independently and returns all findings.
func ValidatePlan(in ValidationInput) Report {
	policy := in.Policy.WithDefaults()
	report := Report{
		Warnings:        []Warning{},
		Recommendations: []Recommendation{},
	}

	overcapacity := false
	byID := make(map[string]Vehicle, len(in.Vehicles))
	for _, v := range in.Vehicles {
		byID[v.ID] = v
	}

	for i := range in.Routes {
		route := &in.Routes[i]
		vehicle, ok := byID[route.VehicleID]
		if !ok {
			report.Warnings = append(report.Warnings, Warning{
				Severity:  SeverityError,
				Kind:      WarningUnknownVehicle,
				Message:   fmt.Sprintf("route references unknown vehicle %q", route.VehicleID),
				VehicleID: route.VehicleID,
			})
			continue
		}
		if people := route.PeopleCount(); people > vehicle.Capacity {
			over := people - vehicle.Capacity
			overcapacity = true
			report.Warnings = append(report.Warnings, Warning{
				Severity:  SeverityError,
				Kind:      WarningOvercapacity,
				Message:   fmt.Sprintf("%s is over capacity by %d (%d/%d)", vehicleLabel(vehicle), over, people, vehicle.Capacity),
				VehicleID: vehicle.ID,
				Amount:    over,
			})
		}
	}

	for i := range in.Routes {
		for _, stop := range in.Routes[i].Stops {
			if w, ok := complianceWarning(stop, in.Routes[i].VehicleID); ok {
				report.Warnings = append(report.Warnings, w)
			}
		}
	}

	for _, stop := range in.Unassigned {
		report.Warnings = append(report.Warnings, Warning{
			Severity: SeverityError,
			Kind:     WarningUnassigned,
			Message:  fmt.Sprintf("%s (%d people) could not be assigned to any vehicle", stop.Guest.Name, stop.Guest.PeopleCount),
			GuestID:  stop.Guest.ID,
			Amount:   stop.Guest.PeopleCount,
		})
	}

	demand, capacity := 0, 0
	for i := range in.Routes {
		demand += in.Routes[i].PeopleCount()
	}
	for _, s := range in.Unassigned {
		demand += s.Guest.PeopleCount
	}
	for _, v := range in.Vehicles {
		capacity += v.Capacity
	}
	// Route-level overcapacity already names the shortfall per vehicle.
	if demand > capacity && !overcapacity {
		report.Warnings = append(report.Warnings, Warning{
			Severity: SeverityError,
			Kind:     WarningInsufficientCapacity,
			Message:  fmt.Sprintf("%d guests exceed total vehicle capacity of %d", demand, capacity),
			Amount:   demand - capacity,
		})
	}

	report.Recommendations = append(report.Recommendations, environmentRecommendations(in.Environment, in.ActivityType, policy)...)

	totalKm := 0.0
	for i := range in.Routes {
		totalKm += in.Routes[i].TotalDistanceKm
	}
	if totalKm > policy.TotalDistanceWarningKm {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Severity: SeverityInfo,
			Kind:     RecommendDistanceBuffer,
			Message:  fmt.Sprintf("total distance %.1f km exceeds %.0f km; plan fuel and extra time", totalKm, policy.TotalDistanceWarningKm),
		})
	}

	if len(in.Routes) > 0 {
		sum := 0.0
		for i := range in.Routes {
			sum += in.Routes[i].EfficiencyScore
		}
		if avg := sum / float64(len(in.Routes)); avg < policy.MinEfficiencyScore {
			report.Recommendations = append(report.Recommendations, Recommendation{
				Severity: SeverityInfo,
				Kind:     RecommendConsolidate,
				Message:  fmt.Sprintf("average route efficiency %.1f is below %.0f; consider consolidating pickups", Round1(avg), policy.MinEfficiencyScore),
			})
		}
	}

	return report
}

func complianceWarning(stop RouteStop, vehicleID string) (Warning, bool) {
	var severity Severity
	var relation string
	switch stop.Compliance() {
	case ComplianceLate:
		severity, relation = SeverityWarning, "after"
	case ComplianceEarly:
		severity, relation = SeverityInfo, "before"
	default:
		return Warning{}, false
	}
	return Warning{
		Severity: severity,
		Kind:     WarningTimeCompliance,
		Message: fmt.Sprintf("%s pickup at %s is %s the preferred window %s-%s",
			stop.Guest.Name, stop.PickupTime, relation, stop.Guest.PreferredWindow.Start, stop.Guest.PreferredWindow.End),
		VehicleID: vehicleID,
		GuestID:   stop.Guest.ID,
	}, true
}

func environmentRecommendations(env *Environment, activityType string, policy ThresholdPolicy) []Recommendation {
	if env == nil {
		return nil
	}
	activity := LookupActivity(activityType)
	var recs []Recommendation

	if env.Condition.Wet() {
		recs = append(recs, Recommendation{
			Severity: SeverityInfo,
			Kind:     RecommendRainBuffer,
			Message:  "rain expected; allow 15-20% extra travel time between pickups",
		})
		if activity.WeatherSensitive {
			recs = append(recs, Recommendation{
				Severity: SeverityWarning,
				Kind:     RecommendWeatherRisk,
				Message:  fmt.Sprintf("%s is weather sensitive; consider an indoor alternative or postponing", activity.Label),
			})
		}
	}

	if env.WindSpeedKph > policy.WindSpeedWarningKph {
		recs = append(recs, Recommendation{
			Severity: SeverityWarning,
			Kind:     RecommendWindCaution,
			Message:  fmt.Sprintf("wind %.0f km/h exceeds %.0f km/h; check safety of sea-based activities", env.WindSpeedKph, policy.WindSpeedWarningKph),
		})
	}

	if env.TideLevelCm != nil && activity.OptimalTide == TideHigh && *env.TideLevelCm < policy.LowTideCm {
		recs = append(recs, Recommendation{
			Severity: SeverityInfo,
			Kind:     RecommendLowTide,
			Message:  fmt.Sprintf("tide %.0f cm is below %.0f cm; %s may be limited", math.Round(*env.TideLevelCm), policy.LowTideCm, activity.Label),
		})
	}

	return recs
}

func vehicleLabel(v Vehicle) string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}
