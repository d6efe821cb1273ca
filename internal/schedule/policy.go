package schedule

// ThresholdPolicy holds the numeric limits the validator applies. Units are
// part of the field names.
type ThresholdPolicy struct {
	// WindSpeedWarningKph triggers the sea activity caution when exceeded.
	WindSpeedWarningKph float64 `json:"windSpeedWarningKph"`

	// TotalDistanceWarningKm triggers the fuel/time buffer recommendation
	// when the sum of all route distances exceeds it.
	TotalDistanceWarningKm float64 `json:"totalDistanceWarningKm"`

	// LowTideCm is the level below which high-tide activities are limited.
	LowTideCm float64 `json:"lowTideCm"`

	// MinEfficiencyScore triggers the consolidation recommendation when the
	// average route efficiency falls below it.
	MinEfficiencyScore float64 `json:"minEfficiencyScore"`
}

// DefaultThresholdPolicy returns the standard limits. 36 km/h is 10 m/s.
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		WindSpeedWarningKph:    36,
		TotalDistanceWarningKm: 100,
		LowTideCm:              150,
		MinEfficiencyScore:     70,
	}
}

// WithDefaults fills zero fields from DefaultThresholdPolicy.
func (p ThresholdPolicy) WithDefaults() ThresholdPolicy {
	d := DefaultThresholdPolicy()
	if p.WindSpeedWarningKph <= 0 {
		p.WindSpeedWarningKph = d.WindSpeedWarningKph
	}
	if p.TotalDistanceWarningKm <= 0 {
		p.TotalDistanceWarningKm = d.TotalDistanceWarningKm
	}
	if p.LowTideCm <= 0 {
		p.LowTideCm = d.LowTideCm
	}
	if p.MinEfficiencyScore <= 0 {
		p.MinEfficiencyScore = d.MinEfficiencyScore
	}
	return p
}
