package schedule

// Classify labels an assigned pickup time against the guest's preferred
// window. The split is strict: any time outside [start, end] is early or
// late, with no grace band.
func Classify(assigned TimeOfDay, window Window) Compliance {
	switch {
	case assigned < window.Start:
		return ComplianceEarly
	case assigned > window.End:
		return ComplianceLate
	default:
		return ComplianceAcceptable
	}
}

// Compliance returns the stop's label, classifying the pickup time when
// the label is missing.
func (s RouteStop) Compliance() Compliance {
	if s.TimeCompliance != "" {
		return s.TimeCompliance
	}
	return Classify(s.PickupTime, s.Guest.PreferredWindow)
}

// ClassifyStops returns route stops for the given scheduled stops with
// compliance labels and marker ids filled in. The input is not modified.
func ClassifyStops(stops []ScheduledStop) []RouteStop {
	out := make([]RouteStop, 0, len(stops))
	for _, s := range stops {
		out = append(out, newRouteStop(s))
	}
	return out
}

func newRouteStop(s ScheduledStop) RouteStop {
	g := s.Guest
	pickup := s.PickupTime
	g.AssignedPickupTime = &pickup
	return RouteStop{
		Guest:          g,
		PickupTime:     s.PickupTime,
		TimeCompliance: Classify(s.PickupTime, g.PreferredWindow),
		MarkerID:       GuestMarkerID(g.ID),
	}
}
