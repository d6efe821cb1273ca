package schedule

import "sort"

// VehicleStats summarizes one vehicle route.
type VehicleStats struct {
	VehicleID       string  `json:"vehicleId"`
	VehicleName     string  `json:"vehicleName"`
	EfficiencyScore float64 `json:"efficiencyScore"`
	DistanceKm      float64 `json:"distanceKm"`
	GuestCount      int     `json:"guestCount"`
	StopCount       int     `json:"stopCount"`
	Capacity        int     `json:"capacity"`
	UtilizationPct  float64 `json:"utilizationPct"`
}

// AreaStats counts pickups in one area.
type AreaStats struct {
	Area   string `json:"area"`
	Stops  int    `json:"stops"`
	Guests int    `json:"guests"`
}

// HourStats counts pickups within one clock hour.
type HourStats struct {
	Hour   int `json:"hour"`
	Stops  int `json:"stops"`
	Guests int `json:"guests"`
}

// ComplianceCounts tallies stops by compliance label.
type ComplianceCounts struct {
	Acceptable int `json:"acceptable"`
	Early      int `json:"early"`
	Late       int `json:"late"`
}

// Summary holds the global figures.
type Summary struct {
	TotalVehicles          int     `json:"totalVehicles"`
	TotalGuests            int     `json:"totalGuests"`
	TotalStops             int     `json:"totalStops"`
	TotalDistanceKm        float64 `json:"totalDistanceKm"`
	AverageEfficiency      float64 `json:"averageEfficiency"`
	AverageStopsPerVehicle float64 `json:"averageStopsPerVehicle"`
	AverageDistanceKm      float64 `json:"averageDistanceKm"`
	EstimatedTotalMinutes  int     `json:"estimatedTotalMinutes"`
}

// Statistics is the dashboard KPI set for a schedule.
type Statistics struct {
	Summary    Summary          `json:"summary"`
	Vehicles   []VehicleStats   `json:"vehicles"`
	Areas      []AreaStats      `json:"areas"`
	Hours      []HourStats      `json:"hours"`
	Compliance ComplianceCounts `json:"compliance"`
}

// Summarize reduces routes into Statistics. Vehicles supply capacities for
// utilization; a route whose vehicle is unknown reports zero utilization.
// Distances and percentages are rounded to one decimal place.
func Summarize(routes []VehicleRoute, vehicles []Vehicle) Statistics {
	capacities := make(map[string]int, len(vehicles))
	for _, v := range vehicles {
		capacities[v.ID] = v.Capacity
	}

	stats := Statistics{
		Vehicles: make([]VehicleStats, 0, len(routes)),
		Areas:    []AreaStats{},
		Hours:    []HourStats{},
	}
	areas := make(map[string]*AreaStats)
	hours := make(map[int]*HourStats)

	var totalKm, totalEfficiency float64
	for i := range routes {
		route := &routes[i]
		people := route.PeopleCount()
		capacity := capacities[route.VehicleID]

		utilization := 0.0
		if capacity > 0 {
			utilization = float64(people) / float64(capacity) * 100
		}
		stats.Vehicles = append(stats.Vehicles, VehicleStats{
			VehicleID:       route.VehicleID,
			VehicleName:     route.VehicleName,
			EfficiencyScore: route.EfficiencyScore,
			DistanceKm:      Round1(route.TotalDistanceKm),
			GuestCount:      people,
			StopCount:       len(route.Stops),
			Capacity:        capacity,
			UtilizationPct:  Round1(utilization),
		})

		totalKm += route.TotalDistanceKm
		totalEfficiency += route.EfficiencyScore
		stats.Summary.TotalGuests += people
		stats.Summary.TotalStops += len(route.Stops)
		stats.Summary.EstimatedTotalMinutes += route.EstimatedDurationMinutes

		for _, stop := range route.Stops {
			area := AreaForHotel(stop.Guest.HotelName)
			a, ok := areas[area]
			if !ok {
				a = &AreaStats{Area: area}
				areas[area] = a
			}
			a.Stops++
			a.Guests += stop.Guest.PeopleCount

			hour := stop.PickupTime.Hour()
			h, ok := hours[hour]
			if !ok {
				h = &HourStats{Hour: hour}
				hours[hour] = h
			}
			h.Stops++
			h.Guests += stop.Guest.PeopleCount

			switch stop.Compliance() {
			case ComplianceAcceptable:
				stats.Compliance.Acceptable++
			case ComplianceEarly:
				stats.Compliance.Early++
			case ComplianceLate:
				stats.Compliance.Late++
			}
		}
	}

	stats.Summary.TotalVehicles = len(routes)
	stats.Summary.TotalDistanceKm = Round1(totalKm)
	if n := float64(len(routes)); n > 0 {
		stats.Summary.AverageEfficiency = Round1(totalEfficiency / n)
		stats.Summary.AverageStopsPerVehicle = Round1(float64(stats.Summary.TotalStops) / n)
		stats.Summary.AverageDistanceKm = Round1(totalKm / n)
	}

	for _, a := range areas {
		stats.Areas = append(stats.Areas, *a)
	}
	sort.Slice(stats.Areas, func(i, j int) bool {
		if stats.Areas[i].Guests != stats.Areas[j].Guests {
			return stats.Areas[i].Guests > stats.Areas[j].Guests
		}
		return stats.Areas[i].Area < stats.Areas[j].Area
	})

	for _, h := range hours {
		stats.Hours = append(stats.Hours, *h)
	}
	sort.Slice(stats.Hours, func(i, j int) bool { return stats.Hours[i].Hour < stats.Hours[j].Hour })

	return stats
}
