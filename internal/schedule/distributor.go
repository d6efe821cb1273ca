package schedule

import (
	"fmt"
	"math"
)

// OverflowPolicy decides what happens to a stop once every vehicle has
// been tried.
type OverflowPolicy string

const (
	// OverflowUnassigned places stops that fit no vehicle into
	// Distribution.Unassigned.
	OverflowUnassigned OverflowPolicy = "unassigned"

	// OverflowWrap wraps back to the first vehicle and keeps filling,
	// producing over-capacity routes that Validate reports.
	OverflowWrap OverflowPolicy = "wrap"
)

// Route estimate defaults.
const (
	DefaultAverageSpeedKph   = 30.0
	DefaultStopBufferMinutes = 10
)

// DistributeOptions tunes Distribute.
type DistributeOptions struct {
	// Overflow selects the overflow behaviour (default: OverflowUnassigned).
	Overflow OverflowPolicy

	// Destination is where every route ends. When nil the final leg is
	// not counted.
	Destination *Point

	// AverageSpeedKph is used to turn distance into minutes (default: 30).
	AverageSpeedKph float64

	// StopBufferMinutes is added per stop for boarding (default: 10).
	StopBufferMinutes int
}

func (o DistributeOptions) withDefaults() DistributeOptions {
	if o.Overflow == "" {
		o.Overflow = OverflowUnassigned
	}
	if o.AverageSpeedKph <= 0 {
		o.AverageSpeedKph = DefaultAverageSpeedKph
	}
	if o.StopBufferMinutes <= 0 {
		o.StopBufferMinutes = DefaultStopBufferMinutes
	}
	return o
}

// Distribution is the result of assigning stops to vehicles.
type Distribution struct {
	// Routes holds one entry per vehicle that received at least one stop,
	// in vehicle order.
	Routes []VehicleRoute

	// Unassigned holds stops no vehicle could take, in input order.
	Unassigned []RouteStop
}

// AssignedPeople returns the number of people placed into routes.
func (d *Distribution) AssignedPeople() int {
	total := 0
	for i := range d.Routes {
		total += d.Routes[i].PeopleCount()
	}
	return total
}

// Distribute partitions an ordered stop sequence into per-vehicle routes by
// greedy sequential filling: stops go to the current vehicle until the next
// one would exceed its capacity, then filling moves on to the next vehicle.
// Relative stop order is preserved within every route and across routes.
// Inputs are never modified.
func Distribute(stops []ScheduledStop, vehicles []Vehicle, opts DistributeOptions) (*Distribution, error) {
	if len(vehicles) == 0 {
		return nil, ErrNoVehicles
	}
	opts = opts.withDefaults()

	buckets := make([][]RouteStop, len(vehicles))
	result := &Distribution{}

	switch opts.Overflow {
	case OverflowWrap:
		fillWrapping(stops, vehicles, buckets)
	case OverflowUnassigned:
		result.Unassigned = fillUntilExhausted(stops, vehicles, buckets)
	default:
		return nil, fmt.Errorf("distribute: unknown overflow policy %q", opts.Overflow)
	}

	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		route := VehicleRoute{
			VehicleID:   vehicles[i].ID,
			VehicleName: vehicles[i].Name,
			DriverName:  vehicles[i].DriverName,
			Stops:       bucket,
		}
		opts.measure(&route, vehicles[i].Capacity)
		result.Routes = append(result.Routes, route)
	}

	return result, nil
}

// fillUntilExhausted keeps filling the current vehicle and moves forward
// to the first later vehicle with room when a stop does not fit. A stop
// that fits neither the current vehicle nor any later one is set aside
// without moving the fill position.
func fillUntilExhausted(stops []ScheduledStop, vehicles []Vehicle, buckets [][]RouteStop) []RouteStop {
	var unassigned []RouteStop
	current, load := 0, 0
	for _, s := range stops {
		stop := newRouteStop(s)
		people := s.Guest.PeopleCount

		target := -1
		if load+people <= vehicles[current].Capacity {
			target = current
		} else {
			for next := current + 1; next < len(vehicles); next++ {
				if people <= vehicles[next].Capacity {
					target = next
					break
				}
			}
		}
		if target < 0 {
			unassigned = append(unassigned, stop)
			continue
		}
		if target != current {
			current, load = target, 0
		}

		buckets[current] = append(buckets[current], stop)
		load += people
	}
	return unassigned
}

// fillWrapping advances by one vehicle when a stop does not fit and wraps
// to the first vehicle after the last, appending regardless of remaining
// seats.
func fillWrapping(stops []ScheduledStop, vehicles []Vehicle, buckets [][]RouteStop) {
	current, load := 0, 0
	for _, s := range stops {
		people := s.Guest.PeopleCount
		if load+people > vehicles[current].Capacity {
			current++
			load = 0
			if current >= len(vehicles) {
				current = 0
			}
		}
		buckets[current] = append(buckets[current], newRouteStop(s))
		load += people
	}
}

// measure fills distance, duration and efficiency for a route.
func (o DistributeOptions) measure(route *VehicleRoute, capacity int) {
	var km float64
	minutes := 0

	for i := 1; i < len(route.Stops); i++ {
		leg := DistanceKm(route.Stops[i-1].Guest.Location, route.Stops[i].Guest.Location)
		km += leg
		minutes += TravelMinutes(leg, o.AverageSpeedKph)
	}
	if o.Destination != nil && len(route.Stops) > 0 {
		leg := DistanceKm(route.Stops[len(route.Stops)-1].Guest.Location, *o.Destination)
		km += leg
		minutes += TravelMinutes(leg, o.AverageSpeedKph)
	}
	minutes += o.StopBufferMinutes * len(route.Stops)

	route.TotalDistanceKm = Round1(km)
	route.EstimatedDurationMinutes = minutes
	route.EstimatedDurationLabel = DurationLabel(minutes)
	route.EfficiencyScore = EstimateEfficiency(route.PeopleCount(), capacity, km, minutes)
}

// DurationLabel renders a minute count for display.
func DurationLabel(minutes int) string {
	return fmt.Sprintf("%d min", minutes)
}

// EstimateEfficiency scores a route 0-100 from seat utilization (40%),
// duration (30%) and distance (30%).
func EstimateEfficiency(people, capacity int, distanceKm float64, minutes int) float64 {
	if capacity <= 0 {
		return 0
	}
	utilization := math.Min(float64(people)/float64(capacity)*100, 100)
	timeScore := math.Max(0, 100-float64(minutes)/2)
	distanceScore := math.Max(0, 100-distanceKm*2)
	return Round1(utilization*0.4 + timeScore*0.3 + distanceScore*0.3)
}
