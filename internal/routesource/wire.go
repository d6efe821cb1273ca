package routesource

import "github.com/ishigakitour/pickup/internal/schedule"

// optimizeRequest is the body accepted by POST /api/ishigaki/optimize.
type optimizeRequest struct {
	Date             string           `json:"date"`
	ActivityType     string           `json:"activity_type"`
	PlannedStartTime string           `json:"planned_start_time"`
	ActivityLat      float64          `json:"activity_lat"`
	ActivityLng      float64          `json:"activity_lng"`
	DepartureLat     float64          `json:"departure_lat"`
	DepartureLng     float64          `json:"departure_lng"`
	Guests           []guestPayload   `json:"guests"`
	Vehicles         []vehiclePayload `json:"vehicles"`
}

type guestPayload struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	HotelName            string  `json:"hotel_name"`
	PickupLat            float64 `json:"pickup_lat"`
	PickupLng            float64 `json:"pickup_lng"`
	NumPeople            int     `json:"num_people"`
	PreferredPickupStart string  `json:"preferred_pickup_start"`
	PreferredPickupEnd   string  `json:"preferred_pickup_end"`
	Contact              string  `json:"contact,omitempty"`
	SpecialNeeds         string  `json:"special_needs,omitempty"`
}

type vehiclePayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	Driver      string  `json:"driver"`
	LocationLat float64 `json:"location_lat"`
	LocationLng float64 `json:"location_lng"`
}

// optimizeResponse is the optimizer's answer. Only the fields the planner
// consumes are decoded.
type optimizeResponse struct {
	Success           bool         `json:"success"`
	Route             []stopRecord `json:"route"`
	TotalDistance     float64      `json:"total_distance"`
	EstimatedDuration string       `json:"estimated_duration"`
	EfficiencyScore   *float64     `json:"efficiency_score,omitempty"`
	Message           string       `json:"message,omitempty"`
	Detail            string       `json:"detail,omitempty"`
}

type stopRecord struct {
	GuestID        string  `json:"guest_id,omitempty"`
	Name           string  `json:"name"`
	HotelName      string  `json:"hotel_name"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	NumPeople      int     `json:"num_people"`
	PickupTime     string  `json:"pickup_time"`
	TimeCompliance string  `json:"time_compliance,omitempty"`
}

func toOptimizeRequest(req Request) optimizeRequest {
	out := optimizeRequest{
		Date:             req.Date,
		ActivityType:     req.ActivityType,
		PlannedStartTime: req.PlannedStart.String(),
		ActivityLat:      req.Activity.Lat,
		ActivityLng:      req.Activity.Lng,
		DepartureLat:     req.Departure.Lat,
		DepartureLng:     req.Departure.Lng,
		Guests:           make([]guestPayload, 0, len(req.Guests)),
		Vehicles:         make([]vehiclePayload, 0, len(req.Vehicles)),
	}
	for _, g := range req.Guests {
		out.Guests = append(out.Guests, guestPayload{
			ID:                   g.ID,
			Name:                 g.Name,
			HotelName:            g.HotelName,
			PickupLat:            g.Location.Lat,
			PickupLng:            g.Location.Lng,
			NumPeople:            g.PeopleCount,
			PreferredPickupStart: g.PreferredWindow.Start.String(),
			PreferredPickupEnd:   g.PreferredWindow.End.String(),
			Contact:              g.Contact,
			SpecialNeeds:         g.SpecialNeeds,
		})
	}
	for _, v := range req.Vehicles {
		p := vehiclePayload{
			ID:       v.ID,
			Name:     v.Name,
			Capacity: v.Capacity,
			Driver:   v.DriverName,
		}
		loc := req.Departure
		if v.Location != nil {
			loc = *v.Location
		}
		p.LocationLat, p.LocationLng = loc.Lat, loc.Lng
		out.Vehicles = append(out.Vehicles, p)
	}
	return out
}

// guestIndex resolves optimizer stops back to request guests.
type guestIndex struct {
	byID   map[string]int
	byName map[[2]string]int
}

func newGuestIndex(guests []schedule.Guest) guestIndex {
	idx := guestIndex{
		byID:   make(map[string]int, len(guests)),
		byName: make(map[[2]string]int, len(guests)),
	}
	for i, g := range guests {
		if g.ID != "" {
			idx.byID[g.ID] = i
		}
		key := [2]string{g.Name, g.HotelName}
		if _, dup := idx.byName[key]; !dup {
			idx.byName[key] = i
		}
	}
	return idx
}

func (idx guestIndex) lookup(rec stopRecord) (int, bool) {
	if rec.GuestID != "" {
		if i, ok := idx.byID[rec.GuestID]; ok {
			return i, true
		}
	}
	i, ok := idx.byName[[2]string{rec.Name, rec.HotelName}]
	return i, ok
}
