package schedule_test

import "github.com/ishigakitour/pickup/internal/schedule"

func guest(id string, people int, start, end string) schedule.Guest {
	return schedule.Guest{
		ID:          id,
		Name:        "Guest " + id,
		HotelName:   "ANAインターコンチネンタル石垣リゾート",
		Location:    schedule.Point{Lat: 24.3360, Lng: 124.1560},
		PeopleCount: people,
		PreferredWindow: schedule.Window{
			Start: schedule.MustParseTimeOfDay(start),
			End:   schedule.MustParseTimeOfDay(end),
		},
	}
}

func stop(g schedule.Guest, pickup string) schedule.ScheduledStop {
	return schedule.ScheduledStop{Guest: g, PickupTime: schedule.MustParseTimeOfDay(pickup)}
}

func vehicle(id string, capacity int) schedule.Vehicle {
	return schedule.Vehicle{ID: id, Name: "Van " + id, DriverName: "Driver " + id, Capacity: capacity}
}

func stopIDs(stops []schedule.RouteStop) []string {
	ids := make([]string, 0, len(stops))
	for _, s := range stops {
		ids = append(ids, s.Guest.ID)
	}
	return ids
}
