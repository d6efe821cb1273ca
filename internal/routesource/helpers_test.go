package routesource_test

import (
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/schedule"
)

var activity = schedule.Point{Lat: 24.4041, Lng: 124.1611}

func tourGuests() []schedule.Guest {
	window := schedule.Window{Start: schedule.Clock(8, 30), End: schedule.Clock(9, 0)}
	return []schedule.Guest{
		{ID: "g-near", Name: "Sato", HotelName: "川平湾ホテル", Location: schedule.Point{Lat: 24.40, Lng: 124.16}, PeopleCount: 3, PreferredWindow: window},
		{ID: "g-far", Name: "Tanaka", HotelName: "フサキビーチリゾート", Location: schedule.Point{Lat: 24.33, Lng: 124.15}, PeopleCount: 4, PreferredWindow: window},
		{ID: "g-mid", Name: "Suzuki", HotelName: "ホテル日航八重山", Location: schedule.Point{Lat: 24.37, Lng: 124.16}, PeopleCount: 2, PreferredWindow: window},
	}
}

func tourRequest() routesource.Request {
	return routesource.Request{
		Date:         "2026-07-01",
		ActivityType: "snorkeling",
		PlannedStart: schedule.Clock(10, 0),
		Activity:     activity,
		Departure:    schedule.Point{Lat: 24.3336, Lng: 124.1543},
		Guests:       tourGuests(),
		Vehicles: []schedule.Vehicle{
			{ID: "v1", Name: "Hiace", DriverName: "Higa", Capacity: 9},
		},
	}
}

func guestIDs(stops []schedule.ScheduledStop) []string {
	ids := make([]string, 0, len(stops))
	for _, s := range stops {
		ids = append(ids, s.Guest.ID)
	}
	return ids
}
