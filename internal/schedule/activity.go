package schedule

import (
	"sort"
	"strings"
)

// TidePreference is the tide an activity is best run at.
type TidePreference string

const (
	TideAny  TidePreference = "any"
	TideHigh TidePreference = "high"
	TideMid  TidePreference = "mid"
	TideCalm TidePreference = "calm"
)

// Activity describes a tour type offered on the island.
type Activity struct {
	Type             string         `json:"type"`
	Label            string         `json:"label"`
	OptimalTide      TidePreference `json:"optimalTide"`
	DurationMinutes  int            `json:"durationMinutes"`
	WeatherSensitive bool           `json:"weatherSensitive"`
}

// ActivityOther is used for unknown activity types.
const ActivityOther = "other"

var activities = map[string]Activity{
	"snorkeling":  {Type: "snorkeling", Label: "Snorkeling", OptimalTide: TideHigh, DurationMinutes: 180, WeatherSensitive: true},
	"diving":      {Type: "diving", Label: "Diving", OptimalTide: TideAny, DurationMinutes: 240, WeatherSensitive: true},
	"kayak":       {Type: "kayak", Label: "Mangrove kayak", OptimalTide: TideMid, DurationMinutes: 120},
	"sup":         {Type: "sup", Label: "Stand-up paddle", OptimalTide: TideCalm, DurationMinutes: 90, WeatherSensitive: true},
	"glass_boat":  {Type: "glass_boat", Label: "Glass-bottom boat", OptimalTide: TideHigh, DurationMinutes: 45},
	"sunset":      {Type: "sunset", Label: "Sunset viewing", OptimalTide: TideAny, DurationMinutes: 90, WeatherSensitive: true},
	"stargazing":  {Type: "stargazing", Label: "Stargazing", OptimalTide: TideAny, DurationMinutes: 120, WeatherSensitive: true},
	"sightseeing": {Type: "sightseeing", Label: "Island sightseeing", OptimalTide: TideAny, DurationMinutes: 240},
	ActivityOther: {Type: ActivityOther, Label: "Other", OptimalTide: TideAny, DurationMinutes: 120},
}

// LookupActivity returns the catalog entry for an activity type. Unknown or
// empty types resolve to the "other" entry.
func LookupActivity(activityType string) Activity {
	if a, ok := activities[strings.ToLower(strings.TrimSpace(activityType))]; ok {
		return a
	}
	return activities[ActivityOther]
}

// Activities returns the full catalog sorted by type.
func Activities() []Activity {
	out := make([]Activity, 0, len(activities))
	for _, a := range activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
