package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidTimeOfDay is returned when a clock time is not in HH:MM form.
var ErrInvalidTimeOfDay = errors.New("time of day must be in HH:MM format")

// timeHHMMRegex validates HH:MM format.
var timeHHMMRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// minutesPerDay bounds TimeOfDay arithmetic.
const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes after midnight.
// Pickups never cross midnight, so no date component is carried.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeHHMMRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return TimeOfDay(hh*60 + mm), nil
}

// MustParseTimeOfDay is like ParseTimeOfDay but panics on bad input.
// Intended for literals in tests and defaults.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Clock builds a TimeOfDay from an hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Hour returns the hour component (0-23).
func (t TimeOfDay) Hour() int {
	return int(t.normalize()) / 60
}

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int {
	return int(t.normalize()) % 60
}

// Add returns t shifted by the given number of minutes, wrapping at midnight.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return (t + TimeOfDay(minutes)).normalize()
}

// AddClamped returns t shifted by the given number of minutes, held
// within 00:00-23:59 instead of wrapping.
func (t TimeOfDay) AddClamped(minutes int) TimeOfDay {
	return TimeOfDay(min(max(int(t)+minutes, 0), minutesPerDay-1))
}

// Sub returns t - u in minutes.
func (t TimeOfDay) Sub(u TimeOfDay) int {
	return int(t) - int(u)
}

// Before reports whether t is earlier than u.
func (t TimeOfDay) Before(u TimeOfDay) bool { return t < u }

// After reports whether t is later than u.
func (t TimeOfDay) After(u TimeOfDay) bool { return t > u }

// String renders the time as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) normalize() TimeOfDay {
	n := int(t) % minutesPerDay
	if n < 0 {
		n += minutesPerDay
	}
	return TimeOfDay(n)
}

// MarshalJSON encodes the time as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, string(data))
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Window is a guest's acceptable pickup interval, inclusive at both ends.
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool {
	return w.Start < w.End
}

// Contains reports whether t falls within the window.
func (w Window) Contains(t TimeOfDay) bool {
	return t >= w.Start && t <= w.End
}
