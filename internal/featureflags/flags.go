// Package featureflags holds operator-controlled switches for the planner,
// stored in Postgres or memory and cached in process.
package featureflags

import (
	"errors"
	"fmt"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagForceLocalEstimate skips the remote optimizer and plans every
	// request with the local estimate.
	FlagForceLocalEstimate = "force_local_estimate"

	// FlagDistributorWraparound switches overflow handling from the
	// unassigned bucket to wrapping back onto the first vehicle.
	FlagDistributorWraparound = "distributor_wraparound"

	// FlagEnvironmentCachedOnly keeps environment lookups off the upstream
	// provider; misses fall back to the seasonal estimate.
	FlagEnvironmentCachedOnly = "environment_cached_only"

	// FlagRemoteTimeoutSeconds overrides the optimizer request deadline.
	// Zero or missing keeps the configured value.
	FlagRemoteTimeoutSeconds = "remote_timeout_seconds"
)

var (
	// ErrUnknownFlag is returned when writing a key that is not defined.
	ErrUnknownFlag = errors.New("unknown flag")

	// ErrInvalidValue is returned when a value does not match the flag kind.
	ErrInvalidValue = errors.New("invalid flag value")
)

// Kind is the value type a flag accepts.
type Kind string

const (
	KindBool    Kind = "bool"
	KindSeconds Kind = "seconds"
)

// Definition describes a well-known flag.
type Definition struct {
	Key         string `json:"key"`
	Kind        Kind   `json:"kind"`
	Default     any    `json:"default"`
	Description string `json:"description"`
}

var definitions = []Definition{
	{
		Key:         FlagDistributorWraparound,
		Kind:        KindBool,
		Default:     false,
		Description: "wrap overflow guests onto the first vehicle instead of leaving them unassigned",
	},
	{
		Key:         FlagEnvironmentCachedOnly,
		Kind:        KindBool,
		Default:     false,
		Description: "serve environment data from cache or season only",
	},
	{
		Key:         FlagForceLocalEstimate,
		Kind:        KindBool,
		Default:     false,
		Description: "plan with the local estimate even in auto mode",
	},
	{
		Key:         FlagRemoteTimeoutSeconds,
		Kind:        KindSeconds,
		Default:     float64(0),
		Description: "optimizer deadline in seconds, 0 keeps the configured value",
	},
}

// Definitions returns every well-known flag, sorted by key.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// IsKnown reports whether key is one of the well-known flags.
func IsKnown(key string) bool {
	_, ok := lookup(key)
	return ok
}

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// Validate checks the key is defined and the value fits its kind. Numbers
// arrive from JSON as float64.
func (u FlagUpdate) Validate() error {
	def, ok := lookup(u.Key)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownFlag, u.Key)
	}
	switch def.Kind {
	case KindSeconds:
		n, ok := u.Value.(float64)
		if !ok || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number of seconds", ErrInvalidValue, u.Key)
		}
	default:
		if _, ok := u.Value.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidValue, u.Key)
		}
	}
	return nil
}

// BoolValue returns the flag value as a boolean, treating non-zero numbers
// as true. A nil flag or other types give defaultValue.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return defaultValue
	}
}

// Float64Value returns the flag value as a float64.
// Returns the default value if the flag is nil or not a number.
func (f *Flag) Float64Value(defaultValue float64) float64 {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// DefaultFlags returns a fresh set of flags holding their default values.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	flags := make(map[string]*Flag, len(definitions))
	for _, d := range definitions {
		flags[d.Key] = &Flag{Key: d.Key, Value: d.Default, UpdatedAt: now}
	}
	return flags
}
