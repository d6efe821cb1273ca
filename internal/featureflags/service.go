package featureflags

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long repository reads are trusted (default: 30s).
	CacheTTL time.Duration

	// DefaultFlags answer when the repository has no value or fails
	// (default: DefaultFlags()).
	DefaultFlags map[string]*Flag

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service reads flags through a short-lived cache and falls back to the
// defaults when the repository is unreachable. Readers are safe on a nil
// *Service, which reports every flag at its zero value.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag
	now          func() time.Time

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Second
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:         cfg.Repository,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
		now:          now,
		cache:        make(map[string]*Flag),
	}
}

// GetFlag returns the flag for key from cache, then the repository, then
// the defaults. A default standing in for a missing override is cached
// like a stored value. It returns nil for keys none of them know.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if s == nil {
		return nil
	}

	if flag, ok := s.cached(key); ok {
		return flag
	}

	flag, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
		s.store(flag)
		return flag
	case errors.Is(err, ErrFlagNotFound):
		def := s.defaultFlags[key]
		if def != nil {
			s.store(def)
		}
		return def
	default:
		s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
		return s.defaultFlags[key]
	}
}

// GetAllFlags returns the defaults overlaid with every stored flag and
// refreshes the cache from the same read.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	if s == nil {
		return map[string]*Flag{}
	}

	result := maps.Clone(s.defaultFlags)

	flags, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}
	maps.Copy(result, flags)

	s.mu.Lock()
	s.cache = maps.Clone(result)
	s.cacheExpiry = s.now().Add(s.cacheTTL)
	s.mu.Unlock()

	return result
}

// SetFlag validates and writes a single flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags validates every flag and then writes them in one repository
// call. Nothing is written when any flag is invalid.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	for _, flag := range flags {
		if err := (FlagUpdate{Key: flag.Key, Value: flag.Value}).Validate(); err != nil {
			return err
		}
	}

	now := s.now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}
	if err := s.repo.Put(ctx, flags...); err != nil {
		return fmt.Errorf("storing flags: %w", err)
	}

	for _, flag := range flags {
		s.store(flag)
		s.logger.Debug().
			Str("flag", flag.Key).
			Interface("value", flag.Value).
			Msg("feature flag stored")
	}
	return nil
}

// ResetFlag removes the stored override for key so it reads as its
// default again. Resetting a flag that has no override is not an error.
func (s *Service) ResetFlag(ctx context.Context, key string) error {
	if !IsKnown(key) {
		return fmt.Errorf("%w %q", ErrUnknownFlag, key)
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrFlagNotFound) {
		return fmt.Errorf("resetting flag: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	s.logger.Debug().Str("flag", key).Msg("feature flag reset to default")
	return nil
}

// InvalidateCache drops every cached flag so the next read hits the
// repository.
func (s *Service) InvalidateCache() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled reports whether the flag for key is truthy.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

func (s *Service) cached(key string) (*Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.now().After(s.cacheExpiry) {
		return nil, false
	}
	flag, ok := s.cache[key]
	return flag, ok
}

// store caches flag and opens a new cache window when the previous one
// has expired.
func (s *Service) store(flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.After(s.cacheExpiry) {
		s.cache = make(map[string]*Flag)
		s.cacheExpiry = now.Add(s.cacheTTL)
	}
	s.cache[flag.Key] = flag
}

// ForceLocalEstimate reports whether planning must not call the remote optimizer.
func (s *Service) ForceLocalEstimate(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagForceLocalEstimate)
}

// DistributorWraparound reports whether overflow stops wrap onto the first vehicle.
func (s *Service) DistributorWraparound(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDistributorWraparound)
}

// EnvironmentCachedOnly reports whether environment lookups must stay off the provider.
func (s *Service) EnvironmentCachedOnly(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagEnvironmentCachedOnly)
}

// RemoteTimeout returns the optimizer deadline override, or fallback when unset.
func (s *Service) RemoteTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	seconds := s.GetFlag(ctx, FlagRemoteTimeoutSeconds).Float64Value(0)
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}
