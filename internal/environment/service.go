package environment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider fetches the daily forecast for the island.
type Provider interface {
	// DailyConditions returns the forecast for date.
	DailyConditions(ctx context.Context, date time.Time) (*Conditions, error)

	// Name returns the provider name for logging.
	Name() string
}

// SnapshotStore shares fetched conditions between processes.
type SnapshotStore interface {
	Get(ctx context.Context, date string) (*Conditions, error)
	Put(ctx context.Context, c *Conditions, ttl time.Duration) error
}

// ServiceConfig holds configuration for the environment service.
type ServiceConfig struct {
	Provider Provider

	// Store is an optional shared snapshot store read before the provider.
	Store SnapshotStore

	Logger zerolog.Logger

	// CacheTTL is how long conditions stay fresh (default: 10 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// SnapshotTTL is how long snapshots live in the store (default: 6 hours).
	SnapshotTTL time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service provides tour-day conditions with caching and a seasonal
// fallback. It never fails for a valid date.
type Service struct {
	provider        Provider
	store           SnapshotStore
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	snapshotTTL     time.Duration
	now             func() time.Time

	mu              sync.RWMutex
	cache           map[string]*cachedConditions
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedConditions struct {
	conditions *Conditions
	fetchedAt  time.Time
	expiresAt  time.Time
}

// NewService creates a new environment service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = time.Hour
	}

	snapshotTTL := cfg.SnapshotTTL
	if snapshotTTL == 0 {
		snapshotTTL = 6 * time.Hour
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:        cfg.Provider,
		store:           cfg.Store,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		snapshotTTL:     snapshotTTL,
		now:             now,
		cache:           make(map[string]*cachedConditions),
		cleanupInterval: 5 * time.Minute,
	}
}

// Get returns conditions for date: the in-memory cache, then the shared
// store, then the provider, then stale cache, then the seasonal fallback.
func (s *Service) Get(ctx context.Context, date time.Time) (*Conditions, error) {
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	key := date.Format(DateLayout)

	if c, ok := s.fresh(key); ok {
		return c, nil
	}
	if c := s.fromStore(ctx, key); c != nil {
		s.remember(key, c)
		return c, nil
	}
	return s.fetch(ctx, date, key)
}

// Cached returns conditions for date without calling the provider. When
// nothing is cached the seasonal fallback is returned.
func (s *Service) Cached(ctx context.Context, date time.Time) (*Conditions, error) {
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	key := date.Format(DateLayout)

	if c, ok := s.fresh(key); ok {
		return c, nil
	}
	if c := s.fromStore(ctx, key); c != nil {
		s.remember(key, c)
		return c, nil
	}
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		return cached.conditions, nil
	}
	return SeasonalFallback(date, s.now()), nil
}

// Refresh fetches date from the provider, bypassing every cache, and
// writes the result to the cache and the store.
func (s *Service) Refresh(ctx context.Context, date time.Time) (*Conditions, error) {
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	c, err := s.provider.DailyConditions(ctx, date)
	if err != nil {
		return nil, err
	}
	key := date.Format(DateLayout)
	s.remember(key, c)
	s.toStore(ctx, c)
	return c, nil
}

func (s *Service) fetch(ctx context.Context, date time.Time, key string) (*Conditions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		return cached.conditions, nil
	}

	if s.provider != nil {
		s.logger.Debug().
			Str("date", key).
			Str("provider", s.provider.Name()).
			Msg("fetching conditions from provider")

		c, err := s.provider.DailyConditions(ctx, date)
		if err == nil {
			s.storeLocked(key, c)
			s.toStore(ctx, c)
			return c, nil
		}
		s.logger.Error().Err(err).Str("date", key).Msg("failed to fetch conditions")
	}

	if cached, ok := s.cache[key]; ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Warn().
			Time("fetched_at", cached.fetchedAt).
			Msg("serving stale conditions due to provider error")
		return cached.conditions, nil
	}

	s.logger.Warn().Str("date", key).Msg("serving seasonal fallback conditions")
	return SeasonalFallback(date, s.now()), nil
}

func (s *Service) fresh(key string) (*Conditions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		return cached.conditions, true
	}
	return nil, false
}

func (s *Service) fromStore(ctx context.Context, key string) *Conditions {
	if s.store == nil {
		return nil
	}
	c, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			s.logger.Warn().Err(err).Str("date", key).Msg("reading environment snapshot")
		}
		return nil
	}
	return c
}

func (s *Service) toStore(ctx context.Context, c *Conditions) {
	if s.store == nil {
		return
	}
	if err := s.store.Put(ctx, c, s.snapshotTTL); err != nil {
		s.logger.Warn().Err(err).Str("date", c.Date).Msg("writing environment snapshot")
	}
}

func (s *Service) remember(key string, c *Conditions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeLocked(key, c)
}

func (s *Service) storeLocked(key string, c *Conditions) {
	now := s.now()
	s.cache[key] = &cachedConditions{
		conditions: c,
		fetchedAt:  now,
		expiresAt:  now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(now)
}

// cleanupIfNeeded removes entries past the stale window.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now
	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up expired environment cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedConditions)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}
	stats := CacheStats{Entries: len(s.cache), FreshEntries: fresh, SharedStore: s.store != nil}
	if s.provider != nil {
		stats.Provider = s.provider.Name()
	}
	return stats
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int    `json:"entries"`
	FreshEntries int    `json:"freshEntries"`
	Provider     string `json:"provider"`
	SharedStore  bool   `json:"sharedStore"`
}
