package featureflags

import (
	"context"
	"maps"
	"sync"
	"time"
)

// InMemoryRepository keeps overrides in process. It backs the API when no
// database is configured.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository returns an empty repository; every flag reads as
// its default.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{flags: make(map[string]Flag)}
}

// NewInMemoryRepositoryWithFlags returns a repository seeded with flags.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	r := NewInMemoryRepository()
	for key, flag := range flags {
		r.flags[key] = *flag
	}
	return r
}

func (r *InMemoryRepository) Get(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flag, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return &flag, nil
}

func (r *InMemoryRepository) List(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	snapshot := maps.Clone(r.flags)
	r.mu.RUnlock()

	out := make(map[string]*Flag, len(snapshot))
	for key, flag := range snapshot {
		out[key] = &flag
	}
	return out, nil
}

// Put stores copies of flags. A zero UpdatedAt is stamped with the
// current time.
func (r *InMemoryRepository) Put(_ context.Context, flags ...*Flag) error {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, flag := range flags {
		stored := *flag
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = now
		}
		r.flags[flag.Key] = stored
	}
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.flags, key)
	return nil
}
