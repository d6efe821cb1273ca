package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no value is stored for a key.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores operator overrides. A key with nothing stored reads as
// its default, so deleting an override resets the flag.
type Repository interface {
	Get(ctx context.Context, key string) (*Flag, error)
	List(ctx context.Context) (map[string]*Flag, error)

	// Put writes every flag or none of them.
	Put(ctx context.Context, flags ...*Flag) error

	// Delete returns ErrFlagNotFound when nothing was stored for key.
	Delete(ctx context.Context, key string) error
}
