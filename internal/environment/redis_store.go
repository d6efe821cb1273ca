package environment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "environment:snapshot:"

// RedisStore keeps environment snapshots in Redis so the API and the
// worker see the same conditions.
type RedisStore struct {
	client *redis.Client
}

var _ SnapshotStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get loads the snapshot for date (YYYY-MM-DD).
func (s *RedisStore) Get(ctx context.Context, date string) (*Conditions, error) {
	raw, err := s.client.Get(ctx, snapshotKeyPrefix+date).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", date, err)
	}

	var c Conditions
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", date, err)
	}
	return &c, nil
}

// Put stores c under its date for ttl.
func (s *RedisStore) Put(ctx context.Context, c *Conditions, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", c.Date, err)
	}
	if err := s.client.Set(ctx, snapshotKeyPrefix+c.Date, raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", c.Date, err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
