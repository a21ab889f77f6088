package repository

import (
	"context"
	"time"

	"fareanomaly-service/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// Marker keys share a prefix so the service's flags are easy to spot in a
// shared Redis instance.
const markerKeyPrefix = "anomaly_"

// RedisMarkerStore implements MarkerStore on Redis TTL keys
type RedisMarkerStore struct {
	client *redis.Client
}

// NewRedisMarkerStore creates a new marker store
func NewRedisMarkerStore(client *redis.Client) repository.MarkerStore {
	return &RedisMarkerStore{
		client: client,
	}
}

// Exists reports whether the marker is currently set
func (s *RedisMarkerStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, markerKeyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetAbsent atomically sets the marker if it is not set yet. Returns true
// when this call acquired the marker.
func (s *RedisMarkerStore) SetAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, markerKeyPrefix+key, time.Now().Unix(), ttl).Result()
}
