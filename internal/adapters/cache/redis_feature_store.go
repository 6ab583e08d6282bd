package cache

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

const featureHashKey = "upsell:features"

// RedisFeatureStore keeps the runtime feature toggles in a Redis hash so
// every api and worker instance sees a flip immediately.
type RedisFeatureStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisFeatureStore(client *redis.Client, logger *slog.Logger) *RedisFeatureStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeatureStore{
		client: client,
		logger: logger.With("module", "cache", "layer", "adapter"),
	}
}

// Enabled reads the toggle at call time. Unknown names and Redis errors
// resolve to the feature's default so a flaky store never blocks a run.
func (s *RedisFeatureStore) Enabled(ctx context.Context, name string) bool {
	def, known := ports.KnownFeatures[name]
	if !known {
		return false
	}
	raw, err := s.client.HGet(ctx, featureHashKey, name).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "feature read failed, using default",
				"operation", "feature_enabled", "outcome", "fallback",
				"feature", name, "error", err)
		}
		return def
	}
	return raw == "1"
}

func (s *RedisFeatureStore) Snapshot(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(ports.KnownFeatures))
	maps.Copy(out, ports.KnownFeatures)

	data, err := s.client.HGetAll(ctx, featureHashKey).Result()
	if err != nil {
		return nil, err
	}
	for name, raw := range data {
		if _, known := ports.KnownFeatures[name]; known {
			out[name] = raw == "1"
		}
	}
	return out, nil
}

func (s *RedisFeatureStore) Set(ctx context.Context, name string, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	return s.client.HSet(ctx, featureHashKey, name, val).Err()
}

// MemoryFeatureStore is the in-process fallback used by tests and by
// deployments that run without Redis.
type MemoryFeatureStore struct {
	mu       sync.RWMutex
	features map[string]bool
}

func NewMemoryFeatureStore() *MemoryFeatureStore {
	features := make(map[string]bool, len(ports.KnownFeatures))
	maps.Copy(features, ports.KnownFeatures)
	return &MemoryFeatureStore{features: features}
}

func (s *MemoryFeatureStore) Enabled(_ context.Context, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features[name]
}

func (s *MemoryFeatureStore) Snapshot(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.features))
	maps.Copy(out, s.features)
	return out, nil
}

func (s *MemoryFeatureStore) Set(_ context.Context, name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features[name] = enabled
	return nil
}
