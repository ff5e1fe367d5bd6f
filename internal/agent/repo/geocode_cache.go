package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/astroguru-core/server/internal/agent/model"
	errx "github.com/astroguru-core/server/internal/core/error"
	logx "github.com/astroguru-core/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisGeocodeCache shares geocoding results across processes.
type RedisGeocodeCache struct {
	rdb redis.Cmdable
}

func NewRedisGeocodeCache(rdb redis.Cmdable) *RedisGeocodeCache {
	return &RedisGeocodeCache{rdb: rdb}
}

func (r *RedisGeocodeCache) geocodeKey(key string) string {
	return fmt.Sprintf("geocode:%s", key)
}

func (r *RedisGeocodeCache) Get(ctx context.Context, key string) (*model.GeoResult, bool, error) {
	k := r.geocodeKey(key)

	raw, err := r.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		logx.Error().Err(err).Str("key", k).Msg("failed to read geocode cache")
		return nil, false, errx.WrapRedis(err)
	}

	var res model.GeoResult
	if err := json.Unmarshal(raw, &res); err != nil {
		logx.Warn().Err(err).Str("key", k).Msg("dropping undecodable geocode cache entry")
		return nil, false, nil
	}
	return &res, true, nil
}

func (r *RedisGeocodeCache) Set(ctx context.Context, key string, res model.GeoResult, ttl time.Duration) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal geocode result: %w", err)
	}
	k := r.geocodeKey(key)
	if err := r.rdb.Set(ctx, k, b, ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to write geocode cache")
		return errx.WrapRedis(err)
	}
	return nil
}

// MemoryGeocodeCache is the process-local fallback when Redis is not configured.
type MemoryGeocodeCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	res       model.GeoResult
	expiresAt time.Time
}

func NewMemoryGeocodeCache() *MemoryGeocodeCache {
	return &MemoryGeocodeCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryGeocodeCache) Get(_ context.Context, key string) (*model.GeoResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	res := e.res
	return &res, true, nil
}

func (m *MemoryGeocodeCache) Set(_ context.Context, key string, res model.GeoResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[key] = memoryEntry{res: res, expiresAt: exp}
	return nil
}

var (
	_ model.GeocodeCache = (*RedisGeocodeCache)(nil)
	_ model.GeocodeCache = (*MemoryGeocodeCache)(nil)
)
