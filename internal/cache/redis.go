package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"chart-terminal/internal/config"
	"chart-terminal/internal/model"
)

// Redis is a shared second-level cache for deployments where several
// chart instances sit behind one store. Same replace-wholesale contract
// as Memory; the TTL is enforced by redis key expiry.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{
		client: client,
		prefix: config.RedisKeyPrefix,
		ttl:    ttl,
		log:    log,
	}, nil
}

// Get retrieves a cached series. Decode failures are treated as a cache
// miss, never surfaced to the caller.
func (r *Redis) Get(ctx context.Context, key Key) (*model.ChartSeries, bool) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(config.RedisLookupTimeoutSec*float64(time.Second)))
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Debug("redis get failed", zap.String("key", key.String()), zap.Error(err))
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		r.log.Warn("corrupt cache entry, treating as miss", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	if entry.Series == nil || len(entry.Series.Points) == 0 {
		return nil, false
	}
	return entry.Series, true
}

// Set stores a series under key with the cache TTL as key expiry.
func (r *Redis) Set(ctx context.Context, key Key, series *model.ChartSeries) {
	data, err := json.Marshal(Entry{Series: series, FetchedAt: time.Now()})
	if err != nil {
		r.log.Warn("failed to encode cache entry", zap.String("key", key.String()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(config.RedisLookupTimeoutSec*float64(time.Second)))
	defer cancel()
	if err := r.client.Set(ctx, r.prefix+key.String(), data, r.ttl).Err(); err != nil {
		r.log.Debug("redis set failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// Clear drops all entries under this cache's prefix.
func (r *Redis) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Debug("redis clear scan failed", zap.Error(err))
	}
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
