package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/rts-pathfind/internal/logging"
)

// RedisCache реализует CacheRepo поверх Redis: ответы общие для всех
// узлов, читающих один журнал
type RedisCache struct {
	client *redis.Client
	config *CacheConfig
	stats  counters
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(config *CacheConfig) (*RedisCache, error) {
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}
	if config.Prefix == "" {
		config.Prefix = "pathfind:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis cache initialized: %s (prefix %s)", config.RedisURL, config.Prefix)
	return &RedisCache{client: rdb, config: config}, nil
}

// Get получает значение по ключу
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.stats.recordLatency(start)

	val, err := r.client.Get(ctx, r.config.Prefix+key).Bytes()
	if err == nil {
		r.stats.hit()
		return val, nil
	}
	r.stats.miss()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return nil, fmt.Errorf("redis get error: %w", err)
}

// Set сохраняет значение; TTL ограничен MaxTTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.stats.recordLatency(start)

	if ttl <= 0 || ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}
	if err := r.client.Set(ctx, r.config.Prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) GetMetrics() CacheMetrics {
	return r.stats.snapshot()
}
