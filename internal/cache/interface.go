// Package cache хранит готовые ответы поиска пути между запросами и узлами.
//
// Ключ ответа включает номер последнего изменения навигатора, поэтому
// любое изменение реестра или местности делает старые ключи недостижимыми:
// явная инвалидация не нужна, устаревшие записи уходят по TTL.
//
// Использование:
//
//	c, err := cache.NewRedisCache(&cache.CacheConfig{RedisURL: "localhost:6379"})
//	nav := navigator.New(engine, navigator.WithQueryCache(c, 30*time.Second))
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// CacheRepo — хранилище байтовых значений с TTL
type CacheRepo interface {
	// Get возвращает ErrCacheMiss, если ключа нет
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение; TTL = 0 — без истечения
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Close() error

	GetMetrics() CacheMetrics
}

// CacheMetrics содержит метрики кеша
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
}

// CacheConfig содержит конфигурацию Redis
type CacheConfig struct {
	RedisURL       string        `yaml:"redis_url"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	Prefix         string        `yaml:"prefix"`
	MaxTTL         time.Duration `yaml:"max_ttl"`
	MaxConnections int           `yaml:"max_connections"`
	PoolTimeout    time.Duration `yaml:"pool_timeout"`
}

// ErrCacheMiss — ключ не найден
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кеша
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// counters — общие атомарные счётчики реализаций
type counters struct {
	requests     int64
	hits         int64
	misses       int64
	latencySum   int64 // в наносекундах
	latencyCount int64
	maxLatency   int64
}

func (c *counters) hit()  { atomic.AddInt64(&c.requests, 1); atomic.AddInt64(&c.hits, 1) }
func (c *counters) miss() { atomic.AddInt64(&c.requests, 1); atomic.AddInt64(&c.misses, 1) }

func (c *counters) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()
	atomic.AddInt64(&c.latencySum, latency)
	atomic.AddInt64(&c.latencyCount, 1)
	for {
		current := atomic.LoadInt64(&c.maxLatency)
		if latency <= current || atomic.CompareAndSwapInt64(&c.maxLatency, current, latency) {
			return
		}
	}
}

func (c *counters) snapshot() CacheMetrics {
	m := CacheMetrics{
		TotalRequests: atomic.LoadInt64(&c.requests),
		CacheHits:     atomic.LoadInt64(&c.hits),
		CacheMisses:   atomic.LoadInt64(&c.misses),
		MaxLatencyMs:  float64(atomic.LoadInt64(&c.maxLatency)) / 1e6,
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	if n := atomic.LoadInt64(&c.latencyCount); n > 0 {
		m.AvgLatencyMs = float64(atomic.LoadInt64(&c.latencySum)) / float64(n) / 1e6
	}
	return m
}
