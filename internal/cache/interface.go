package cache

import (
	"errors"
	"time"

	"github.com/annel0/voxel-export/internal/vec"
)

// MeshCache хранит меши чанков по координатам и хэшу конфигурации.
//
// Использование:
//
//	found, err := c.Load(coords, hash, &mesh)
//	err = c.Save(coords, hash, mesh)
type MeshCache interface {
	// Save сохраняет значение для чанка.
	Save(coords vec.Vec2, configHash string, v interface{}) error

	// Load читает значение в dst; false означает промах.
	Load(coords vec.Vec2, configHash string, dst interface{}) (bool, error)
}

// CacheMetrics содержит счётчики обращений к кешу.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
}

// CacheConfig содержит конфигурацию Redis кеша.
type CacheConfig struct {
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	PoolSize      int           `yaml:"pool_size"`
	OpTimeout     time.Duration `yaml:"op_timeout"`
}

// ErrCacheUnavailable возвращается, если Redis не отвечает при подключении
var ErrCacheUnavailable = errors.New("кеш недоступен")
