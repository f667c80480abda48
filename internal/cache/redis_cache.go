package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/storage"
	"github.com/annel0/voxel-export/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisMeshCache реализует MeshCache поверх Redis.
// Значения сжимаются тем же кодеком, что и в BadgerDB, и живут TTL.
type RedisMeshCache struct {
	client *redis.Client
	config CacheConfig
	codec  *storage.PayloadCodec

	requests int64
	hits     int64
	misses   int64
}

// NewRedisMeshCache подключается к Redis и проверяет соединение
func NewRedisMeshCache(config CacheConfig) (*RedisMeshCache, error) {
	if config.TTL == 0 {
		config.TTL = time.Hour
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.OpTimeout == 0 {
		config.OpTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.PoolSize,
		ReadTimeout:  config.OpTimeout,
		WriteTimeout: config.OpTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.OpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheUnavailable, config.RedisURL, err)
	}

	codec, err := storage.NewPayloadCodec()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	logging.GetStorageLogger().Info("🧊 Redis кеш мешей подключён: %s (TTL %v)", config.RedisURL, config.TTL)
	return &RedisMeshCache{client: rdb, config: config, codec: codec}, nil
}

// Save сохраняет меш чанка с TTL из конфигурации
func (r *RedisMeshCache) Save(coords vec.Vec2, configHash string, v interface{}) error {
	data, err := r.codec.Encode(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.OpTimeout)
	defer cancel()
	if err := r.client.Set(ctx, storage.MeshKey(coords, configHash), data, r.config.TTL).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}

// Load читает меш чанка; промах не считается ошибкой
func (r *RedisMeshCache) Load(coords vec.Vec2, configHash string, dst interface{}) (bool, error) {
	atomic.AddInt64(&r.requests, 1)

	ctx, cancel := context.WithTimeout(context.Background(), r.config.OpTimeout)
	defer cancel()
	data, err := r.client.Get(ctx, storage.MeshKey(coords, configHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.misses, 1)
		return false, nil
	}
	if err != nil {
		atomic.AddInt64(&r.misses, 1)
		return false, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	if err := r.codec.Decode(data, dst); err != nil {
		atomic.AddInt64(&r.misses, 1)
		return false, err
	}
	atomic.AddInt64(&r.hits, 1)
	return true, nil
}

// Delete удаляет меш чанка
func (r *RedisMeshCache) Delete(coords vec.Vec2, configHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.OpTimeout)
	defer cancel()
	return r.client.Del(ctx, storage.MeshKey(coords, configHash)).Err()
}

// GetMetrics возвращает снимок счётчиков обращений
func (r *RedisMeshCache) GetMetrics() CacheMetrics {
	m := CacheMetrics{
		TotalRequests: atomic.LoadInt64(&r.requests),
		CacheHits:     atomic.LoadInt64(&r.hits),
		CacheMisses:   atomic.LoadInt64(&r.misses),
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	return m
}

// Close закрывает соединение с Redis
func (r *RedisMeshCache) Close() error {
	r.codec.Close()
	return r.client.Close()
}
