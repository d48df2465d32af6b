package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"classifieds_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const presignCachePrefix = "presign:"

// CachedStorage decorates an ObjectStorage with a Redis cache of presigned
// URLs. Entries live for half of the URL lifetime so a cached URL always has
// time left to be used. Cache failures are logged and bypassed.
type CachedStorage struct {
	ObjectStorage
	cache redis.Cmdable
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedStorage wraps inner. presignExpiry is the lifetime of the URLs
// inner issues.
func NewCachedStorage(inner ObjectStorage, cache redis.Cmdable, presignExpiry time.Duration, log *logger.Logger) *CachedStorage {
	return &CachedStorage{
		ObjectStorage: inner,
		cache:         cache,
		ttl:           ClampPresignExpiry(presignExpiry) / 2,
		log:           log,
	}
}

// NewRedisClient opens a client for redisURL and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsInsecure {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// PresignedGetURL serves from cache when possible.
func (s *CachedStorage) PresignedGetURL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return s.ObjectStorage.PresignedGetURL(ctx, key)
	}

	cached, err := s.cache.Get(ctx, presignCachePrefix+key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		s.log.Warn("presign cache read failed", "key", key, "error", err)
	}

	signed, err := s.ObjectStorage.PresignedGetURL(ctx, key)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, presignCachePrefix+key, signed, s.ttl).Err(); err != nil {
		s.log.Warn("presign cache write failed", "key", key, "error", err)
	}
	return signed, nil
}

// PresignedGetURLs resolves keys through the cache, preserving order.
func (s *CachedStorage) PresignedGetURLs(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		u, err := s.PresignedGetURL(ctx, key)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Delete removes the object and its cached URL.
func (s *CachedStorage) Delete(ctx context.Context, key string) error {
	if err := s.ObjectStorage.Delete(ctx, key); err != nil {
		return err
	}
	s.evict(ctx, key)
	return nil
}

// DeleteBatch deletes keys in order and evicts each deleted key.
func (s *CachedStorage) DeleteBatch(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *CachedStorage) evict(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.Del(ctx, presignCachePrefix+key).Err(); err != nil {
		s.log.Warn("presign cache eviction failed", "key", key, "error", err)
	}
}

// Compile-time check that CachedStorage implements ObjectStorage.
var _ ObjectStorage = (*CachedStorage)(nil)
