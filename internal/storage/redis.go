package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
)

// NewRedisClient creates a client for the configured Redis server and checks
// that it is reachable.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, func() {}, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, func() { _ = client.Close() }, nil
}

type redisCacheStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewRedisCacheStore returns a CacheStore that keeps one key per revision.
// Entries never expire.
func NewRedisCacheStore(client redis.UniversalClient, prefix string, timeout time.Duration) core.CacheStore {
	return &redisCacheStore{client: client, prefix: prefix, timeout: timeout, now: time.Now}
}

func (s *redisCacheStore) key(k core.CacheKey) string {
	return fmt.Sprintf("%s:cache:%s:%s", s.prefix, k.Repository, k.Revision)
}

func (s *redisCacheStore) Get(ctx context.Context, key core.CacheKey) (*core.CacheEntry, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache entry %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cache entry %s: %w", key, err)
	}

	var entry core.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	entry.Key = key
	return &entry, nil
}

func (s *redisCacheStore) PutIfAbsent(ctx context.Context, key core.CacheKey, entry *core.CacheEntry) (bool, error) {
	if err := validateCacheEntry(key, entry); err != nil {
		return false, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		return false, fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	created, err := s.client.SetNX(ctx, s.key(key), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx cache entry %s: %w", key, err)
	}
	return created, nil
}

type redisDeliveryStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	timeout   time.Duration
}

// NewRedisDeliveryStore returns a DeliveryStore whose records expire after
// retention on their own, which makes Purge a no-op.
func NewRedisDeliveryStore(client redis.UniversalClient, prefix string, retention, timeout time.Duration) core.DeliveryStore {
	return &redisDeliveryStore{client: client, prefix: prefix, retention: retention, timeout: timeout}
}

func (s *redisDeliveryStore) key(deliveryID string) string {
	return s.prefix + ":delivery:" + deliveryID
}

func (s *redisDeliveryStore) RecordIfAbsent(ctx context.Context, deliveryID string, receivedAt time.Time) (bool, error) {
	if deliveryID == "" {
		return false, fmt.Errorf("empty delivery id: %w", core.ErrInvalidInput)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	recorded, err := s.client.SetNX(ctx, s.key(deliveryID), strconv.FormatInt(receivedAt.Unix(), 10), s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("redis record delivery %s: %w", deliveryID, err)
	}
	return recorded, nil
}

func (s *redisDeliveryStore) Forget(ctx context.Context, deliveryID string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(deliveryID)).Err(); err != nil {
		return fmt.Errorf("redis forget delivery %s: %w", deliveryID, err)
	}
	return nil
}

func (s *redisDeliveryStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
