// Package cache wraps redis for short-lived JSON caching and per-record write
// locks. A nil *Store (no REDIS_ADDRESS) is valid: reads miss, writes are
// dropped and locks are granted immediately.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"printshop-backend/internal/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "printshop:"

var ErrLockBusy = errors.New("record is being updated by another request, try again")

type Store struct {
	rdb    *redis.Client
	locker *redislock.Client
	ttl    time.Duration
}

// Connect pings redis once; on failure it logs and returns nil so the
// service keeps running without a cache.
func Connect(addr, password string, ttl time.Duration) *Store {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		PoolSize:     20,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.LogError("cache", "Connect", "redis ping failed, cache disabled", addr, err)
		_ = rdb.Close()
		return nil
	}
	logger.Get().WithField("addr", addr).Info("connected to redis")
	return New(rdb, ttl)
}

func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, locker: redislock.New(rdb), ttl: ttl}
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}

// GetObject unmarshals the cached value into dest. found is false on a miss.
func (s *Store) GetObject(ctx context.Context, key string, dest any) (bool, error) {
	if s == nil {
		return false, nil
	}
	val, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetObject(ctx context.Context, key string, value any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+key, b, s.ttl).Err()
}

func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		logger.LogError("cache", "Invalidate", "redis del failed", keys, err)
	}
}

// Remember returns the cached value for key or calls load and caches its
// result. Cache errors never fail the call.
func Remember[T any](ctx context.Context, s *Store, key string, load func() (T, error)) (T, error) {
	var cached T
	if found, err := s.GetObject(ctx, key, &cached); err != nil {
		logger.LogError("cache", "Remember", "redis get failed", key, err)
	} else if found {
		return cached, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := s.SetObject(ctx, key, v); err != nil {
		logger.LogError("cache", "Remember", "redis set failed", key, err)
	}
	return v, nil
}

// Unlock releases a lock taken with Lock.
type Unlock func()

// Lock takes a short redis lock on one record, retrying for up to wait.
func (s *Store) Lock(ctx context.Context, kind string, id uint, wait time.Duration) (Unlock, error) {
	if s == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("%slock:%s:%d", keyPrefix, kind, id)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.ExponentialBackoff(20*time.Millisecond, 200*time.Millisecond), retriesFor(wait)),
	}
	lock, err := s.locker.Obtain(ctx, key, 10*time.Second, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.LogError("cache", "Lock", "release failed", key, err)
		}
	}, nil
}

func retriesFor(wait time.Duration) int {
	n := int(wait / (100 * time.Millisecond))
	if n < 1 {
		return 1
	}
	return n
}
