// Package cache wraps an optional Redis connection. Every method is a
// no-op (or a miss) when Redis is not configured, so callers never branch.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-pos-ledger/internal/apperr"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const lockTTL = 30 * time.Second

type Cache struct {
	rdb    *redis.Client
	locker *redislock.Client
}

// Connect dials Redis at addr. An empty addr yields a disabled cache.
func Connect(ctx context.Context, addr, password string, log *logrus.Logger) (*Cache, error) {
	if addr == "" {
		log.Info("REDIS_ADDRESS not set, running without cache and locks")
		return &Cache{}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	log.WithField("addr", addr).Info("connected to redis")
	return New(rdb), nil
}

// New wraps an existing client. A nil client yields a disabled cache.
func New(rdb *redis.Client) *Cache {
	if rdb == nil {
		return &Cache{}
	}
	return &Cache{rdb: rdb, locker: redislock.New(rdb)}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetObject decodes key into dest and reports whether it was present.
func (c *Cache) GetObject(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Bytes()
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

func (c *Cache) SetObject(ctx context.Context, key string, obj any, exp time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, exp).Err()
}

func (c *Cache) Remove(ctx context.Context, keys ...string) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Lock takes a short-lived distributed lock on key. The returned release
// func must be called once the guarded work is done. When the key is
// already held the error wraps apperr.ErrBusy.
func (c *Cache) Lock(ctx context.Context, key string) (func(), error) {
	if !c.Enabled() {
		return func() {}, nil
	}
	lock, err := c.locker.Obtain(ctx, key, lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperr.Wrap(apperr.ErrBusy, "lock %s is held", key)
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
