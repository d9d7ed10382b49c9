package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"review_inbox/internal/adapters/observability"
)

// Cache is a JSON value cache. Only derived, short-lived data goes here
// (tenant plans); aliases are always read from the store.
type Cache struct {
	c      *redis.Client
	prefix string
}

const cacheLabel = "redis"

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), "reviewinbox:")
}

func NewWithClient(c *redis.Client, prefix string) *Cache { return &Cache{c: c, prefix: prefix} }

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) key(k string) string { return r.prefix + k }

// Get decodes the entry into dst. A missing or undecodable entry is a miss,
// not an error; only transport failures are returned.
func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.c.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		observability.ObserveCache(cacheLabel, "miss")
		return false, nil
	case err != nil:
		observability.ObserveCache(cacheLabel, "error")
		return false, err
	}
	if jerr := json.Unmarshal(raw, dst); jerr != nil {
		_ = r.c.Del(ctx, r.key(key)).Err()
		observability.ObserveCache(cacheLabel, "miss")
		return false, nil
	}
	observability.ObserveCache(cacheLabel, "hit")
	return true, nil
}

// Set stores v as JSON. ttlSec <= 0 keeps the entry until deleted.
func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	if err := r.c.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		observability.ObserveCache(cacheLabel, "error")
		return err
	}
	observability.ObserveCache(cacheLabel, "set")
	return nil
}

func (r *Cache) Del(ctx context.Context, key string) error {
	if err := r.c.Del(ctx, r.key(key)).Err(); err != nil {
		observability.ObserveCache(cacheLabel, "error")
		return err
	}
	observability.ObserveCache(cacheLabel, "del")
	return nil
}
