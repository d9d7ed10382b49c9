package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "review_inbox/internal/adapters/redis"
	"review_inbox/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return redisad.NewWithClient(c, "test:"), mr
}

func TestCache_SetGetDel(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCache(t)

	in := domain.Plan{TenantID: "t1", Tier: "pro", Status: "active"}
	if err := cache.Set(ctx, "plan:t1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("test:plan:t1") {
		t.Fatalf("expected prefixed key in redis")
	}

	var out domain.Plan
	ok, err := cache.Get(ctx, "plan:t1", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("roundtrip mismatch: %+v", out)
	}

	if err := cache.Del(ctx, "plan:t1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, err = cache.Get(ctx, "plan:t1", &out)
	if err != nil || ok {
		t.Fatalf("expected miss after del: ok=%v err=%v", ok, err)
	}
}

func TestCache_TTLExpires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCache(t)

	if err := cache.Set(ctx, "plan:t2", domain.Plan{Tier: "free"}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(31 * time.Second)

	var out domain.Plan
	if ok, _ := cache.Get(ctx, "plan:t2", &out); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCache(t)
	if err := mr.Set("test:plan:t3", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var out domain.Plan
	ok, err := cache.Get(ctx, "plan:t3", &out)
	if err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if mr.Exists("test:plan:t3") {
		t.Fatalf("corrupt entry should be dropped")
	}
}
