package embedding

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLRUCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCache(2)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get(ctx, "a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set(ctx, "a", []float64{1, 2, 3})
	v, ok := c.Get(ctx, "a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set(ctx, "b", []float64{4, 5})
	c.Set(ctx, "c", []float64{6}) // evicts a
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("expected c to remain")
	}
}

func TestLRUCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := NewLRUCache(1)
	src := []float64{1}
	c.Set(ctx, "k", src)
	src[0] = 9
	v, _ := c.Get(ctx, "k")
	v[0] = 7
	again, _ := c.Get(ctx, "k")
	if again[0] != 1 {
		t.Errorf("cached value mutated: %v", again)
	}
}

func TestNewLRUCache_InvalidSize(t *testing.T) {
	if _, err := NewLRUCache(0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestTieredCache_PromotesL2Hits(t *testing.T) {
	ctx := context.Background()
	l1, _ := NewLRUCache(4)
	l2, _ := NewLRUCache(4)
	l2.Set(ctx, "k", []float64{0.5})
	c := &TieredCache{L1: l1, L2: l2}

	v, ok := c.Get(ctx, "k")
	if !ok || v[0] != 0.5 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	if _, ok := l1.Get(ctx, "k"); !ok {
		t.Error("L2 hit not promoted into L1")
	}

	c.Set(ctx, "n", []float64{1})
	if _, ok := l2.Get(ctx, "n"); !ok {
		t.Error("Set did not write through to L2")
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("KONDATE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("KONDATE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisOptions{
		URL:    url,
		Prefix: "kondate:test:" + time.Now().Format("150405.000") + ":",
		TTL:    time.Minute,
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss")
	}
	c.Set(ctx, "egg", []float64{0.25, -1})
	v, ok := c.Get(ctx, "egg")
	if !ok || len(v) != 2 || v[0] != 0.25 || v[1] != -1 {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), RedisOptions{URL: "not a url"}); err == nil {
		t.Error("expected error")
	}
}
