package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set(ctx, "a", []byte("icon")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(ctx, "a")
	if !ok || string(got) != "icon" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestMemoryCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	var evicted []string
	c := NewMemoryCache(DefaultPolicy(), WithEvictionCallback(func(key string) {
		evicted = append(evicted, key)
	}))
	ctx := context.Background()

	for i := 0; i < DefaultMaxEntries; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), []byte{byte(i)})
	}
	// k0 becomes most recent; k1 is now the LRU entry.
	if _, ok := c.Get(ctx, "k0"); !ok {
		t.Fatal("k0 missing")
	}

	_ = c.Set(ctx, "k100", []byte{100})

	if c.Len() != DefaultMaxEntries {
		t.Fatalf("Len = %d, want %d", c.Len(), DefaultMaxEntries)
	}
	if len(evicted) != 1 || evicted[0] != "k1" {
		t.Fatalf("evicted = %v, want [k1]", evicted)
	}
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("k1 should have been evicted")
	}
	for _, key := range []string{"k0", "k2", "k99", "k100"} {
		if _, ok := c.Get(ctx, key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
}

func TestMemoryCache_NeverExceedsMaxEntries(t *testing.T) {
	c := NewMemoryCache(Policy{MaxEntries: 10})
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), nil)
		if c.Len() > 10 {
			t.Fatalf("Len = %d after %d sets", c.Len(), i+1)
		}
	}
}

func TestMemoryCache_IdleExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(DefaultPolicy(), WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("x"))

	clock.Advance(4 * time.Minute)
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("entry expired before idle ttl")
	}

	// The read above reset the idle clock.
	clock.Advance(4 * time.Minute)
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("access did not refresh idle ttl")
	}

	clock.Advance(DefaultIdleTTL + time.Second)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("entry idle past ttl should be absent")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, Len = %d", c.Len())
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(DefaultPolicy(), WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "old1", nil)
	_ = c.Set(ctx, "old2", nil)
	clock.Advance(3 * time.Minute)
	_ = c.Set(ctx, "new", nil)
	clock.Advance(3 * time.Minute)

	if n := c.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d, want 2", n)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "new" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestMemoryCache_SetExistingRefreshes(t *testing.T) {
	c := NewMemoryCache(Policy{MaxEntries: 2})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"))
	_ = c.Set(ctx, "b", []byte("2"))
	_ = c.Set(ctx, "a", []byte("3"))
	_ = c.Set(ctx, "c", []byte("4"))

	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("b should be evicted after a was rewritten")
	}
	if got, _ := c.Get(ctx, "a"); string(got) != "3" {
		t.Fatalf("a = %q", got)
	}
}

func TestMemoryCache_DeleteAndPurge(t *testing.T) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()
	_ = c.Set(ctx, "a", nil)
	_ = c.Set(ctx, "b", nil)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete must be idempotent: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Len after Purge = %d", c.Len())
	}
}

func TestMemoryCache_NoCachePolicy(t *testing.T) {
	c := NewMemoryCache(NoCachePolicy())
	_ = c.Set(context.Background(), "a", []byte("x"))
	if _, ok := c.Get(context.Background(), "a"); ok {
		t.Fatal("NoCachePolicy must not store")
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy: %v", err)
	}
	if err := (Policy{MaxEntries: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative MaxEntries")
	}
	if err := (Policy{IdleTTL: -time.Second}).Validate(); err == nil {
		t.Fatal("expected error for negative IdleTTL")
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key  string
		want error
	}{
		{"icon:a:b", nil},
		{"", ErrInvalidKey},
		{"   ", ErrInvalidKey},
		{"a\nb", ErrInvalidKey},
		{"a\x00b", ErrInvalidKey},
		{string(make([]byte, MaxKeyLength+1)), ErrKeyTooLong},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (tt.want == nil && err != nil) || !errors.Is(err, tt.want) {
			t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.want)
		}
	}
}
