package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"qrgen/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func fp(i int) models.Fingerprint {
	var f models.Fingerprint
	copy(f[:], fmt.Sprintf("key-%06d", i))
	return f
}

func newTestMemoryCache(t *testing.T, capacity int, clock *fakeClock) *MemoryCache {
	t.Helper()
	c, err := NewMemoryCache(MemoryConfig{
		Capacity:        capacity,
		TTL:             5 * time.Minute,
		CleanupInterval: time.Hour,
		Now:             clock.Now,
	})
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_TTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemoryCache(t, 10, clock)
	ctx := context.Background()

	if err := c.Set(ctx, fp(1), []byte("hello")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, hit, err := c.Get(ctx, fp(1))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit immediately after Set")
	}
	if string(got) != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	clock.Advance(5*time.Minute - time.Second)
	if _, hit, _ = c.Get(ctx, fp(1)); !hit {
		t.Fatalf("expected hit just before TTL")
	}

	// Reads must not extend the lifetime.
	clock.Advance(time.Second)
	if _, hit, _ = c.Get(ctx, fp(1)); hit {
		t.Fatalf("expected miss at TTL")
	}
}

func TestMemoryCache_OverwriteResetsTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemoryCache(t, 10, clock)
	ctx := context.Background()

	_ = c.Set(ctx, fp(1), []byte("a"))
	clock.Advance(4 * time.Minute)
	_ = c.Set(ctx, fp(1), []byte("b"))
	clock.Advance(4 * time.Minute)

	got, hit, _ := c.Get(ctx, fp(1))
	if !hit || string(got) != "b" {
		t.Fatalf("expected overwritten value, got hit=%v value=%q", hit, got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestMemoryCache_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemoryCache(t, 3, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = c.Set(ctx, fp(i), []byte{byte(i)})
	}
	// Touch 0 so 1 is the eviction candidate.
	if _, hit, _ := c.Get(ctx, fp(0)); !hit {
		t.Fatalf("expected hit for key 0")
	}
	_ = c.Set(ctx, fp(3), []byte{3})

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}
	if _, hit, _ := c.Get(ctx, fp(1)); hit {
		t.Fatalf("expected key 1 to be evicted")
	}
	for _, i := range []int{0, 2, 3} {
		if _, hit, _ := c.Get(ctx, fp(i)); !hit {
			t.Fatalf("expected key %d to survive", i)
		}
	}
}

func TestMemoryCache_NeverExceedsCapacity(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemoryCache(t, DefaultCapacity, clock)
	ctx := context.Background()

	for i := 0; i < 2500; i++ {
		_ = c.Set(ctx, fp(i), []byte("v"))
		if c.Len() > DefaultCapacity {
			t.Fatalf("cache grew to %d entries", c.Len())
		}
	}
	if c.Len() != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, c.Len())
	}
}

func TestMemoryCache_ZeroCapacityStoresNothing(t *testing.T) {
	c := newTestMemoryCache(t, 0, newFakeClock())
	ctx := context.Background()

	if err := c.Set(ctx, fp(1), []byte("x")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, hit, _ := c.Get(ctx, fp(1)); hit {
		t.Fatalf("expected miss with zero capacity")
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestMemoryCache_NegativeCapacity(t *testing.T) {
	if _, err := NewMemoryCache(MemoryConfig{Capacity: -1}); err == nil {
		t.Fatalf("expected error for negative capacity")
	}
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	c := newTestMemoryCache(t, 10, newFakeClock())
	ctx := context.Background()

	buf := []byte("original")
	_ = c.Set(ctx, fp(1), buf)
	buf[0] = 'X'

	got, _, _ := c.Get(ctx, fp(1))
	if string(got) != "original" {
		t.Fatalf("cache aliased caller buffer: %q", got)
	}

	got[0] = 'Y'
	again, _, _ := c.Get(ctx, fp(1))
	if string(again) != "original" {
		t.Fatalf("cache aliased returned buffer: %q", again)
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	clock := newFakeClock()
	c := newTestMemoryCache(t, 10, clock)
	ctx := context.Background()

	_ = c.Set(ctx, fp(1), []byte("old"))
	clock.Advance(3 * time.Minute)
	_ = c.Set(ctx, fp(2), []byte("new"))
	clock.Advance(2 * time.Minute)

	if n := c.RemoveExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry removed, got %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", c.Len())
	}
	if _, hit, _ := c.Get(ctx, fp(2)); !hit {
		t.Fatalf("expected younger entry to survive")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := newTestMemoryCache(t, 10, newFakeClock())
	_ = c.Set(context.Background(), fp(1), []byte("x"))
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := newTestMemoryCache(t, 50, newFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fp(g*1000 + i%75)
				_ = c.Set(ctx, k, []byte{byte(i)})
				_, _, _ = c.Get(ctx, k)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Fatalf("cache exceeded capacity under concurrency: %d", c.Len())
	}
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c, err := NewMemoryCache(MemoryConfig{Capacity: 1})
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	_ = c.Close()
	_ = c.Close()
}
