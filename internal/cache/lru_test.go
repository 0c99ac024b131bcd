package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[int64, string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int64, string](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get(1); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(1, "one")
	c.Set(1, "uno")
	if v, ok := c.Get(1); !ok || v != "uno" {
		t.Errorf("Get(1) = %q, %v; want uno, true", v, ok)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set(1, "one")
	c.Set(2, "two")
	c.Get(1)
	c.Set(3, "three")

	if _, ok := c.Get(2); ok {
		t.Error("expected key 2 to be evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("expected key 1 to survive")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("expected key 3 to be present")
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set(1, "one")
	c.Set(2, "two")
	clock.Advance(30 * time.Second)
	c.Set(3, "three")
	clock.Advance(45 * time.Second)

	if _, ok := c.Get(1); ok {
		t.Error("expected key 1 to be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set(1, "one")
	c.Delete(1)
	c.Delete(42)
	if _, ok := c.Get(1); ok {
		t.Error("expected key 1 to be deleted")
	}
}

func TestManager_Sweep(t *testing.T) {
	a, clock := newTestCache(10, time.Second)
	b, _ := newTestCache(10, time.Hour)
	b.now = clock.Now

	a.Set(1, "x")
	b.Set(1, "y")
	clock.Advance(2 * time.Second)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	if got := m.Sweep(); got != 1 {
		t.Errorf("Sweep() = %d, want 1", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.Run(ctx, time.Millisecond)
	cancel()
	m.Wait()
}
