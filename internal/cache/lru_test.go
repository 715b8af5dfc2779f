package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("a", "one")
	if got, ok := c.Get("a"); !ok || got != "one" {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}

	c.Set("a", "two")
	if got, _ := c.Get("a"); got != "two" {
		t.Errorf("overwrite: Get(a) = %q, want two", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive, it was recently used")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should miss")
	}

	c.Set("b", 2)
	c.Set("c", 3)
	time.Sleep(20 * time.Millisecond)
	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired = %d, want 2", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size after clean = %d, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("never-there")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry should miss")
	}
}
