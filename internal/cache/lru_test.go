package cache

import (
	"testing"
	"time"
)

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string](3, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read, size=%d", c.Size())
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1")
	c.Set("key4", "value4") // evicts key2, the least recently used

	if _, ok := c.Get("key2"); ok {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	c.Set("user-1|summary", 1)
	c.Set("user-1|stats", 2)
	c.Set("user-2|summary", 3)

	if n := c.DeletePrefix("user-1|"); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if _, ok := c.Get("user-2|summary"); !ok {
		t.Fatal("other users must keep their entries")
	}
}

func TestManager_Sweep(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
