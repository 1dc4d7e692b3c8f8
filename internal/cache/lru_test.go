package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("k2", "v2")
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should still be fresh")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestDeletePrefixAndGenerations(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	gens := NewGenerations()

	aliceKey := Key("alice", gens.Current("alice"), "2025-01-01", "")
	c.Set(aliceKey, 1)
	c.Set(Key("alice", 0, "all"), 2)
	c.Set(Key("alicia", 0, "all"), 3)

	if gens.Bump("alice") != 1 {
		t.Fatal("first bump should return 1")
	}
	if n := c.DeletePrefix(OwnerPrefix("alice")); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get(Key("alicia", 0, "all")); !ok {
		t.Error("other owner's entry must survive")
	}

	// a value computed before the bump lands under a key nobody reads
	c.Set(aliceKey, 99)
	if _, ok := c.Get(Key("alice", gens.Current("alice"), "2025-01-01", "")); ok {
		t.Error("stale write must not be visible at the new generation")
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Stop()
		}()
	}
	wg.Wait()
}
