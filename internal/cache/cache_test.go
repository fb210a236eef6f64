package cache

import (
	"testing"
	"time"

	"smartbudget/internal/ledger"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should be cached", k)
		}
	}
	s := c.Stats()
	if s.Size != 2 || s.Evictions != 1 || s.Hits != 3 || s.Misses != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("old", "x")
	now = now.Add(30 * time.Second)
	c.Set("new", "y")
	now = now.Add(45 * time.Second)

	if _, ok := c.Get("old"); ok {
		t.Error("old should have expired")
	}
	if v, ok := c.Get("new"); !ok || v != "y" {
		t.Errorf("Get(new) = %q, %v", v, ok)
	}

	now = now.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUOverwriteAndDelete(t *testing.T) {
	c := NewLRU[int](0, time.Minute)
	c.Set("k", 1)
	c.Set("k", 2)
	if v, _ := c.Get("k"); v != 2 || c.Size() != 1 {
		t.Fatalf("overwrite failed: v=%d size=%d", v, c.Size())
	}
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("k should be gone")
	}
}

func TestTableKey(t *testing.T) {
	a := ledger.Table{Header: []string{"fecha", "monto"}, Rows: [][]string{{"2025-01-01", "10"}}}
	b := ledger.Table{Header: []string{"fecha", "monto"}, Rows: [][]string{{"2025-01-01", "10"}}}
	if TableKey(a) != TableKey(b) {
		t.Error("equal tables should share a key")
	}

	shifted := ledger.Table{Header: []string{"fechamonto", ""}, Rows: [][]string{{"2025-01-01", "10"}}}
	if TableKey(a) == TableKey(shifted) {
		t.Error("cell boundaries must be part of the key")
	}
	more := ledger.Table{Header: a.Header, Rows: [][]string{{"2025-01-01", "10"}, {}}}
	if TableKey(a) == TableKey(more) {
		t.Error("an extra empty row must change the key")
	}
}

type countingCleaner struct{ calls int }

func (c *countingCleaner) CleanExpired() int {
	c.calls++
	return 2
}

func TestManagerCleanAllAndStop(t *testing.T) {
	m := NewManager(nil)
	c1, c2 := &countingCleaner{}, &countingCleaner{}
	m.Register(c1)
	m.Register(c2)

	if n := m.CleanAll(); n != 4 || c1.calls != 1 || c2.calls != 1 {
		t.Fatalf("CleanAll() = %d, calls %d %d", n, c1.calls, c2.calls)
	}

	m.Start(time.Hour)
	m.Start(time.Hour)
	m.Stop()
	m.Stop()
}
