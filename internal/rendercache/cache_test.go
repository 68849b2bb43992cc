package rendercache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(Options{Parent: t.TempDir()})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func seq(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("/img/%02d.png", i)
	}
	return paths
}

func sortedKeys(c *Cache) []string {
	keys := c.MemoryKeys()
	sort.Strings(keys)
	return keys
}

func TestNewCreatesLockedSessionDir(t *testing.T) {
	parent := t.TempDir()
	c := New(Options{Parent: parent, SessionID: "abc"})
	defer c.Close()

	want := filepath.Join(parent, "pixelterm-abc")
	if c.Dir() != want {
		t.Fatalf("Dir() = %q, want %q", c.Dir(), want)
	}
	if _, err := os.Stat(filepath.Join(want, lockFileName)); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if !c.Stats().DiskEnabled {
		t.Fatal("expected disk tier enabled")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	paths := seq(5)
	c.Activate(paths, 0)

	payload := []byte("\x1b[38;2;1;2;3m██\x1b[0m\n")
	c.Put(paths[4], payload)

	got, ok := c.Get(paths[4])
	if !ok {
		t.Fatal("expected hit after put")
	}
	if string(got) != string(payload) {
		t.Fatalf("payload changed: got %q want %q", got, payload)
	}
	if !c.HasDisk(paths[4]) {
		t.Fatal("expected disk entry")
	}
	if len(c.MemoryKeys()) != 0 {
		t.Fatalf("distant path must not enter memory, got %v", c.MemoryKeys())
	}
}

func TestPutCopiesInput(t *testing.T) {
	c := newTestCache(t)
	paths := seq(1)
	c.Activate(paths, 0)

	buf := []byte("abc")
	c.Put(paths[0], buf)
	buf[0] = 'z'
	got, _ := c.Get(paths[0])
	if string(got) != "abc" {
		t.Fatalf("cache aliased caller buffer: %q", got)
	}
}

func TestGetPromotesOnlyQualifyingPaths(t *testing.T) {
	c := newTestCache(t)
	paths := seq(5)
	c.Activate(paths, 0)
	c.Put(paths[4], []byte("four"))
	if len(c.MemoryKeys()) != 0 {
		t.Fatalf("distant put entered memory: %v", c.MemoryKeys())
	}

	if got, ok := c.Get(paths[4]); !ok || string(got) != "four" {
		t.Fatalf("expected disk hit, got %q %v", got, ok)
	}
	if len(c.MemoryKeys()) != 0 {
		t.Fatalf("non-qualifying disk hit must not be promoted, memory = %v", c.MemoryKeys())
	}

	// Move without Rebalance so only Get can promote.
	c.position = 3
	if _, ok := c.Get(paths[4]); !ok {
		t.Fatal("expected disk hit")
	}
	if got := sortedKeys(c); len(got) != 1 || got[0] != paths[4] {
		t.Fatalf("expected promotion of %s, memory = %v", paths[4], got)
	}
}

func TestRebalanceMembershipInvariant(t *testing.T) {
	c := newTestCache(t)
	paths := seq(10)
	c.Activate(paths, 0)
	// Entries exist for every other path.
	for i := 0; i < len(paths); i += 2 {
		c.Put(paths[i], []byte(paths[i]))
	}

	for _, pos := range []int{0, 1, 5, 9, 4, 0} {
		c.Rebalance(pos)
		var want []string
		for i := pos - 1; i <= pos+1; i++ {
			if i >= 0 && i < len(paths) && i%2 == 0 {
				want = append(want, paths[i])
			}
		}
		got := sortedKeys(c)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("pos %d: memory = %v, want %v", pos, got, want)
		}
	}
}

func TestRebalanceKeepsDiskEntries(t *testing.T) {
	c := newTestCache(t)
	paths := seq(6)
	c.Activate(paths, 0)
	c.Put(paths[0], []byte("a"))
	c.Rebalance(5)
	if len(c.MemoryKeys()) != 0 {
		t.Fatal("expected eviction from memory")
	}
	if !c.HasDisk(paths[0]) {
		t.Fatal("rebalance must not evict disk entries")
	}
}

func TestInvalidateAllThenGetMisses(t *testing.T) {
	c := newTestCache(t)
	paths := seq(3)
	gen := c.Activate(paths, 1)
	for _, p := range paths {
		c.Put(p, []byte(p))
	}

	next := c.InvalidateAll()
	if next == gen {
		t.Fatal("expected a new generation")
	}
	for _, p := range paths {
		if _, ok := c.Get(p); ok {
			t.Fatalf("expected miss for %s after invalidation", p)
		}
		if c.HasDisk(p) {
			t.Fatalf("expected disk entry for %s to be gone", p)
		}
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), lockFileName)); err != nil {
		t.Fatalf("lock file must survive invalidation: %v", err)
	}
}

func TestPutGenerationDropsStaleWrites(t *testing.T) {
	c := newTestCache(t)
	paths := seq(3)
	old := c.Activate(paths, 0)
	current := c.Activate(paths, 0)

	if c.PutGeneration(old, paths[0], []byte("stale")) {
		t.Fatal("stale write was applied")
	}
	if _, ok := c.Get(paths[0]); ok {
		t.Fatal("stale write is visible")
	}
	if !c.PutGeneration(current, paths[0], []byte("fresh")) {
		t.Fatal("current write was dropped")
	}
	if got, ok := c.Get(paths[0]); !ok || string(got) != "fresh" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
}

func TestInvalidateRacingWithBackgroundWrites(t *testing.T) {
	c := newTestCache(t)
	paths := seq(20)
	gen := c.Activate(paths, 0)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for _, p := range paths {
				c.PutGeneration(gen, p, []byte(p))
			}
		}()
	}
	close(start)
	c.InvalidateAll()
	wg.Wait()

	// Whatever was written before the invalidation is gone, and writes
	// after it carried the old generation.
	for _, p := range paths {
		if _, ok := c.Get(p); ok {
			t.Fatalf("entry %s survived invalidation", p)
		}
	}
	if s := c.Stats(); s.DiskEntries != 0 || s.MemoryEntries != 0 {
		t.Fatalf("expected empty cache, got %+v", s)
	}
}

func TestDiskReadErrorIsMiss(t *testing.T) {
	c := newTestCache(t)
	paths := seq(1)
	c.Activate(paths, 0)
	if err := os.Mkdir(filepath.Join(c.Dir(), EntryName(paths[0])), 0o700); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(paths[0]); ok {
		t.Fatal("expected miss for unreadable entry")
	}
	if s := c.Stats(); s.Misses != 1 {
		t.Fatalf("expected one miss, got %+v", s)
	}
}

func TestUnwritableParentKeepsMemoryTier(t *testing.T) {
	parentFile := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(parentFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(Options{Parent: parentFile})
	defer c.Close()

	if c.Dir() != "" || c.Stats().DiskEnabled || c.DiskEnabled() {
		t.Fatal("expected disk tier disabled")
	}
	paths := seq(3)
	c.Activate(paths, 1)
	c.Put(paths[0], []byte("a"))
	if got, ok := c.Get(paths[0]); !ok || string(got) != "a" {
		t.Fatalf("memory tier not working: %q %v", got, ok)
	}
	if c.HasDisk(paths[0]) {
		t.Fatal("HasDisk must be false without a disk tier")
	}
	if !c.HasMemory(paths[0]) || c.HasMemory(paths[2]) {
		t.Fatal("HasMemory should report only the stored entry")
	}
	c.Rebalance(2)
	if c.HasMemory(paths[0]) {
		t.Fatal("entry outside the radius must leave memory")
	}
}

func TestCloseRemovesDirAndIsIdempotent(t *testing.T) {
	c := New(Options{Parent: t.TempDir()})
	dir := c.Dir()
	paths := seq(1)
	c.Activate(paths, 0)
	c.Put(paths[0], []byte("a"))

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected session dir removed, stat err = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, ok := c.Get(paths[0]); ok {
		t.Fatal("expected miss after Close")
	}
	c.Put(paths[0], []byte("a"))
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("Put after Close must not recreate the directory")
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	paths := seq(4)
	gen := c.Activate(paths, 0)
	c.Put(paths[0], []byte("12345"))
	c.Put(paths[3], []byte("123"))
	c.Get(paths[0])
	c.Get(paths[1])

	s := c.Stats()
	if s.Generation != gen || s.MemoryEntries != 1 || s.DiskEntries != 2 || s.DiskBytes != 8 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("unexpected counters %+v", s)
	}
}

func TestEntryNameIsFixedLength(t *testing.T) {
	short := EntryName("/a.png")
	long := EntryName("/" + strings.Repeat("x", 500) + ".png")
	if len(short) != 64 || len(long) != 64 {
		t.Fatalf("unexpected name lengths %d and %d", len(short), len(long))
	}
	if short == EntryName("/b.png") {
		t.Fatal("distinct paths must map to distinct names")
	}
}
