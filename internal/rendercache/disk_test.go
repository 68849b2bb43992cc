package rendercache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepOrphansRemovesUnlockedDirs(t *testing.T) {
	parent := t.TempDir()

	live := New(Options{Parent: parent, SessionID: "live"})
	defer live.Close()

	orphan := filepath.Join(parent, "pixelterm-crashed")
	if err := os.MkdirAll(orphan, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orphan, lockFileName), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orphan, EntryName("/a.png")), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(parent, "other-dir")
	if err := os.Mkdir(unrelated, 0o700); err != nil {
		t.Fatal(err)
	}

	removed, err := SweepOrphans(parent)
	if err != nil {
		t.Fatalf("SweepOrphans: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("orphan directory survived")
	}
	if _, err := os.Stat(live.Dir()); err != nil {
		t.Fatalf("live directory removed: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated directory removed: %v", err)
	}
}

func TestSweepOrphansSkipsFreshUnlockedDir(t *testing.T) {
	parent := t.TempDir()
	fresh := filepath.Join(parent, "pixelterm-starting")
	if err := os.Mkdir(fresh, 0o700); err != nil {
		t.Fatal(err)
	}

	removed, err := SweepOrphans(parent)
	if err != nil || removed != 0 {
		t.Fatalf("SweepOrphans = %d, %v", removed, err)
	}

	old := time.Now().Add(-2 * orphanGrace)
	if err := os.Chtimes(fresh, old, old); err != nil {
		t.Fatal(err)
	}
	removed, err = SweepOrphans(parent)
	if err != nil || removed != 1 {
		t.Fatalf("SweepOrphans after grace = %d, %v", removed, err)
	}
}

func TestNewSweepsOrphans(t *testing.T) {
	parent := t.TempDir()
	orphan := filepath.Join(parent, "pixelterm-old")
	if err := os.MkdirAll(orphan, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orphan, lockFileName), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	c := New(Options{Parent: parent})
	defer c.Close()
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("expected New to sweep the orphan")
	}
}

func TestInvalidateRecreatesMissingDir(t *testing.T) {
	c := New(Options{Parent: t.TempDir()})
	defer c.Close()
	dir := c.Dir()
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	paths := []string{"/a.png"}
	c.Activate(paths, 0)
	c.Put(paths[0], []byte("a"))
	if !c.HasDisk(paths[0]) {
		t.Fatal("expected disk tier to recover after directory removal")
	}
	if _, err := os.Stat(filepath.Join(dir, lockFileName)); err != nil {
		t.Fatalf("expected lock file to be recreated: %v", err)
	}
}
