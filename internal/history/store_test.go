package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Lookup(ctx, "/photos"); err != nil || ok {
		t.Fatalf("Lookup on empty store = %v, %v", ok, err)
	}

	if err := store.Record(ctx, "/photos", "/photos/b.png", 1); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, "/photos", "/photos/c.png", 2); err != nil {
		t.Fatalf("Record update: %v", err)
	}

	entry, ok, err := store.Lookup(ctx, "/photos")
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v", ok, err)
	}
	if entry.ImagePath != "/photos/c.png" || entry.Position != 2 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.UpdatedAt.IsZero() {
		t.Fatal("expected timestamp")
	}
}

func TestListOrdersByRecency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, dir := range []string{"/a", "/b", "/c"} {
		if err := store.Record(ctx, dir, dir+"/1.png", 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Record(ctx, "/a", "/a/2.png", 1); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 || entries[0].Directory != "/a" || entries[1].Directory != "/c" {
		t.Fatalf("unexpected order %+v", entries)
	}

	limited, err := store.List(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("List(2) = %d entries, %v", len(limited), err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, dir := range []string{"/a", "/b"} {
		if err := store.Record(ctx, dir, dir+"/1.png", 0); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := store.Remove(ctx, "/a")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = store.Remove(ctx, "/a")
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}

	n, err := store.Clear(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Record(context.Background(), "/a", "/a/x.png", 4); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entry, ok, err := reopened.Lookup(context.Background(), "/a")
	if err != nil || !ok || entry.Position != 4 {
		t.Fatalf("Lookup after reopen = %+v, %v, %v", entry, ok, err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestIsSQLiteBusy(t *testing.T) {
	if isSQLiteBusy(nil) || isSQLiteBusy(sql.ErrNoRows) {
		t.Fatal("unexpected busy classification")
	}
	if !isSQLiteBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected busy classification")
	}
}
