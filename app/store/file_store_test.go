package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.txt"))

	ids, err := s.Load()
	if err != nil {
		t.Fatalf("Expected missing file to load as empty set, got: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected empty set, got %d ids", len(ids))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "cache.txt"))

	want := []string{"id-a", "id-b", "id-c"}
	if err := s.Persist(want); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	ids, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d ids, got %d", len(want), len(ids))
	}
	for _, id := range want {
		if _, ok := ids[id]; !ok {
			t.Errorf("Expected id %q after round trip", id)
		}
	}
}

func TestFileStorePersistOverwrites(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "cache.txt"))

	if err := s.Persist([]string{"old-1", "old-2", "old-3"}); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if err := s.Persist([]string{"new-1"}); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	ids, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected full overwrite to leave 1 id, got %d", len(ids))
	}
	if _, ok := ids["new-1"]; !ok {
		t.Error("Expected 'new-1' to survive overwrite")
	}
}

func TestFileStoreSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.txt")
	if err := os.WriteFile(path, []byte("id-1\n\n  \nid-2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected blank lines skipped, got %d ids", len(ids))
	}
}

func TestCacheSnapshotSorted(t *testing.T) {
	cache := NewCache(nil)
	cache.Add("charlie")
	cache.Add("alpha")
	cache.Add("bravo")

	snapshot := cache.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Expected 3 ids, got %d", len(snapshot))
	}
	if snapshot[0] != "alpha" || snapshot[1] != "bravo" || snapshot[2] != "charlie" {
		t.Errorf("Expected sorted snapshot, got: %v", snapshot)
	}

	if !cache.Contains("bravo") {
		t.Error("Expected cache to contain 'bravo'")
	}
	if cache.Contains("delta") {
		t.Error("Did not expect cache to contain 'delta'")
	}
}
