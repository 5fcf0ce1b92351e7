package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathOfShardsByFirstTwoCharacters(t *testing.T) {
	path, err := PathOf("/root/files/v1", "ab"+"cdef0000000000000000000000000000")
	if err != nil {
		t.Fatalf("PathOf failed: %v", err)
	}
	want := filepath.Join("/root/files/v1", "ab", "abcdef0000000000000000000000000000")
	if path != want {
		t.Fatalf("PathOf = %q, want %q", path, want)
	}
}

func TestPathOfRejectsShortHex(t *testing.T) {
	if _, err := PathOf("/root", "a"); err == nil {
		t.Fatal("PathOf unexpectedly succeeded on short hex")
	}
}

func TestListEntriesOnMissingDirIsEmpty(t *testing.T) {
	entries, err := ListEntries(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("ListEntries on missing dir returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
}

func TestListEntriesSkipsNonHexNames(t *testing.T) {
	root := t.TempDir()
	hex := "abcdef0000000000000000000000000000"
	shard := filepath.Join(root, hex[:2])
	if err := os.MkdirAll(shard, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(shard, hex), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// Non-hex shard directory and non-hex leaf file should both be ignored.
	if err := os.MkdirAll(filepath.Join(root, "not-hex"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(shard, "README"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	entries, err := ListEntries(root)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0] != hex {
		t.Fatalf("ListEntries = %v, want [%s]", entries, hex)
	}
}

func TestCreateCacheDirectoriesIdempotent(t *testing.T) {
	root := t.TempDir()
	if err := CreateCacheDirectories(root, 1, 1); err != nil {
		t.Fatalf("first CreateCacheDirectories failed: %v", err)
	}
	if err := CreateCacheDirectories(root, 1, 1); err != nil {
		t.Fatalf("second CreateCacheDirectories failed: %v", err)
	}
	for _, dir := range []string{TempDir(root), FileDir(root, 1), MetadataDir(root, 1), ValueDir(root, 1)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}
}
