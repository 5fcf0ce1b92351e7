package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dune-build/dune-cache/pkg/digest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s := NewStore(root, nil)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return s
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestPromoteAndRestoreFile(t *testing.T) {
	s := newTestStore(t)
	srcDir := t.TempDir()
	path := writeFile(t, srcDir, "out.bin", []byte("output content\n"))

	d, err := s.PromoteFile(path, false)
	if err != nil {
		t.Fatalf("PromoteFile failed: %v", err)
	}
	if !s.ContainsFile(d) {
		t.Fatal("ContainsFile returned false right after promotion")
	}

	destDir := t.TempDir()
	destPath := filepath.Join(destDir, "restored.bin")
	if err := s.RestoreFile(d, destPath); err != nil {
		t.Fatalf("RestoreFile failed: %v", err)
	}
	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "output content\n" {
		t.Fatalf("restored content = %q, want %q", data, "output content\n")
	}
}

func TestPromoteFileDifferentExecutableBitsAreDistinctEntries(t *testing.T) {
	s := newTestStore(t)
	srcDir := t.TempDir()
	path := writeFile(t, srcDir, "same.bin", []byte("identical bytes\n"))

	nonExecutable, err := s.PromoteFile(path, false)
	if err != nil {
		t.Fatalf("PromoteFile(false) failed: %v", err)
	}
	executable, err := s.PromoteFile(path, true)
	if err != nil {
		t.Fatalf("PromoteFile(true) failed: %v", err)
	}
	if nonExecutable == executable {
		t.Fatal("identical content with differing executable bits produced the same store entry")
	}
	if !s.ContainsFile(nonExecutable) || !s.ContainsFile(executable) {
		t.Fatal("both executable-bit variants should be present in the store")
	}
}

func TestRestoreFileMissingDigest(t *testing.T) {
	s := newTestStore(t)
	bogus := digest.Bytes([]byte("never promoted"))
	if err := s.RestoreFile(bogus, filepath.Join(t.TempDir(), "out")); err != ErrNotFound {
		t.Fatalf("RestoreFile on missing digest = %v, want ErrNotFound", err)
	}
}

func TestPromoteAndRestoreRule(t *testing.T) {
	s := newTestStore(t)
	srcDir := t.TempDir()
	objPath := writeFile(t, srcDir, "obj", []byte("object bytes\n"))
	scriptPath := writeFile(t, srcDir, "script", []byte("#!/bin/sh\necho hi\n"))

	ruleDigest := digest.Bytes([]byte("rule: compile foo"))
	outputs := []Output{
		{Name: "foo.o", Path: objPath, Executable: false},
		{Name: "foo.sh", Path: scriptPath, Executable: true},
	}
	if err := s.PromoteRule(ruleDigest, outputs); err != nil {
		t.Fatalf("PromoteRule failed: %v", err)
	}
	if !s.ContainsRule(ruleDigest) {
		t.Fatal("ContainsRule returned false right after promotion")
	}

	destDir := t.TempDir()
	files, err := s.RestoreRule(ruleDigest, destDir)
	if err != nil {
		t.Fatalf("RestoreRule failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("RestoreRule returned %d files, want 2", len(files))
	}
	for _, want := range []string{"foo.o", "foo.sh"} {
		if _, err := os.Stat(filepath.Join(destDir, want)); err != nil {
			t.Fatalf("expected restored file %s: %v", want, err)
		}
	}
}

func TestContainsRuleFalseForUnknownDigest(t *testing.T) {
	s := newTestStore(t)
	if s.ContainsRule(digest.Bytes([]byte("never promoted rule"))) {
		t.Fatal("ContainsRule returned true for an unknown rule digest")
	}
}

func TestPromoteAndRestoreValue(t *testing.T) {
	s := newTestStore(t)
	payload := []byte("a cached build value")
	d, err := s.PromoteValue(payload)
	if err != nil {
		t.Fatalf("PromoteValue failed: %v", err)
	}

	restored, err := s.RestoreValue(d)
	if err != nil {
		t.Fatalf("RestoreValue failed: %v", err)
	}
	if string(restored) != string(payload) {
		t.Fatalf("RestoreValue = %q, want %q", restored, payload)
	}
}
