package digest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBytesDeterministic(t *testing.T) {
	a := Bytes([]byte("content\n"))
	b := Bytes([]byte("content\n"))
	if a != b {
		t.Fatal("digest of identical content differs")
	}
	c := Bytes([]byte("content"))
	if a == c {
		t.Fatal("digest did not change with content")
	}
}

func TestHexRoundTrip(t *testing.T) {
	d := Bytes([]byte("round trip"))
	parsed, err := FromHex(d.String())
	if err != nil {
		t.Fatalf("FromHex failed on valid hex: %v", err)
	}
	if parsed != d {
		t.Fatal("round-tripped digest does not match original")
	}
}

func TestFromHexRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"00",
		"zz00000000000000000000000000000",
		"AA000000000000000000000000000000",
	}
	for _, c := range cases {
		if _, err := FromHex(c); err == nil {
			t.Fatalf("FromHex(%q) unexpectedly succeeded", c)
		}
	}
}

func TestFileMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("content\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	fileDigest, err := File(path)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if fileDigest != Bytes([]byte("content\n")) {
		t.Fatal("File digest does not match in-memory digest of same content")
	}
}

func TestExecutableAwareDistinguishesExecutableBit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("same bytes\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	nonExecutable, err := ExecutableAware(path, false)
	if err != nil {
		t.Fatalf("ExecutableAware(false) failed: %v", err)
	}
	executable, err := ExecutableAware(path, true)
	if err != nil {
		t.Fatalf("ExecutableAware(true) failed: %v", err)
	}
	if nonExecutable == executable {
		t.Fatal("executable-aware digests collide despite differing executable bit")
	}

	again, err := ExecutableAware(path, false)
	if err != nil {
		t.Fatalf("second ExecutableAware(false) failed: %v", err)
	}
	if again != nonExecutable {
		t.Fatal("ExecutableAware is not deterministic for identical inputs")
	}
}

func TestCombineExecutableMatchesExecutableAware(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("shared content\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	content, err := File(path)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	viaCombine := CombineExecutable(content, true)
	viaExecutableAware, err := ExecutableAware(path, true)
	if err != nil {
		t.Fatalf("ExecutableAware failed: %v", err)
	}
	if viaCombine != viaExecutableAware {
		t.Fatal("CombineExecutable and ExecutableAware diverge for the same content and flag")
	}
}

func TestDirectoryPlaceholderVariesWithInputs(t *testing.T) {
	base := DirectoryPlaceholder(100, 0755, 1000, 2000)
	other := DirectoryPlaceholder(100, 0755, 1000, 2001)
	if base == other {
		t.Fatal("directory placeholder digest did not change with ctime")
	}
	same := DirectoryPlaceholder(100, 0755, 1000, 2000)
	if base != same {
		t.Fatal("directory placeholder digest is not deterministic for identical inputs")
	}
}
