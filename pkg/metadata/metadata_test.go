package metadata

import (
	"bytes"
	"testing"

	"github.com/dune-build/dune-cache/pkg/digest"
)

func TestRuleRecordRoundTrip(t *testing.T) {
	m := Metadata{
		Kind:       KindRule,
		RuleDigest: digest.Bytes([]byte("rule input")),
		Files: []FileEntry{
			{Name: "output.o", Digest: digest.Bytes([]byte("object file")), Executable: false},
			{Name: "run.sh", Digest: digest.Bytes([]byte("script")), Executable: true},
		},
	}

	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Kind != KindRule {
		t.Fatalf("decoded kind = %q, want %q", decoded.Kind, KindRule)
	}
	if decoded.RuleDigest != m.RuleDigest {
		t.Fatal("decoded rule digest does not match original")
	}
	if len(decoded.Files) != len(m.Files) {
		t.Fatalf("decoded %d files, want %d", len(decoded.Files), len(m.Files))
	}
	for i, f := range m.Files {
		if decoded.Files[i] != f {
			t.Fatalf("file entry %d = %+v, want %+v", i, decoded.Files[i], f)
		}
	}
}

func TestValueRecordRoundTrip(t *testing.T) {
	payload := []byte("an opaque cached value, with )( special chars")
	m := Metadata{
		Kind:        KindValue,
		ValueDigest: digest.Bytes(payload),
		Value:       payload,
	}

	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Kind != KindValue {
		t.Fatalf("decoded kind = %q, want %q", decoded.Kind, KindValue)
	}
	if decoded.ValueDigest != m.ValueDigest {
		t.Fatal("decoded value digest does not match original")
	}
	if !bytes.Equal(decoded.Value, payload) {
		t.Fatalf("decoded value = %q, want %q", decoded.Value, payload)
	}
}

func TestEncodeRejectsPathSeparatorInName(t *testing.T) {
	m := Metadata{
		Kind:       KindRule,
		RuleDigest: digest.Bytes([]byte("x")),
		Files: []FileEntry{
			{Name: "sub/dir/output", Digest: digest.Bytes([]byte("y")), Executable: false},
		},
	}
	if _, err := m.Encode(); err == nil {
		t.Fatal("Encode unexpectedly succeeded with a path separator in target name")
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	m := Metadata{Kind: KindRule, RuleDigest: digest.Bytes([]byte("x"))}
	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	truncated := encoded[:len(encoded)-3]
	if _, err := Decode(truncated); err == nil {
		t.Fatal("Decode unexpectedly succeeded on truncated input")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	malformed := encode(listNode(
		atomNode([]byte("bogus")),
		listNode(atomNode([]byte("x"))),
		listNode(),
	))
	if _, err := Decode(malformed); err == nil {
		t.Fatal("Decode unexpectedly succeeded on unknown record kind")
	}
}

func TestReferencedFileDigestsOnlyForRuleRecords(t *testing.T) {
	fileDigest := digest.Bytes([]byte("z"))
	rule := Metadata{Kind: KindRule, RuleDigest: digest.Bytes([]byte("r")), Files: []FileEntry{{Name: "a", Digest: fileDigest}}}
	if got := rule.ReferencedFileDigests(); len(got) != 1 || got[0] != fileDigest {
		t.Fatalf("ReferencedFileDigests = %v, want [%v]", got, fileDigest)
	}

	value := Metadata{Kind: KindValue, ValueDigest: digest.Bytes([]byte("v")), Value: []byte("v")}
	if got := value.ReferencedFileDigests(); got != nil {
		t.Fatalf("ReferencedFileDigests on value record = %v, want nil", got)
	}
}
