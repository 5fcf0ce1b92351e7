// Package metadata implements the canonical textual codec that binds a rule
// digest to the ordered list of files it produced (spec §4.3), plus the
// reserved "value" record kind used to cache arbitrary build-system values
// that trimming's broken-metadata sweep must never delete regardless of
// whether anything currently references them by name.
package metadata

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dune-build/dune-cache/pkg/digest"
)

// Kind distinguishes a rule-output record from a value record.
type Kind string

const (
	// KindRule records the outputs of a build rule, keyed by rule digest.
	KindRule Kind = "rule"
	// KindValue records an opaque build-system value, keyed by its own
	// digest. Phase A of trimming must preserve every value record it can
	// parse, since values have no outward references to validate against —
	// their mere presence in the store is the only thing establishing
	// liveness.
	KindValue Kind = "value"
)

// FileEntry is one produced file: its target name (relative, slash-free),
// content digest, and whether it is executable.
type FileEntry struct {
	Name       string
	Digest     digest.Digest
	Executable bool
}

// Metadata is a single decoded rule-cache or value-cache record.
type Metadata struct {
	Kind Kind

	// RuleDigest is populated for KindRule records.
	RuleDigest digest.Digest
	// Files is populated for KindRule records, in the order the rule
	// produced them.
	Files []FileEntry

	// ValueDigest is populated for KindValue records.
	ValueDigest digest.Digest
	// Value is the raw opaque payload for KindValue records.
	Value []byte
}

// Encode renders m into its canonical textual form.
func (m Metadata) Encode() ([]byte, error) {
	switch m.Kind {
	case KindRule:
		return encodeRule(m)
	case KindValue:
		return encodeValue(m)
	default:
		return nil, errors.Errorf("unknown record kind %q", m.Kind)
	}
}

func encodeRule(m Metadata) ([]byte, error) {
	fileNodes := make([]node, 0, len(m.Files))
	for _, f := range m.Files {
		if strings.ContainsAny(f.Name, `/\`) {
			return nil, errors.Errorf("target name %q must not contain a path separator", f.Name)
		}
		executableAtom := []byte("0")
		if f.Executable {
			executableAtom = []byte("1")
		}
		fileNodes = append(fileNodes, listNode(
			atomNode([]byte(f.Name)),
			atomNode([]byte(f.Digest.String())),
			atomNode(executableAtom),
		))
	}
	root := listNode(
		atomNode([]byte(string(KindRule))),
		listNode(atomNode([]byte(m.RuleDigest.String()))),
		listNode(fileNodes...),
	)
	return encode(root), nil
}

func encodeValue(m Metadata) ([]byte, error) {
	root := listNode(
		atomNode([]byte(string(KindValue))),
		listNode(atomNode([]byte(m.ValueDigest.String()))),
		atomNode(m.Value),
	)
	return encode(root), nil
}

// Decode parses the canonical textual form produced by Encode, validating
// digest widths and target name shape along the way. Any malformed input —
// truncated framing, wrong digest width, a target name containing a path
// separator — is reported as an error rather than partially accepted, since
// the trimmer's broken-metadata sweep (spec §6 Phase A) relies on Decode
// failing cleanly to identify corrupt entries.
func Decode(data []byte) (Metadata, error) {
	root, err := parseNode(data)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "malformed record")
	}
	if root.isAtom || len(root.list) != 3 {
		return Metadata{}, errors.New("malformed record: expected 3-element top-level list")
	}

	kindNode := root.list[0]
	if !kindNode.isAtom {
		return Metadata{}, errors.New("malformed record: kind must be an atom")
	}

	switch Kind(kindNode.atom) {
	case KindRule:
		return decodeRule(root.list[1], root.list[2])
	case KindValue:
		return decodeValue(root.list[1], root.list[2])
	default:
		return Metadata{}, errors.Errorf("unknown record kind %q", kindNode.atom)
	}
}

func decodeRule(ruleDigestNode, filesNode node) (Metadata, error) {
	if ruleDigestNode.isAtom || len(ruleDigestNode.list) != 1 {
		return Metadata{}, errors.New("malformed rule record: expected single-element rule digest wrapper")
	}
	ruleDigestAtom := ruleDigestNode.list[0]
	if !ruleDigestAtom.isAtom {
		return Metadata{}, errors.New("malformed rule record: rule digest must be an atom")
	}
	ruleDigest, err := digest.FromHex(string(ruleDigestAtom.atom))
	if err != nil {
		return Metadata{}, errors.Wrap(err, "malformed rule record: invalid rule digest")
	}

	if filesNode.isAtom {
		return Metadata{}, errors.New("malformed rule record: files must be a list")
	}

	files := make([]FileEntry, 0, len(filesNode.list))
	for _, entryNode := range filesNode.list {
		if entryNode.isAtom || len(entryNode.list) != 3 {
			return Metadata{}, errors.New("malformed rule record: each file entry must have 3 elements")
		}
		nameAtom, digestAtom, execAtom := entryNode.list[0], entryNode.list[1], entryNode.list[2]
		if !nameAtom.isAtom || !digestAtom.isAtom || !execAtom.isAtom {
			return Metadata{}, errors.New("malformed rule record: file entry fields must be atoms")
		}
		name := string(nameAtom.atom)
		if strings.ContainsAny(name, `/\`) {
			return Metadata{}, errors.Errorf("malformed rule record: target name %q must not contain a path separator", name)
		}
		fileDigest, err := digest.FromHex(string(digestAtom.atom))
		if err != nil {
			return Metadata{}, errors.Wrap(err, "malformed rule record: invalid file digest")
		}
		var executable bool
		switch string(execAtom.atom) {
		case "0":
			executable = false
		case "1":
			executable = true
		default:
			return Metadata{}, errors.Errorf("malformed rule record: invalid executable flag %q", execAtom.atom)
		}
		files = append(files, FileEntry{Name: name, Digest: fileDigest, Executable: executable})
	}

	return Metadata{Kind: KindRule, RuleDigest: ruleDigest, Files: files}, nil
}

func decodeValue(valueDigestNode, payloadNode node) (Metadata, error) {
	if valueDigestNode.isAtom || len(valueDigestNode.list) != 1 {
		return Metadata{}, errors.New("malformed value record: expected single-element value digest wrapper")
	}
	valueDigestAtom := valueDigestNode.list[0]
	if !valueDigestAtom.isAtom {
		return Metadata{}, errors.New("malformed value record: value digest must be an atom")
	}
	valueDigest, err := digest.FromHex(string(valueDigestAtom.atom))
	if err != nil {
		return Metadata{}, errors.Wrap(err, "malformed value record: invalid value digest")
	}
	if !payloadNode.isAtom {
		return Metadata{}, errors.New("malformed value record: payload must be an atom")
	}

	return Metadata{Kind: KindValue, ValueDigest: valueDigest, Value: payloadNode.atom}, nil
}

// ReferencedFileDigests returns the file digests a rule record refers to, so
// the trimmer can check each still exists in the file store (spec §6 Phase
// A). It returns nil for value records, which reference no file-store
// entries.
func (m Metadata) ReferencedFileDigests() []digest.Digest {
	if m.Kind != KindRule {
		return nil
	}
	digests := make([]digest.Digest, len(m.Files))
	for i, f := range m.Files {
		digests[i] = f.Digest
	}
	return digests
}
