// Package store implements the content-addressed promote/restore protocol
// that is the heart of the cache: outputs are staged into temporary files,
// digested while they are written, and atomically relocated into their
// content-addressed home (spec §3, §4). Restoring a rule's outputs is
// implemented purely with hard links, so the file store's link count is
// itself the liveness signal the trimmer relies on (spec §6): once the only
// remaining link is the one inside the store, the entry is unused.
package store

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dune-build/dune-cache/pkg/cacheversion"
	"github.com/dune-build/dune-cache/pkg/digest"
	"github.com/dune-build/dune-cache/pkg/layout"
	"github.com/dune-build/dune-cache/pkg/logging"
	"github.com/dune-build/dune-cache/pkg/metadata"
)

const writeBufferSize = 64 * 1024

// ErrNotFound is returned when a promote/restore lookup finds no entry for
// the requested digest.
var ErrNotFound = errors.New("not found in cache")

// Output describes a single produced file to be promoted under a rule.
type Output struct {
	// Name is the output's target-relative name; it must not contain a path
	// separator (spec §4.3).
	Name string
	// Path is the on-disk location of the file to promote.
	Path string
	// Executable indicates whether the output's executable bit must be
	// preserved through restore.
	Executable bool
}

// Store is the on-disk content-addressed cache rooted at root. After
// Initialize is called, all of its methods are safe for concurrent use: the
// only mutation primitives it relies on are atomic renames and hard links,
// so no cache-wide lock is needed (spec §3's "lock-free concurrent writers"
// invariant).
type Store struct {
	root   string
	logger *logging.Logger

	writeBufferPool sync.Pool
	hasherPool      sync.Pool
}

// NewStore creates a Store rooted at root. Call Initialize before using it.
func NewStore(root string, logger *logging.Logger) *Store {
	return &Store{
		root:   root,
		logger: logger,
		writeBufferPool: sync.Pool{
			New: func() any {
				return bufio.NewWriterSize(io.Discard, writeBufferSize)
			},
		},
		hasherPool: sync.Pool{
			New: func() any {
				return newContentHasher()
			},
		},
	}
}

// Initialize idempotently creates the cache root's directory structure.
func (s *Store) Initialize() error {
	return layout.CreateCacheDirectories(
		s.root,
		cacheversion.CurrentFileVersion.Int(),
		cacheversion.CurrentMetadataVersion.Int(),
	)
}

// ensureShardDir creates the two-character shard directory that hex will
// live under, if it does not already exist.
func ensureShardDir(treeDir, hex string) error {
	shard, err := layout.ShardDir(treeDir, hex)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(shard, 0755); err != nil {
		return errors.Wrap(err, "unable to create shard directory")
	}
	return nil
}

// stageFile writes reader's content to a fresh temporary file beneath
// temp/, computing its digest while the data streams through, then returns
// the temp file's path and the content digest. The caller is responsible for
// either relocating or removing the temp file.
func (s *Store) stageFile(reader io.Reader, executable bool) (tempPath string, contentDigest digest.Digest, err error) {
	tempName := "staging-" + uuid.NewString()
	temp, err := os.CreateTemp(layout.TempDir(s.root), tempName)
	if err != nil {
		return "", digest.Digest{}, errors.Wrap(err, "unable to create temporary staging file")
	}
	defer func() {
		if err != nil {
			os.Remove(temp.Name())
		}
	}()

	hasher := s.hasherPool.Get().(*contentHasher)
	hasher.Reset()
	defer s.hasherPool.Put(hasher)

	writer := newHashedWriter(temp, hasher.Hash)
	buffer := s.writeBufferPool.Get().(*bufio.Writer)
	buffer.Reset(writer)
	defer func() {
		buffer.Reset(io.Discard)
		s.writeBufferPool.Put(buffer)
	}()

	if _, err = io.Copy(buffer, reader); err != nil {
		temp.Close()
		return "", digest.Digest{}, errors.Wrap(err, "unable to write staging content")
	}
	if err = buffer.Flush(); err != nil {
		temp.Close()
		return "", digest.Digest{}, errors.Wrap(err, "unable to flush staging content")
	}

	mode := os.FileMode(0644)
	if executable {
		mode = 0755
	}
	if err = temp.Chmod(mode); err != nil {
		temp.Close()
		return "", digest.Digest{}, errors.Wrap(err, "unable to set staging file mode")
	}
	if err = temp.Close(); err != nil {
		return "", digest.Digest{}, errors.Wrap(err, "unable to close staging file")
	}

	rawContentDigest := hasher.Sum()
	s.logger.Debugf("staged %s as %s", tempName, rawContentDigest)
	return temp.Name(), rawContentDigest, nil
}

// PromoteFile stages the file at path into the file store, keyed by its
// executable-aware digest (spec §4.2). If an entry already exists for that
// digest, the staged temporary file is discarded and the existing entry is
// reused, matching the cache's "store once" contract.
func (s *Store) PromoteFile(path string, executable bool) (digest.Digest, error) {
	source, err := os.Open(path)
	if err != nil {
		return digest.Digest{}, errors.Wrap(err, "unable to open output file")
	}
	defer source.Close()

	tempPath, contentDigest, err := s.stageFile(source, executable)
	if err != nil {
		return digest.Digest{}, err
	}

	finalDigest := digest.CombineExecutable(contentDigest, executable)
	fileDir := layout.FileDir(s.root, cacheversion.CurrentFileVersion.Int())
	finalPath, err := layout.PathOf(fileDir, finalDigest.String())
	if err != nil {
		os.Remove(tempPath)
		return digest.Digest{}, err
	}

	if _, statErr := os.Lstat(finalPath); statErr == nil {
		// Already present; the new bytes are identical by construction
		// (same digest), so there is nothing left to do.
		s.logger.Debugf("file %s already cached, discarding staged copy", finalDigest)
		os.Remove(tempPath)
		return finalDigest, nil
	}

	if err := ensureShardDir(fileDir, finalDigest.String()); err != nil {
		os.Remove(tempPath)
		return digest.Digest{}, err
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return digest.Digest{}, errors.Wrap(err, "unable to relocate staged file into store")
	}
	return finalDigest, nil
}

// ContainsFile reports whether the file store holds an entry for d, checking
// every supported file-store version.
func (s *Store) ContainsFile(d digest.Digest) bool {
	for _, v := range cacheversion.SupportedFileVersions() {
		path, err := layout.PathOf(layout.FileDir(s.root, v.Int()), d.String())
		if err != nil {
			continue
		}
		if _, err := os.Lstat(path); err == nil {
			return true
		}
	}
	return false
}

// RestoreFile hard-links the file store entry for d to destPath, creating
// destPath's parent directory if necessary. Because the file store shards by
// executable-aware digest, the linked file already carries the correct
// executable bit; no chmod is required after linking.
func (s *Store) RestoreFile(d digest.Digest, destPath string) error {
	for _, v := range cacheversion.SupportedFileVersions() {
		sourcePath, err := layout.PathOf(layout.FileDir(s.root, v.Int()), d.String())
		if err != nil {
			continue
		}
		if _, err := os.Lstat(sourcePath); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return errors.Wrap(err, "unable to create destination directory")
		}
		os.Remove(destPath)
		if err := os.Link(sourcePath, destPath); err != nil {
			return errors.Wrap(err, "unable to link cached file into place")
		}
		return nil
	}
	return ErrNotFound
}

// PromoteRule stages every output and records the rule's metadata entry,
// keyed by ruleDigest. Outputs are staged into the file store before the
// metadata record is written, so a crash between staging and the metadata
// rename can never leave a metadata entry pointing at a missing file.
func (s *Store) PromoteRule(ruleDigest digest.Digest, outputs []Output) error {
	files := make([]metadata.FileEntry, 0, len(outputs))
	for _, output := range outputs {
		fileDigest, err := s.PromoteFile(output.Path, output.Executable)
		if err != nil {
			return errors.Wrapf(err, "unable to promote output %q", output.Name)
		}
		files = append(files, metadata.FileEntry{
			Name:       output.Name,
			Digest:     fileDigest,
			Executable: output.Executable,
		})
	}

	record := metadata.Metadata{Kind: metadata.KindRule, RuleDigest: ruleDigest, Files: files}
	encoded, err := record.Encode()
	if err != nil {
		return errors.Wrap(err, "unable to encode rule record")
	}
	return s.writeMetadataRecord(ruleDigest, encoded)
}

// ContainsRule reports whether a rule record exists for ruleDigest, checking
// every supported metadata version.
func (s *Store) ContainsRule(ruleDigest digest.Digest) bool {
	_, err := s.readMetadataRecord(ruleDigest)
	return err == nil
}

// RestoreRule reads the rule record for ruleDigest and hard-links every
// output file into destDir, named per the record. It returns the decoded
// file entries so callers can report what was restored.
func (s *Store) RestoreRule(ruleDigest digest.Digest, destDir string) ([]metadata.FileEntry, error) {
	record, err := s.readMetadataRecord(ruleDigest)
	if err != nil {
		return nil, err
	}
	if record.Kind != metadata.KindRule {
		return nil, errors.Errorf("record %s is not a rule record", ruleDigest)
	}
	for _, file := range record.Files {
		destPath := filepath.Join(destDir, file.Name)
		if err := s.RestoreFile(file.Digest, destPath); err != nil {
			return nil, errors.Wrapf(err, "unable to restore output %q", file.Name)
		}
	}
	return record.Files, nil
}

// PromoteValue stores an opaque build-system value, addressed by the digest
// of its own bytes, and records a marker entry in the metadata tree so the
// trimmer's broken-metadata sweep can recognize and unconditionally preserve
// it (spec §6 Phase A's "value records are never deleted" rule).
func (s *Store) PromoteValue(payload []byte) (digest.Digest, error) {
	valueDigest := digest.Bytes(payload)

	valueDir := layout.ValueDir(s.root, cacheversion.CurrentMetadataVersion.Int())
	valuePath, err := layout.PathOf(valueDir, valueDigest.String())
	if err != nil {
		return digest.Digest{}, err
	}
	if _, statErr := os.Lstat(valuePath); statErr != nil {
		tempPath, _, err := s.stageFile(bytes.NewReader(payload), false)
		if err != nil {
			return digest.Digest{}, err
		}
		if err := ensureShardDir(valueDir, valueDigest.String()); err != nil {
			os.Remove(tempPath)
			return digest.Digest{}, err
		}
		if err := os.Rename(tempPath, valuePath); err != nil {
			os.Remove(tempPath)
			return digest.Digest{}, errors.Wrap(err, "unable to relocate staged value into store")
		}
	}

	record := metadata.Metadata{Kind: metadata.KindValue, ValueDigest: valueDigest}
	encoded, err := record.Encode()
	if err != nil {
		return digest.Digest{}, errors.Wrap(err, "unable to encode value record")
	}
	if err := s.writeMetadataRecord(valueDigest, encoded); err != nil {
		return digest.Digest{}, err
	}
	return valueDigest, nil
}

// RestoreValue returns the raw bytes previously stored under PromoteValue
// for valueDigest.
func (s *Store) RestoreValue(valueDigest digest.Digest) ([]byte, error) {
	for _, v := range cacheversion.SupportedMetadataVersions() {
		path, err := layout.PathOf(layout.ValueDir(s.root, v.Int()), valueDigest.String())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) writeMetadataRecord(key digest.Digest, encoded []byte) error {
	metaDir := layout.MetadataDir(s.root, cacheversion.CurrentMetadataVersion.Int())
	finalPath, err := layout.PathOf(metaDir, key.String())
	if err != nil {
		return err
	}
	if err := ensureShardDir(metaDir, key.String()); err != nil {
		return err
	}

	tempName := "meta-" + uuid.NewString()
	tempPath := filepath.Join(layout.TempDir(s.root), tempName)
	if err := os.WriteFile(tempPath, encoded, 0644); err != nil {
		return errors.Wrap(err, "unable to write temporary metadata file")
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "unable to relocate metadata record into store")
	}
	return nil
}

func (s *Store) readMetadataRecord(key digest.Digest) (metadata.Metadata, error) {
	for _, v := range cacheversion.SupportedMetadataVersions() {
		path, err := layout.PathOf(layout.MetadataDir(s.root, v.Int()), key.String())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		record, err := metadata.Decode(data)
		if err != nil {
			return metadata.Metadata{}, errors.Wrap(err, "stored metadata record is corrupt")
		}
		return record, nil
	}
	return metadata.Metadata{}, ErrNotFound
}
