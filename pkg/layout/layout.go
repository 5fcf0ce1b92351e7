// Package layout defines the on-disk directory structure of a cache root:
// the temp/ staging area and the version-sharded files/, meta/, and values/
// trees, each of which is further sharded by the first byte of an entry's
// hex digest (spec §3, §4.1).
package layout

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// TempDirectoryName is the name of the staging subdirectory in which
	// in-progress writes are created before being atomically relocated into
	// their final, content-addressed home.
	TempDirectoryName = "temp"

	// FilesDirectoryName is the name of the file-store subtree's root.
	FilesDirectoryName = "files"

	// MetadataDirectoryName is the name of the metadata-store subtree's root.
	MetadataDirectoryName = "meta"

	// ValuesDirectoryName is the name of the value-store subtree's root.
	ValuesDirectoryName = "values"
)

// TempDir returns the path of the shared staging directory beneath root.
func TempDir(root string) string {
	return filepath.Join(root, TempDirectoryName)
}

// FileDir returns the path of the file-store root for file-store version v
// beneath root (spec §5's Vf sequence).
func FileDir(root string, v int) string {
	return filepath.Join(root, FilesDirectoryName, versionDirName(v))
}

// MetadataDir returns the path of the metadata-store root for metadata
// version v beneath root (spec §5's Vm sequence).
func MetadataDir(root string, v int) string {
	return filepath.Join(root, MetadataDirectoryName, versionDirName(v))
}

// ValueDir returns the path of the value-store root for metadata version v
// beneath root. Values share the metadata version sequence, since a value
// record is itself a kind of metadata entry (spec §4.3).
func ValueDir(root string, v int) string {
	return filepath.Join(root, ValuesDirectoryName, versionDirName(v))
}

func versionDirName(v int) string {
	return "v" + itoa(v)
}

// itoa avoids pulling in strconv solely for this; kept local since it is a
// small conversion used only here.
func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	negative := v < 0
	if negative {
		v = -v
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	if negative {
		i--
		digits[i] = '-'
	}
	return string(digits[i:])
}

// PathOf returns the sharded path for a canonical lowercase hex digest
// string within a version directory: dir/<first two hex characters>/<full
// hex string>. Sharding by the first byte (two hex characters) keeps any
// single directory from accumulating an unbounded number of entries (spec
// §4.1).
func PathOf(dir string, hex string) (string, error) {
	if len(hex) < 2 {
		return "", errors.Errorf("digest hex %q too short to shard", hex)
	}
	return filepath.Join(dir, hex[:2], hex), nil
}

// ShardDir returns the prefix-shard directory (dir/<first two hex
// characters>) that PathOf's result would live under.
func ShardDir(dir string, hex string) (string, error) {
	if len(hex) < 2 {
		return "", errors.Errorf("digest hex %q too short to shard", hex)
	}
	return filepath.Join(dir, hex[:2]), nil
}

// ListEntries enumerates the canonical hex names of every entry directly
// beneath a sharded store directory (dir, as returned by FileDir/MetadataDir/
// ValueDir), skipping any intermediate shard or leaf entry that does not look
// like a lowercase hex digest name. A missing dir is treated as "no entries"
// rather than an error, since a version subtree is only created lazily on
// first write (spec §5's "absent version directories are empty, not
// erroneous" contract). Any other stat/read error is surfaced to the caller.
func ListEntries(dir string) ([]string, error) {
	shards, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "unable to list store directory")
	}

	var entries []string
	for _, shard := range shards {
		if !shard.IsDir() || !isHexName(shard.Name()) {
			continue
		}
		shardPath := filepath.Join(dir, shard.Name())
		leaves, err := os.ReadDir(shardPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrap(err, "unable to list shard directory")
		}
		for _, leaf := range leaves {
			if leaf.IsDir() || !isHexName(leaf.Name()) {
				continue
			}
			entries = append(entries, leaf.Name())
		}
	}
	return entries, nil
}

func isHexName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(('0' <= r && r <= '9') || ('a' <= r && r <= 'f')) {
			return false
		}
	}
	return true
}

// CreateCacheDirectories idempotently creates the temp/ staging area and the
// files/meta/values subtrees for the current writer version beneath root
// (spec §3's "the cache root is created lazily and idempotently" contract).
func CreateCacheDirectories(root string, currentFileVersion, currentMetadataVersion int) error {
	dirs := []string{
		TempDir(root),
		FileDir(root, currentFileVersion),
		MetadataDir(root, currentMetadataVersion),
		ValueDir(root, currentMetadataVersion),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "unable to create directory %s", dir)
		}
	}
	return nil
}
