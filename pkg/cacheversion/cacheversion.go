// Package cacheversion tracks the two monotone version sequences that govern
// the on-disk layout: the file-store version (Vf) and the metadata version
// (Vm), along with the static mapping from a metadata version to the file
// version it was written against (spec §5). Writers always target the
// current version of each sequence; readers and the trimmer must enumerate
// every version still recognized as supported, since older versions can
// persist on disk after an upgrade until they are trimmed away.
package cacheversion

// FileVersion identifies a revision of the file-store encoding (Vf).
type FileVersion int

// MetadataVersion identifies a revision of the metadata-store encoding (Vm).
type MetadataVersion int

const (
	// FileVersion1 is the original, and currently only, file-store encoding.
	FileVersion1 FileVersion = 1
)

const (
	// MetadataVersion1 is the original, and currently only, metadata-store
	// encoding.
	MetadataVersion1 MetadataVersion = 1
)

// CurrentFileVersion is the file-store version new writes target.
const CurrentFileVersion = FileVersion1

// CurrentMetadataVersion is the metadata-store version new writes target.
const CurrentMetadataVersion = MetadataVersion1

// fileVersionForMetadata is the static Vm -> Vf mapping table (spec §5). Each
// metadata version is written against exactly one file-store version, fixed
// at the time the metadata version was introduced; this never changes
// retroactively.
var fileVersionForMetadata = map[MetadataVersion]FileVersion{
	MetadataVersion1: FileVersion1,
}

// FileVersionFor returns the file-store version that entries written under
// metadata version v reference. The second return value is false if v is not
// a recognized metadata version.
func FileVersionFor(v MetadataVersion) (FileVersion, bool) {
	fv, ok := fileVersionForMetadata[v]
	return fv, ok
}

// SupportedFileVersions returns every file-store version the trimmer and
// readers must still recognize, in ascending order.
func SupportedFileVersions() []FileVersion {
	return []FileVersion{FileVersion1}
}

// SupportedMetadataVersions returns every metadata-store version the trimmer
// and readers must still recognize, in ascending order.
func SupportedMetadataVersions() []MetadataVersion {
	return []MetadataVersion{MetadataVersion1}
}

// Supported reports whether v is a file-store version this build still
// understands.
func (v FileVersion) Supported() bool {
	for _, supported := range SupportedFileVersions() {
		if v == supported {
			return true
		}
	}
	return false
}

// Supported reports whether v is a metadata-store version this build still
// understands.
func (v MetadataVersion) Supported() bool {
	for _, supported := range SupportedMetadataVersions() {
		if v == supported {
			return true
		}
	}
	return false
}

// Int returns the integer identifier of a file-store version, for use in
// directory names (layout.FileDir and friends).
func (v FileVersion) Int() int {
	return int(v)
}

// Int returns the integer identifier of a metadata-store version, for use in
// directory names (layout.MetadataDir and friends).
func (v MetadataVersion) Int() int {
	return int(v)
}
