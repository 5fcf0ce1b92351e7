// Package buildinfo holds the version identity of the dune-cache module,
// mirroring the minimal version constants mutagen keeps in pkg/mutagen.
package buildinfo

import "fmt"

const (
	// VersionMajor is the current major version.
	VersionMajor = 0
	// VersionMinor is the current minor version.
	VersionMinor = 1
	// VersionPatch is the current patch version.
	VersionPatch = 0
)

// Version is the dotted version string.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
