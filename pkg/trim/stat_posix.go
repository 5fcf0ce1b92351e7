//go:build !windows

package trim

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/pkg/errors"
)

// entryStat is the subset of raw POSIX stat information the trimmer needs:
// the hard-link count (the sole liveness signal, spec §6) and the change
// time (the recency signal Phase B sorts by, since unlinking a sibling hard
// link bumps ctime).
type entryStat struct {
	links int
	ctime time.Time
	size  int64
}

// statEntry reads raw stat information for path using golang.org/x/sys/unix,
// mirroring pkg/filesystem/syscall_times_posix.go's use of unix.Stat_t over
// the stdlib syscall package for POSIX-specific fields that os.FileInfo does
// not expose.
func statEntry(path string) (entryStat, error) {
	var raw unix.Stat_t
	if err := unix.Lstat(path, &raw); err != nil {
		return entryStat{}, errors.Wrap(err, "unable to stat cache entry")
	}
	return entryStat{
		links: int(raw.Nlink),
		ctime: time.Unix(raw.Ctim.Sec, raw.Ctim.Nsec),
		size:  raw.Size,
	}, nil
}
