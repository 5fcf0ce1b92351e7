// Package trim implements the cache's two-phase reclamation sweep (spec
// §6). Phase A walks every supported metadata version looking for broken
// rule records — ones that reference a file digest no longer present in the
// file store — and deletes them; it never deletes a value record, since a
// value has no outward reference to validate and its mere presence is its
// own liveness proof. Phase B, run only for Trim (not GarbageCollect), walks
// the file store looking for entries whose hard-link count has dropped to
// one — meaning the only remaining link is the one inside the cache itself —
// and evicts them oldest-unused-first until the requested goal is met.
package trim

import (
	"context"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/dune-build/dune-cache/pkg/cacheversion"
	"github.com/dune-build/dune-cache/pkg/layout"
	"github.com/dune-build/dune-cache/pkg/logging"
	"github.com/dune-build/dune-cache/pkg/metadata"
)

// Trimmer performs reclamation sweeps over a cache rooted at root.
type Trimmer struct {
	root   string
	logger *logging.Logger
}

// NewTrimmer creates a Trimmer for the cache rooted at root.
func NewTrimmer(root string, logger *logging.Logger) *Trimmer {
	return &Trimmer{root: root, logger: logger}
}

// Goal describes when Phase B should stop evicting unused file-store
// entries. Exactly one of the two constructors below should be used to
// build a Goal.
type Goal struct {
	sizeGoal bool
	bytes    uint64
}

// SizeGoal requests that Phase B evict unused entries until the file
// store's total size is at most bytes, or until there are no more unused
// entries to evict.
func SizeGoal(bytes uint64) Goal {
	return Goal{sizeGoal: true, bytes: bytes}
}

// FreedGoal requests that Phase B evict unused entries until at least
// bytes have been reclaimed, or until there are no more unused entries to
// evict.
func FreedGoal(bytes uint64) Goal {
	return Goal{sizeGoal: false, bytes: bytes}
}

// Report summarizes a single reclamation sweep.
type Report struct {
	// BrokenMetadataRemoved is the number of Phase A records deleted.
	BrokenMetadataRemoved int
	// BrokenMetadataBytes is the total size, in bytes, of the metadata
	// records Phase A deleted.
	BrokenMetadataBytes uint64
	// FilesEvicted is the number of Phase B file-store entries deleted.
	FilesEvicted int
	// BytesFreed is the total size, in bytes, of the file-store entries
	// Phase B deleted.
	BytesFreed uint64
}

// GarbageCollect runs Phase A only: it removes broken metadata records but
// never evicts a live, parseable file-store entry, regardless of whether
// anything currently references it (spec §6's "garbage_collect never
// reclaims space by unused-entry eviction" contract).
func (t *Trimmer) GarbageCollect(ctx context.Context) (Report, error) {
	return t.sweepBrokenMetadata(ctx, true)
}

// OverheadSize reports the total size of broken metadata records without
// deleting anything, so callers can decide whether a GarbageCollect pass is
// worthwhile before running one.
func (t *Trimmer) OverheadSize(ctx context.Context) (uint64, error) {
	report, err := t.sweepBrokenMetadata(ctx, false)
	if err != nil {
		return 0, err
	}
	return report.BrokenMetadataBytes, nil
}

// Trim runs Phase A followed by Phase B, evicting unused file-store entries
// until goal is satisfied.
func (t *Trimmer) Trim(ctx context.Context, goal Goal) (Report, error) {
	report, err := t.sweepBrokenMetadata(ctx, true)
	if err != nil {
		return report, err
	}

	filesReport, err := t.evictUnused(ctx, goal)
	if err != nil {
		return report, err
	}
	report.FilesEvicted = filesReport.FilesEvicted
	report.BytesFreed = filesReport.BytesFreed

	t.logger.Infof("phase B: evicted %d file entries, freed %d bytes", report.FilesEvicted, report.BytesFreed)
	return report, nil
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sweepBrokenMetadata implements Phase A. When removeBroken is false, it
// only measures broken records (used by OverheadSize).
func (t *Trimmer) sweepBrokenMetadata(ctx context.Context, removeBroken bool) (Report, error) {
	var report Report

	for _, v := range cacheversion.SupportedMetadataVersions() {
		if isCancelled(ctx) {
			return report, ctx.Err()
		}

		metaDir := layout.MetadataDir(t.root, v.Int())
		entries, err := layout.ListEntries(metaDir)
		if err != nil {
			return report, errors.Wrapf(err, "unable to list metadata version %d", v.Int())
		}

		fileVersion, ok := cacheversion.FileVersionFor(v)
		if !ok {
			t.logger.Warnf("metadata version %d has no known file-version mapping, skipping", v.Int())
			continue
		}

		for _, hex := range entries {
			if isCancelled(ctx) {
				return report, ctx.Err()
			}

			path, err := layout.PathOf(metaDir, hex)
			if err != nil {
				continue
			}
			info, statErr := os.Stat(path)
			if statErr != nil {
				continue
			}
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				continue
			}

			record, decodeErr := metadata.Decode(data)
			broken := decodeErr != nil
			if !broken && record.Kind == metadata.KindRule {
				broken = !t.allReferencedFilesExist(record, fileVersion)
			}
			// Value records are never considered broken: they have no
			// outward reference to validate, and their presence alone
			// establishes liveness.

			if !broken {
				continue
			}

			report.BrokenMetadataRemoved++
			report.BrokenMetadataBytes += uint64(info.Size())

			if removeBroken {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					t.logger.Warnf("unable to remove broken metadata record %s: %v", hex, err)
				} else {
					t.logger.Infof("removed broken metadata record %s", hex)
				}
			}
		}
	}

	if removeBroken {
		t.logger.Infof("phase A: swept %d broken metadata entries, freed %d bytes", report.BrokenMetadataRemoved, report.BrokenMetadataBytes)
	}
	return report, nil
}

func (t *Trimmer) allReferencedFilesExist(record metadata.Metadata, fileVersion cacheversion.FileVersion) bool {
	fileDir := layout.FileDir(t.root, fileVersion.Int())
	for _, fileDigest := range record.ReferencedFileDigests() {
		path, err := layout.PathOf(fileDir, fileDigest.String())
		if err != nil {
			return false
		}
		if _, err := os.Lstat(path); err != nil {
			return false
		}
	}
	return true
}

type evictionCandidate struct {
	path  string
	size  int64
	ctime int64
}

// evictUnused implements Phase B: it finds every file-store entry whose
// hard-link count has dropped to one and evicts the oldest-unused ones
// first until goal is satisfied.
func (t *Trimmer) evictUnused(ctx context.Context, goal Goal) (Report, error) {
	var report Report

	var candidates []evictionCandidate
	var totalSize int64

	for _, v := range cacheversion.SupportedFileVersions() {
		if isCancelled(ctx) {
			return report, ctx.Err()
		}

		fileDir := layout.FileDir(t.root, v.Int())
		entries, err := layout.ListEntries(fileDir)
		if err != nil {
			return report, errors.Wrapf(err, "unable to list file version %d", v.Int())
		}

		for _, hex := range entries {
			path, err := layout.PathOf(fileDir, hex)
			if err != nil {
				continue
			}
			stat, err := statEntry(path)
			if err != nil {
				continue
			}
			totalSize += stat.size
			if stat.links <= 1 {
				candidates = append(candidates, evictionCandidate{
					path:  path,
					size:  stat.size,
					ctime: stat.ctime.UnixNano(),
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ctime < candidates[j].ctime
	})

	for _, candidate := range candidates {
		if isCancelled(ctx) {
			return report, ctx.Err()
		}
		if t.goalSatisfied(goal, totalSize, report.BytesFreed) {
			break
		}

		if err := os.Remove(candidate.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			t.logger.Warnf("unable to evict unused entry %s: %v", candidate.path, err)
			continue
		}
		report.FilesEvicted++
		report.BytesFreed += uint64(candidate.size)
		totalSize -= candidate.size
		t.logger.Infof("evicted unused entry %s (%d bytes)", candidate.path, candidate.size)
	}

	return report, nil
}

func (t *Trimmer) goalSatisfied(goal Goal, currentTotalSize int64, freed uint64) bool {
	if goal.sizeGoal {
		return uint64(currentTotalSize) <= goal.bytes
	}
	return freed >= goal.bytes
}
