package store

import (
	"crypto/md5"
	"hash"

	"github.com/dune-build/dune-cache/pkg/digest"
)

// contentHasher wraps the same digest algorithm pkg/digest uses, so that
// staging's single-pass write hashing produces a value identical to
// digest.File for the same bytes.
type contentHasher struct {
	hash.Hash
}

func newContentHasher() *contentHasher {
	return &contentHasher{Hash: md5.New()}
}

func (h *contentHasher) Reset() {
	h.Hash.Reset()
}

// Sum returns the accumulated digest without mutating the hasher's state,
// so the hasher can safely be returned to a pool and reused.
func (h *contentHasher) Sum() digest.Digest {
	var d digest.Digest
	copy(d[:], h.Hash.Sum(nil))
	return d
}
