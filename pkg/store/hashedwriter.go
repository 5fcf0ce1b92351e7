package store

import (
	"hash"
	"io"
)

// hashedWriter is an io.Writer that transparently feeds every byte written
// to it into a hash.Hash while passing it through to an underlying writer.
// Grounded on pkg/stream's HashedWriter: the store's staging allocator needs
// to compute a file's content digest in the same pass as writing it to disk,
// rather than re-reading the file afterward.
type hashedWriter struct {
	writer io.Writer
	hasher hash.Hash
}

func newHashedWriter(writer io.Writer, hasher hash.Hash) *hashedWriter {
	return &hashedWriter{writer: writer, hasher: hasher}
}

func (h *hashedWriter) Write(data []byte) (int, error) {
	n, err := h.writer.Write(data)
	if n > 0 {
		// A hash.Hash's Write never fails, per the hash.Hash contract, so
		// only the underlying writer's error is meaningful here.
		h.hasher.Write(data[:n])
	}
	return n, err
}
