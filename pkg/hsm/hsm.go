// Package hsm implements online/offline detection for files on tape-backed
// hierarchical storage.
//
// A file migrated to tape keeps its logical size but loses its allocated
// blocks: the filesystem holds only a placeholder inode. Probing (size,
// blocks) is therefore enough to classify a file without reading it, with
// one caveat: filesystems store very small files inline in the inode, so
// those legitimately report zero blocks while being fully resident. The
// classifier guards against that with a minimum-size threshold.
package hsm

import "fmt"

// DefaultMinFileSize is the default threshold, in bytes, below which a file
// with zero allocated blocks is still considered online (inline inode
// storage). Deployments tune this to their filesystem's inline-data
// capacity; there is no single correct value.
const DefaultMinFileSize = 350

// ProbeResult holds the raw filesystem facts needed for classification.
type ProbeResult struct {
	// Size is the logical file size in bytes.
	Size uint64

	// Blocks is the number of storage blocks actually allocated to the
	// file's content.
	Blocks uint64
}

// ProbeError indicates that the stat probe itself failed for a path. It is
// distinct from an offline classification: a ProbeError means the check
// infrastructure is broken or the file is gone, not that the file is on
// tape. Probe failures are transient and retry-safe.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("hsm: probe failed for %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Online classifies a file as online (directly readable) or offline
// (tape placeholder, read would stall on recall).
//
// A file is offline iff it is larger than minFileSize and has zero
// allocated blocks. Everything else is online, including small files held
// inline in the inode.
//
// The function is pure and total over its numeric domain.
func Online(size, blocks, minFileSize uint64) bool {
	return !(size > minFileSize && blocks == 0)
}
