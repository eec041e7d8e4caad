package hfsplus

import "math"

// locateExtent maps a logical byte offset within a forked file to an
// image byte offset, via an ordered extent list (§4.1, C1).
//
// Grounded on internal/hfs/hfs.go's parseExtents/toBytes arithmetic and
// internal/hfs/multireaderat.go's extent-walking ReadAt, generalized
// from a fixed 512-byte allocation block to an arbitrary block size and
// from a hand-rolled io.ReaderAt to a plain function the node vector
// (C2) calls directly.
func locateExtent(logicalOffset int64, extents []Extent, blockSize uint32) (imageOffset int64, extentRemaining int64, err error) {
	if logicalOffset < 0 {
		return 0, 0, errOutOfRange("locateExtent", errOutOfBoundsFork)
	}

	remaining := logicalOffset
	for _, e := range extents {
		if e.BlockCount == 0 {
			continue // zero-length extents are skipped (§4.1 tie-break)
		}
		extentBytes := int64(e.BlockCount) * int64(blockSize)
		if remaining < extentBytes {
			start := int64(e.StartBlock) * int64(blockSize)
			if start > math.MaxInt64-remaining {
				return 0, 0, errMalformed("locateExtent", errOverflowExtent)
			}
			return start + remaining, extentBytes - remaining, nil
		}
		remaining -= extentBytes
	}
	return 0, 0, errOutOfRange("locateExtent", errOutOfBoundsFork)
}

// totalExtentBytes sums the byte length covered by a list of extents.
func totalExtentBytes(extents []Extent, blockSize uint32) int64 {
	var total int64
	for _, e := range extents {
		total += int64(e.BlockCount) * int64(blockSize)
	}
	return total
}
