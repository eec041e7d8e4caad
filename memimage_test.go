package hfsplus

// memImage is a minimal ImageReader backed by an in-memory byte slice,
// used by every synthetic-image test in this package instead of an
// embedded binary fixture (grounded on deploymenttheory-go-apfs's and
// scigolib-hdf5's hand-built-buffer test style, not the teacher's
// //go:embed testimg approach, since we cannot embed real disk images
// here).
type memImage struct {
	data []byte
}

func (m *memImage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, errOutOfBoundsFork
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, errTruncatedNode
	}
	return n, nil
}

func (m *memImage) Size() int64 {
	return int64(len(m.data))
}
