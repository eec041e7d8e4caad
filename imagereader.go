package hfsplus

// ImageReader is the only contract this package has on the bytes it
// reads. It is deliberately as small as [io.ReaderAt] plus a size: the
// volume-header parser, the allocation bitmap, and any decompression the
// caller layers underneath are all external collaborators (§1).
type ImageReader interface {
	ReadAt(p []byte, off int64) (n int, err error)
	Size() int64
}
