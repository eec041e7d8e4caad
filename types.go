package hfsplus

// Extent is a contiguous run of allocation blocks belonging to a fork.
type Extent struct {
	StartBlock uint32
	BlockCount uint32
}

// ForkDescriptor is the on-disk fork descriptor: a logical size plus up
// to eight inline extents. When the inline extents don't cover
// TotalBlocks, the remainder lives in the extents-overflow B-tree.
type ForkDescriptor struct {
	LogicalSize uint64
	ClumpSize   uint32
	TotalBlocks uint32
	Extents     [8]Extent
}

func (f ForkDescriptor) hasOverflow() bool {
	var sum uint32
	for _, e := range f.Extents {
		sum += e.BlockCount
	}
	return sum < f.TotalBlocks
}

func (f ForkDescriptor) inlineBlockCount() uint32 {
	var sum uint32
	for _, e := range f.Extents {
		sum += e.BlockCount
	}
	return sum
}

// ForkKind distinguishes a file's data fork from its resource fork,
// using the same byte values the on-disk extents-overflow key does
// (§4.6): 0x00 for data, 0xff for resource.
type ForkKind uint8

const (
	ForkData     ForkKind = 0x00
	ForkResource ForkKind = 0xff
)

func (k ForkKind) String() string {
	if k == ForkResource {
		return "resource"
	}
	return "data"
}

// RecordType is the catalog leaf record's semantic type, normalized
// across the HFS and HFS+ tag encodings (§3.1).
type RecordType int

const (
	RecordInvalid RecordType = iota
	RecordDirectory
	RecordFile
	RecordDirectoryThread
	RecordFileThread
)

func (t RecordType) String() string {
	switch t {
	case RecordDirectory:
		return "directory"
	case RecordFile:
		return "file"
	case RecordDirectoryThread:
		return "directory-thread"
	case RecordFileThread:
		return "file-thread"
	default:
		return "invalid"
	}
}

func (t RecordType) isThread() bool {
	return t == RecordDirectoryThread || t == RecordFileThread
}

// Encoding names the catalog key/name encoding a B-tree was built with.
// A volume is either entirely HFS (MacRoman names) or entirely HFS+
// (UTF-16BE names); the façade learns which at Open time and the name
// comparator and key codecs both key off it.
type Encoding int

const (
	EncodingHFSPlus Encoding = iota
	EncodingHFS
)

// DirectoryEntry is the caller-visible result of a catalog lookup or
// directory listing.
type DirectoryEntry struct {
	ParentCNID uint32
	Name       string
	CNID       uint32
	Type       RecordType
	// Body is the undecoded catalog record payload (dates, Finder info,
	// fork descriptors, permissions): decoding it further is the public
	// file-entry façade's job, not this package's (§1).
	Body []byte
}

// AttributeKind distinguishes an inline-data attribute record from one
// whose data lives in extents chased through the extents-overflow
// B-tree (§3.2 ADDED).
type AttributeKind int

const (
	AttributeInline AttributeKind = iota
	AttributeForked
)

// AttributeRecord is one named extended-attribute record for a CNID.
// Its payload is not decoded further by this package (§4.10).
type AttributeRecord struct {
	CNID uint32
	Name string
	Kind AttributeKind
	Body []byte
}

// VolumeForks bundles everything the external volume-header parser
// supplies (§6.1): the allocation block size, the three B-tree seed
// forks, which catalog key encoding the volume uses, and the
// case-folding policy. Open does not read UseCaseFolding; it takes the
// case-folding policy as its own useCaseFolding argument.
type VolumeForks struct {
	BlockSize       uint32
	Encoding        Encoding
	Catalog         ForkDescriptor
	ExtentsOverflow ForkDescriptor
	// Attributes is nil when the volume has no attributes file (classic
	// HFS never does; HFS+ volumes created before Mac OS X 10.4 may not
	// either).
	Attributes     *ForkDescriptor
	UseCaseFolding bool
}
