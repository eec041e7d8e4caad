package hfsplus

import (
	"context"
	"sync"
)

// Filesystem is the public façade (C11): it owns the catalog,
// extents-overflow, and (optional) attributes B-tree readers and
// answers the four catalog queries plus extent/attribute lookups.
//
// Grounded on internal/hfs.go's New/FS shape (a single struct wrapping
// parsed B-tree state behind a handful of public methods) and
// prefetch.go's `bigmu sync.RWMutex` locking pattern, generalized from
// an `fs.FS`-shaped surface to the CNID/name/path/extent/attribute
// surface §4.11 specifies.
type Filesystem struct {
	image     ImageReader
	blockSize uint32
	enc       Encoding
	caseFold  bool

	mu sync.RWMutex

	// catalogByName and catalogByCNID share one underlying catalog
	// B-tree reader's node vector and header but keep independent node
	// caches (§4.11 ADDED, §9 "Cache sharing between queries"), so a
	// burst of CNID lookups cannot evict the working set a directory
	// walk built up, and vice versa.
	catalogByName *catalogTree
	catalogByCNID *catalogTree

	extentsOverflow *extentsOverflowTree
	attributes      *attributesTree
}

// Open bootstraps a Filesystem from its seed forks (§4.11, §4.5 step
// 1-4 applied to each of the three B-trees).
func Open(image ImageReader, volume VolumeForks, useCaseFolding bool) (*Filesystem, error) {
	catalogReader, err := openBTree(image, volume.BlockSize, volume.Catalog, volume.Catalog.Extents[:])
	if err != nil {
		return nil, err
	}
	extentsReader, err := openBTree(image, volume.BlockSize, volume.ExtentsOverflow, volume.ExtentsOverflow.Extents[:])
	if err != nil {
		return nil, err
	}

	fs := &Filesystem{
		image:           image,
		blockSize:       volume.BlockSize,
		enc:             volume.Encoding,
		caseFold:        useCaseFolding,
		catalogByName:   newCatalogTree(catalogReader, volume.Encoding, useCaseFolding),
		catalogByCNID:   newCatalogTree(catalogReader.withFreshCache(), volume.Encoding, useCaseFolding),
		extentsOverflow: newExtentsOverflowTree(extentsReader, volume.Encoding),
	}

	if volume.Attributes != nil {
		attributesReader, err := openBTree(image, volume.BlockSize, *volume.Attributes, volume.Attributes.Extents[:])
		if err != nil {
			return nil, err
		}
		fs.attributes = newAttributesTree(attributesReader)
	}

	return fs, nil
}

// EntryByCNID is Q1 (§4.8), rendered with NotFound as a plain bool
// (§6.2, REDESIGN FLAGS).
func (fs *Filesystem) EntryByCNID(ctx context.Context, cnid uint32) (DirectoryEntry, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.catalogByCNID.lookupCNID(ctx, cnid)
}

// EntryByName is Q2 (§4.8).
func (fs *Filesystem) EntryByName(ctx context.Context, parent uint32, name string) (DirectoryEntry, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.catalogByName.lookupName(ctx, parent, name)
}

// EntryByPath is Q3 (§4.8, §4.7 "Separator handling").
func (fs *Filesystem) EntryByPath(ctx context.Context, path string) (DirectoryEntry, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.catalogByName.lookupPath(ctx, path)
}

// ListDirectory is Q4 (§4.8).
func (fs *Filesystem) ListDirectory(ctx context.Context, cnid uint32) ([]DirectoryEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.catalogByName.listDirectory(ctx, cnid)
}

// ExtentsOf returns every extent belonging to (cnid, fork) in order:
// the fork descriptor's inline extents followed by any extents chased
// through the extents-overflow B-tree (§4.9, P9).
func (fs *Filesystem) ExtentsOf(ctx context.Context, cnid uint32, fork ForkKind, inline ForkDescriptor) ([]Extent, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]Extent, 0, 8)
	var accumulated uint32
	for _, e := range inline.Extents {
		if e.BlockCount == 0 {
			continue
		}
		out = append(out, e)
		accumulated += e.BlockCount
	}
	if accumulated >= inline.TotalBlocks {
		return out, nil
	}

	overflow, err := fs.extentsOverflow.extentsFor(ctx, cnid, fork, accumulated, inline.TotalBlocks-accumulated)
	if err != nil {
		return nil, err
	}
	return append(out, overflow...), nil
}

// AttributesOf returns every named extended-attribute record for cnid
// (§4.10). It returns an empty slice, not an error, when the volume
// carries no attributes file.
func (fs *Filesystem) AttributesOf(ctx context.Context, cnid uint32) ([]AttributeRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.attributes == nil {
		return nil, nil
	}
	return fs.attributes.attributesFor(ctx, cnid, fs.caseFold)
}
