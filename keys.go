package hfsplus

import (
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/elliotnunn/hfsplus/internal/name"
)

// catalogKey is the decoded form of a catalog B-tree key: the parent
// CNID plus a name, normalized to UTF-8 regardless of source encoding,
// with its comparator hash computed once and cached (§3.2, §4.7, P4).
//
// Grounded on internal/hfs/hfs.go's inline `rec[6]`/`rec[4:8]` field
// reads inside parseCatalog, generalized from a classic-HFS-only,
// MacRoman-only key to one that also decodes HFS+'s UTF-16BE keys, per
// libfshfs_catalog_btree_key.c.
type catalogKey struct {
	parentCNID uint32
	name       string
	nameHash   uint32
	caseFold   bool
	// payloadOffset is cached alongside the key so a second visit to the
	// same record slot (§3.4) skips re-deriving it from key_len.
	payloadOffset int
}

func (*catalogKey) isRecordKey() {}

// compare orders k against a query (parentCNID, name) pair the way the
// catalog B-tree is ordered (§3.3 invariant 7): first by parent_cnid,
// then by the name comparator (§4.7).
func (k *catalogKey) compare(parentCNID uint32, queryName string, queryHash uint32) int {
	if k.parentCNID < parentCNID {
		return -1
	}
	if k.parentCNID > parentCNID {
		return 1
	}
	// The name hash only tells same from different (§4.7), never the
	// order, so compare does not consult it: the sign always comes from
	// the true comparator. findOnLeaf (catalog.go) applies the hash as an
	// equality pre-filter before calling compare.
	return name.Compare(k.name, queryName, k.caseFold)
}

// macRomanDecoder turns classic-HFS MacRoman catalog names into UTF-8
// before they reach the shared name comparator (§4.6 "Catalog HFS").
var macRomanDecoder = charmap.MacintoshRoman.NewDecoder()

// decodeCatalogKey decodes a catalog key record starting at rec[0],
// returning the key and the byte offset (within rec) at which the
// record's payload begins.
func decodeCatalogKey(rec []byte, enc Encoding, caseFold bool) (*catalogKey, int, error) {
	if enc == EncodingHFS {
		return decodeCatalogKeyHFS(rec, caseFold)
	}
	return decodeCatalogKeyHFSPlus(rec, caseFold)
}

func decodeCatalogKeyHFS(rec []byte, caseFold bool) (*catalogKey, int, error) {
	if len(rec) < 7 {
		return nil, 0, errMalformed("decodeCatalogKeyHFS", errBadKeyLength)
	}
	keyLen := int(rec[0])
	dataSize := 1 + keyLen
	if dataSize > len(rec) {
		return nil, 0, errMalformed("decodeCatalogKeyHFS", errBadKeyLength)
	}
	parentCNID := binary.BigEndian.Uint32(rec[2:6])
	nameLen := int(rec[6])
	if 7+nameLen > len(rec) || 7+nameLen > dataSize {
		return nil, 0, errMalformed("decodeCatalogKeyHFS", errBadKeyLength)
	}
	decoded, err := macRomanDecoder.Bytes(rec[7 : 7+nameLen])
	if err != nil {
		return nil, 0, errMalformed("decodeCatalogKeyHFS", err)
	}
	nameStr := string(decoded)

	payloadOffset := dataSize
	if payloadOffset%2 != 0 {
		// §3.1: an index-node leaf record may carry one alignment byte
		// after the name to round the key to an even length.
		payloadOffset++
	}

	return &catalogKey{
		parentCNID:    parentCNID,
		name:          nameStr,
		nameHash:      name.Hash(nameStr, caseFold),
		caseFold:      caseFold,
		payloadOffset: payloadOffset,
	}, payloadOffset, nil
}

func decodeCatalogKeyHFSPlus(rec []byte, caseFold bool) (*catalogKey, int, error) {
	if len(rec) < 8 {
		return nil, 0, errMalformed("decodeCatalogKeyHFSPlus", errBadKeyLength)
	}
	keyLen := int(binary.BigEndian.Uint16(rec[0:2]))
	dataSize := 2 + keyLen
	if dataSize > len(rec) {
		return nil, 0, errMalformed("decodeCatalogKeyHFSPlus", errBadKeyLength)
	}
	parentCNID := binary.BigEndian.Uint32(rec[2:6])
	nameLen := int(binary.BigEndian.Uint16(rec[6:8]))
	nameEnd := 8 + 2*nameLen
	if nameEnd > len(rec) || nameEnd > dataSize {
		return nil, 0, errMalformed("decodeCatalogKeyHFSPlus", errBadKeyLength)
	}

	units := make([]uint16, nameLen)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(rec[8+2*i:])
	}
	nameStr := string(utf16.Decode(units))

	return &catalogKey{
		parentCNID:    parentCNID,
		name:          nameStr,
		nameHash:      name.Hash(nameStr, caseFold),
		caseFold:      caseFold,
		payloadOffset: dataSize,
	}, dataSize, nil
}

// extentsKey is the decoded form of an extents-overflow B-tree key
// (§4.6 "Extents-overflow key"): which fork of which CNID, starting at
// which logical allocation block.
type extentsKey struct {
	cnid       uint32
	forkKind   ForkKind
	startBlock uint32
	dataSize   int
}

func (*extentsKey) isRecordKey() {}

func (k *extentsKey) compare(cnid uint32, forkKind ForkKind, startBlock uint32) int {
	if k.cnid != cnid {
		if k.cnid < cnid {
			return -1
		}
		return 1
	}
	if k.forkKind != forkKind {
		if k.forkKind < forkKind {
			return -1
		}
		return 1
	}
	if k.startBlock != startBlock {
		if k.startBlock < startBlock {
			return -1
		}
		return 1
	}
	return 0
}

func decodeExtentsKey(rec []byte, enc Encoding) (*extentsKey, int, error) {
	if enc == EncodingHFS {
		if len(rec) < 11 {
			return nil, 0, errMalformed("decodeExtentsKey", errBadKeyLength)
		}
		keyLen := int(rec[0])
		dataSize := 1 + keyLen
		if dataSize > len(rec) || dataSize < 11 {
			return nil, 0, errMalformed("decodeExtentsKey", errBadKeyLength)
		}
		return &extentsKey{
			forkKind:   ForkKind(rec[1]),
			cnid:       binary.BigEndian.Uint32(rec[3:7]),
			startBlock: binary.BigEndian.Uint32(rec[7:11]),
			dataSize:   dataSize,
		}, dataSize, nil
	}

	if len(rec) < 12 {
		return nil, 0, errMalformed("decodeExtentsKey", errBadKeyLength)
	}
	keyLen := int(binary.BigEndian.Uint16(rec[0:2]))
	dataSize := 2 + keyLen
	if dataSize > len(rec) || dataSize < 12 {
		return nil, 0, errMalformed("decodeExtentsKey", errBadKeyLength)
	}
	return &extentsKey{
		forkKind:   ForkKind(rec[2]),
		cnid:       binary.BigEndian.Uint32(rec[4:8]),
		startBlock: binary.BigEndian.Uint32(rec[8:12]),
		dataSize:   dataSize,
	}, dataSize, nil
}

// attributesKey is the decoded form of an attributes B-tree key (§4.6
// "Attributes key"). There is no classic-HFS variant: HFS has no
// attributes B-tree, so this decoder always uses HFS+ field widths.
//
// Grounded on libfshfs_attributes_btree_file.h; no teacher analogue.
type attributesKey struct {
	cnid       uint32
	startBlock uint32
	name       string
	dataSize   int
}

func (*attributesKey) isRecordKey() {}

func (k *attributesKey) compare(cnid uint32, queryName string, startBlock uint32, caseFold bool) int {
	if k.cnid != cnid {
		if k.cnid < cnid {
			return -1
		}
		return 1
	}
	if c := name.Compare(k.name, queryName, caseFold); c != 0 {
		return c
	}
	if k.startBlock != startBlock {
		if k.startBlock < startBlock {
			return -1
		}
		return 1
	}
	return 0
}

func decodeAttributesKey(rec []byte) (*attributesKey, int, error) {
	if len(rec) < 14 {
		return nil, 0, errMalformed("decodeAttributesKey", errBadKeyLength)
	}
	keyLen := int(binary.BigEndian.Uint16(rec[0:2]))
	dataSize := 2 + keyLen
	if dataSize > len(rec) || dataSize < 14 {
		return nil, 0, errMalformed("decodeAttributesKey", errBadKeyLength)
	}
	cnid := binary.BigEndian.Uint32(rec[4:8])
	startBlock := binary.BigEndian.Uint32(rec[8:12])
	nameLen := int(binary.BigEndian.Uint16(rec[12:14]))
	nameEnd := 14 + 2*nameLen
	if nameEnd > len(rec) || nameEnd > dataSize {
		return nil, 0, errMalformed("decodeAttributesKey", errBadKeyLength)
	}

	units := make([]uint16, nameLen)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(rec[14+2*i:])
	}

	return &attributesKey{
		cnid:       cnid,
		startBlock: startBlock,
		name:       string(utf16.Decode(units)),
		dataSize:   dataSize,
	}, dataSize, nil
}
