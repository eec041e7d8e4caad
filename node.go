package hfsplus

import "encoding/binary"

// nodeType is the on-disk node_type byte of the 14-byte node descriptor
// (§3.1).
type nodeType int8

const (
	nodeTypeLeaf   nodeType = -1
	nodeTypeIndex  nodeType = 0
	nodeTypeHeader nodeType = 1
	nodeTypeMap    nodeType = 2
)

// nodeDescriptor is the 14-byte header present at offset 0 of every
// node.
type nodeDescriptor struct {
	next        uint32
	prev        uint32
	kind        nodeType
	level       uint8
	recordCount uint16
}

func parseNodeDescriptor(raw []byte) (nodeDescriptor, error) {
	if len(raw) < 14 {
		return nodeDescriptor{}, errMalformed("parseNodeDescriptor", errBadDescriptor)
	}
	d := nodeDescriptor{
		next:        binary.BigEndian.Uint32(raw[0:]),
		prev:        binary.BigEndian.Uint32(raw[4:]),
		kind:        nodeType(int8(raw[8])),
		level:       raw[9],
		recordCount: binary.BigEndian.Uint16(raw[10:]),
	}
	if d.level > 8 {
		return nodeDescriptor{}, errMalformed("parseNodeDescriptor", errBadDescriptor)
	}
	return d, nil
}

// recordSlot is one record of a decoded node: its byte range within the
// node, plus a lazily-decoded, cached key (§4.4, §3.4).
//
// Grounded on internal/hfs/btree.go's parseBNode (which returns raw
// [][]byte slices with no lazy-key slot at all, since classic-HFS-only
// parsing never needed one) and on the DESIGN NOTES "Lazy key value
// with destructor callback": this tagged interface plus plain struct
// field replaces the source's per-slot function-pointer destructor,
// since Go's garbage collector reclaims a decoded key the moment its
// owning node is evicted.
type recordSlot struct {
	offset int
	end    int // next offset-table entry (next record or free-space boundary); key decoders find the key's size from key_len
	key    recordKey
}

func (s recordSlot) bytes(raw []byte) []byte {
	return raw[s.offset:s.end]
}

// recordKey is implemented by catalogKey, extentsKey, and attributesKey
// (keys.go).
type recordKey interface {
	isRecordKey()
}

// node is a fully decoded B-tree node: its descriptor, the raw backing
// bytes, and a record-offset table validated against invariant 3.2/3.3.
//
// Grounded on internal/hfs/btree.go's parseBNode, generalized to an
// arbitrary node_size instead of a fixed 512 bytes, and to surface
// errors (Malformed) instead of returning a bare error string, per §7.
type node struct {
	descriptor nodeDescriptor
	raw        []byte
	records    []recordSlot
}

func decodeNode(raw []byte) (*node, error) {
	nodeSize := uint32(len(raw))
	desc, err := parseNodeDescriptor(raw)
	if err != nil {
		return nil, err
	}

	cnt := desc.recordCount
	tableSize := 2 * (uint32(cnt) + 1)
	if uint32(cnt)+1 > nodeSize/2 {
		// invariant 3.3: record_count+1 <= node_size/2
		return nil, errMalformed("decodeNode", errBadOffsetTable)
	}

	lowLimit := uint32(14)
	highLimit := nodeSize - tableSize
	records := make([]recordSlot, 0, cnt)
	seenOffsets := make(map[uint32]bool, cnt)

	for i := uint32(0); i < uint32(cnt); i++ {
		// Offsets are stored at the tail, in reverse, one u16 per
		// record plus the trailing free-space-boundary entry (§3.1).
		start := binary.BigEndian.Uint16(raw[nodeSize-2-2*i:])
		end := binary.BigEndian.Uint16(raw[nodeSize-4-2*i:])

		if uint32(start) < lowLimit || uint32(start) > uint32(end) || uint32(end) > highLimit {
			return nil, errMalformed("decodeNode", errBadOffsetTable)
		}
		if seenOffsets[uint32(start)] {
			return nil, errMalformed("decodeNode", errDuplicateOffset)
		}
		seenOffsets[uint32(start)] = true

		records = append(records, recordSlot{offset: int(start), end: int(end)})
		lowLimit = uint32(end)
	}

	return &node{descriptor: desc, raw: raw, records: records}, nil
}

func (n *node) recordBytes(i int) []byte {
	return n.records[i].bytes(n.raw)
}

// catalogKeyAt decodes (or returns the cached decode of) record i's
// catalog key, per the per-slot key cache of §3.4/§4.4.
func (n *node) catalogKeyAt(i int, enc Encoding, caseFold bool) (*catalogKey, error) {
	if k, ok := n.records[i].key.(*catalogKey); ok {
		return k, nil
	}
	key, _, err := decodeCatalogKey(n.recordBytes(i), enc, caseFold)
	if err != nil {
		return nil, err
	}
	n.records[i].key = key
	return key, nil
}

// extentsKeyAt decodes (or returns the cached decode of) record i's
// extents-overflow key.
func (n *node) extentsKeyAt(i int, enc Encoding) (*extentsKey, error) {
	if k, ok := n.records[i].key.(*extentsKey); ok {
		return k, nil
	}
	key, _, err := decodeExtentsKey(n.recordBytes(i), enc)
	if err != nil {
		return nil, err
	}
	n.records[i].key = key
	return key, nil
}

// attributesKeyAt decodes (or returns the cached decode of) record i's
// attributes key.
func (n *node) attributesKeyAt(i int) (*attributesKey, error) {
	if k, ok := n.records[i].key.(*attributesKey); ok {
		return k, nil
	}
	key, _, err := decodeAttributesKey(n.recordBytes(i))
	if err != nil {
		return nil, err
	}
	n.records[i].key = key
	return key, nil
}

// indexChildAt reads the 4-byte child node number following an index
// record's key (§3.1: "an index record's payload is a single u32 child
// node number").
func indexChildAt(rec []byte, payloadOffset int) (uint32, error) {
	if payloadOffset+4 > len(rec) {
		return 0, errMalformed("indexChildAt", errBadRecordType)
	}
	return binary.BigEndian.Uint32(rec[payloadOffset : payloadOffset+4]), nil
}

func (n *node) isLeaf() bool   { return n.descriptor.kind == nodeTypeLeaf }
func (n *node) isIndex() bool  { return n.descriptor.kind == nodeTypeIndex }
func (n *node) isHeader() bool { return n.descriptor.kind == nodeTypeHeader }
