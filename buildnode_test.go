package hfsplus

import (
	"encoding/binary"
	"unicode/utf16"
)

// buildNode assembles a raw node buffer from a descriptor and a list of
// already-encoded records, writing the record-offset table per §3.1:
// one u16 per record (reversed) plus a trailing free-space-boundary
// entry.
func buildNode(kind nodeType, level uint8, next, prev uint32, nodeSize int, records [][]byte) []byte {
	buf := make([]byte, nodeSize)
	binary.BigEndian.PutUint32(buf[0:4], next)
	binary.BigEndian.PutUint32(buf[4:8], prev)
	buf[8] = byte(kind)
	buf[9] = level
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(records)))

	offset := 14
	starts := make([]int, len(records))
	for i, r := range records {
		starts[i] = offset
		copy(buf[offset:offset+len(r)], r)
		offset += len(r)
	}

	for i := range records {
		pos := nodeSize - 2*(i+1)
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(starts[i]))
	}
	boundaryPos := nodeSize - 2*(len(records)+1)
	binary.BigEndian.PutUint16(buf[boundaryPos:boundaryPos+2], uint16(offset))
	return buf
}

func utf16be(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.BigEndian.PutUint16(out[2*i:], u)
	}
	return out
}

// catalogKeyBytesHFSPlus builds an on-disk HFS+ catalog key (§4.6).
func catalogKeyBytesHFSPlus(parentCNID uint32, name string) []byte {
	nameBytes := utf16be(name)
	nameLen := len(nameBytes) / 2
	dataSize := 2 + 6 + len(nameBytes)
	buf := make([]byte, dataSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(dataSize-2))
	binary.BigEndian.PutUint32(buf[2:6], parentCNID)
	binary.BigEndian.PutUint16(buf[6:8], uint16(nameLen))
	copy(buf[8:], nameBytes)
	return buf
}

// catalogRecordHFSPlus builds a full leaf record: key bytes followed by
// an arbitrary payload.
func catalogRecordHFSPlus(parentCNID uint32, name string, payload []byte) []byte {
	return append(catalogKeyBytesHFSPlus(parentCNID, name), payload...)
}

// threadPayloadHFSPlus builds a directory-thread or file-thread record
// payload (§3.1 "Thread record").
func threadPayloadHFSPlus(recordType uint16, parentCNID uint32, name string) []byte {
	nameBytes := utf16be(name)
	nameLen := len(nameBytes) / 2
	buf := make([]byte, 10+len(nameBytes))
	binary.BigEndian.PutUint16(buf[0:2], recordType)
	binary.BigEndian.PutUint32(buf[4:8], parentCNID)
	binary.BigEndian.PutUint16(buf[8:10], uint16(nameLen))
	copy(buf[10:], nameBytes)
	return buf
}

// dirRecordPayloadHFSPlus builds a minimal CatalogFolder payload: just
// enough of the fixed-size record for recordType and the folder's own
// CNID to be readable (§3.1).
func dirRecordPayloadHFSPlus(cnid uint32) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint16(buf[0:2], 0x0001)
	binary.BigEndian.PutUint32(buf[8:12], cnid)
	return buf
}

// fileRecordPayloadHFSPlus builds a minimal CatalogFile payload.
func fileRecordPayloadHFSPlus(cnid uint32) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint16(buf[0:2], 0x0002)
	binary.BigEndian.PutUint32(buf[8:12], cnid)
	return buf
}

// indexRecordHFSPlus builds a catalog index-node record: key bytes
// followed by a 4-byte child node number.
func indexRecordHFSPlus(parentCNID uint32, name string, child uint32) []byte {
	rec := catalogKeyBytesHFSPlus(parentCNID, name)
	childBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(childBytes, child)
	return append(rec, childBytes...)
}

// headerNode builds node 0 of a B-tree: the descriptor plus the header
// record (§3.1).
func headerNode(nodeSize int, depth uint16, rootNode, firstLeaf, lastLeaf, nodeCount uint32) []byte {
	buf := make([]byte, nodeSize)
	binary.BigEndian.PutUint32(buf[0:4], 0)
	binary.BigEndian.PutUint32(buf[4:8], 0)
	buf[8] = byte(nodeTypeHeader)
	buf[9] = 0
	binary.BigEndian.PutUint16(buf[10:12], 1)

	rec := buf[14:]
	binary.BigEndian.PutUint16(rec[0:2], depth)
	binary.BigEndian.PutUint32(rec[2:6], rootNode)
	binary.BigEndian.PutUint32(rec[10:14], firstLeaf)
	binary.BigEndian.PutUint32(rec[14:18], lastLeaf)
	binary.BigEndian.PutUint16(rec[18:20], uint16(nodeSize))
	binary.BigEndian.PutUint32(rec[22:26], nodeCount)
	return buf
}
