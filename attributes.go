package hfsplus

import (
	"context"
	"encoding/binary"
)

// Attribute record type tags (HFS+ "kHFSPlusAttr*" constants); no
// classic-HFS variant exists (§3.2 ADDED note).
const (
	attrRecordInlineData uint32 = 0x10
	attrRecordForkData   uint32 = 0x20
	attrRecordExtents    uint32 = 0x30
)

// attributesTree answers §4.10's query: every named extended-attribute
// record for a CNID, ordered the way the attributes key orders them
// (CNID ascending, then name, §4.6 "Attributes key").
//
// Grounded on libfshfs_attributes_btree_file.h; the teacher has no
// analogue (classic HFS carries no attributes B-tree at all), so the
// descent/scan shape is borrowed from catalogTree/extentsOverflowTree
// instead, which both already generalize the teacher's record-offset
// and sibling-chain handling.
type attributesTree struct {
	reader *btreeReader
}

func newAttributesTree(reader *btreeReader) *attributesTree {
	return &attributesTree{reader: reader}
}

func (t *attributesTree) descendToLeaf(ctx context.Context, cnid uint32, caseFold bool) (*node, error) {
	nd, err := t.reader.getRoot()
	if err != nil {
		return nil, err
	}

	for level := uint8(0); ; level++ {
		if err := ctx.Err(); err != nil {
			return nil, errAborted("attributesTree.descendToLeaf")
		}
		if int(level) >= t.reader.depthLimit() {
			return nil, errDepthExceeded("attributesTree.descendToLeaf")
		}
		if nd.isLeaf() {
			return nd, nil
		}
		if !nd.isIndex() {
			return nil, errMalformed("attributesTree.descendToLeaf", errBadRecordType)
		}

		chosen := -1
		for i := range nd.records {
			key, err := nd.attributesKeyAt(i)
			if err != nil {
				return nil, err
			}
			if key.compare(cnid, "", 0, caseFold) <= 0 {
				chosen = i
			} else {
				break
			}
		}
		if chosen == -1 {
			chosen = 0
		}
		if len(nd.records) == 0 {
			return nil, errMalformed("attributesTree.descendToLeaf", errBadOffsetTable)
		}

		key, err := nd.attributesKeyAt(chosen)
		if err != nil {
			return nil, err
		}
		childNum, err := indexChildAt(nd.recordBytes(chosen), key.dataSize)
		if err != nil {
			return nil, err
		}
		nd, err = t.reader.getChild(level, childNum)
		if err != nil {
			return nil, err
		}
	}
}

// attributesFor implements §4.10: collect every attribute record for
// cnid, distinguishing inline-data records from fork-data/extents
// records (§3.2 ADDED note) without decoding either payload further.
func (t *attributesTree) attributesFor(ctx context.Context, cnid uint32, caseFold bool) ([]AttributeRecord, error) {
	leaf, err := t.descendToLeaf(ctx, cnid, caseFold)
	if err != nil {
		return nil, err
	}

	var out []AttributeRecord
	nd := leaf
	for {
		if err := ctx.Err(); err != nil {
			return nil, errAborted("attributesTree.attributesFor")
		}
		for i := range nd.records {
			key, err := nd.attributesKeyAt(i)
			if err != nil {
				return nil, err
			}
			if key.cnid < cnid {
				continue
			}
			if key.cnid > cnid {
				return out, nil
			}
			rec := nd.recordBytes(i)
			payload := rec[key.dataSize:]
			if len(payload) < 4 {
				return nil, errMalformed("attributesTree.attributesFor", errBadRecordType)
			}
			recordType := binary.BigEndian.Uint32(payload[0:4])
			kind, err := attributeKindOf(recordType)
			if err != nil {
				return nil, err
			}
			out = append(out, AttributeRecord{
				CNID: cnid,
				Name: key.name,
				Kind: kind,
				Body: payload,
			})
		}
		if nd.descriptor.next == 0 {
			return out, nil
		}
		next, err := t.reader.fetch(nd.descriptor.level, nd.descriptor.next)
		if err != nil {
			return nil, err
		}
		nd = next
	}
}

func attributeKindOf(recordType uint32) (AttributeKind, error) {
	switch recordType {
	case attrRecordInlineData:
		return AttributeInline, nil
	case attrRecordForkData, attrRecordExtents:
		return AttributeForked, nil
	default:
		return 0, errMalformed("attributeKindOf", errBadRecordType)
	}
}
