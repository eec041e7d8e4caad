package hfsplus

import (
	"context"
	"encoding/binary"
)

// extentsOverflowTree answers §4.9's single query: given a fork's
// (CNID, fork_kind) and a starting allocation block, collect every
// extent record chained past a fork's first eight inline extents.
//
// Grounded on internal/hfs/hfs.go's chaseOverflow/parseExtentsOverflow,
// generalized from classic HFS's fixed 3-extent records and implicit
// "walk the sibling chain" pattern to the depth-bounded descent shared
// with the catalog tree (§4.5), since an HFS+ extents-overflow B-tree
// can be more than one level deep.
type extentsOverflowTree struct {
	reader *btreeReader
	enc    Encoding
}

func newExtentsOverflowTree(reader *btreeReader, enc Encoding) *extentsOverflowTree {
	return &extentsOverflowTree{reader: reader, enc: enc}
}

// descendToLeaf walks to the leaf that would hold the first extents
// record for (cnid, fork, startBlock), mirroring catalogTree's descent
// but ordered by the extents key (§4.6 "Extents-overflow key").
func (t *extentsOverflowTree) descendToLeaf(ctx context.Context, cnid uint32, fork ForkKind, startBlock uint32) (*node, error) {
	nd, err := t.reader.getRoot()
	if err != nil {
		return nil, err
	}

	for level := uint8(0); ; level++ {
		if err := ctx.Err(); err != nil {
			return nil, errAborted("extentsOverflowTree.descendToLeaf")
		}
		if int(level) >= t.reader.depthLimit() {
			return nil, errDepthExceeded("extentsOverflowTree.descendToLeaf")
		}
		if nd.isLeaf() {
			return nd, nil
		}
		if !nd.isIndex() {
			return nil, errMalformed("extentsOverflowTree.descendToLeaf", errBadRecordType)
		}

		chosen := -1
		for i := range nd.records {
			key, err := nd.extentsKeyAt(i, t.enc)
			if err != nil {
				return nil, err
			}
			if key.compare(cnid, fork, startBlock) <= 0 {
				chosen = i
			} else {
				break
			}
		}
		if chosen == -1 {
			chosen = 0
		}
		if len(nd.records) == 0 {
			return nil, errMalformed("extentsOverflowTree.descendToLeaf", errBadOffsetTable)
		}

		key, err := nd.extentsKeyAt(chosen, t.enc)
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

// extentsFor implements §4.9: collect extent records for (cnid, fork)
// starting at startBlock, stopping when the CNID or fork changes or the
// accumulated block count reaches totalBlocks.
func (t *extentsOverflowTree) extentsFor(ctx context.Context, cnid uint32, fork ForkKind, startBlock, totalBlocks uint32) ([]Extent, error) {
	leaf, err := t.descendToLeaf(ctx, cnid, fork, startBlock)
	if err != nil {
		return nil, err
	}

	var out []Extent
	var accumulated uint32
	nd := leaf
	for {
		if err := ctx.Err(); err != nil {
			return nil, errAborted("extentsOverflowTree.extentsFor")
		}
		for i := range nd.records {
			key, err := nd.extentsKeyAt(i, t.enc)
			if err != nil {
				return nil, err
			}
			if key.compare(cnid, fork, startBlock) < 0 {
				continue
			}
			if key.cnid != cnid || key.forkKind != fork {
				return out, nil
			}
			rec := nd.recordBytes(i)
			extents, err := decodeExtentRecordPayload(rec[key.dataSize:], t.enc)
			if err != nil {
				return nil, err
			}
			for _, e := range extents {
				if accumulated >= totalBlocks || e.BlockCount == 0 {
					continue
				}
				out = append(out, e)
				accumulated += e.BlockCount
			}
			if accumulated >= totalBlocks {
				return out, nil
			}
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

// decodeExtentRecordPayload decodes an extents-overflow leaf record's
// fixed extent-descriptor payload. HFS+ records hold 8 descriptors of
// (u32 start_block, u32 block_count); classic HFS records hold only 3
// descriptors of (u16 start_block, u16 block_count), matching the
// smaller HFSExtentRecord the teacher's parseExtents reads.
func decodeExtentRecordPayload(payload []byte, enc Encoding) ([]Extent, error) {
	if enc == EncodingHFSPlus {
		const n = 8
		if len(payload) < 8*n {
			return nil, errMalformed("decodeExtentRecordPayload", errBadKeyLength)
		}
		out := make([]Extent, n)
		for i := 0; i < n; i++ {
			out[i] = Extent{
				StartBlock: binary.BigEndian.Uint32(payload[8*i : 8*i+4]),
				BlockCount: binary.BigEndian.Uint32(payload[8*i+4 : 8*i+8]),
			}
		}
		return out, nil
	}

	const n = 3
	if len(payload) < 4*n {
		return nil, errMalformed("decodeExtentRecordPayload", errBadKeyLength)
	}
	out := make([]Extent, n)
	for i := 0; i < n; i++ {
		out[i] = Extent{
			StartBlock: uint32(binary.BigEndian.Uint16(payload[4*i : 4*i+2])),
			BlockCount: uint32(binary.BigEndian.Uint16(payload[4*i+2 : 4*i+4])),
		}
	}
	return out, nil
}
