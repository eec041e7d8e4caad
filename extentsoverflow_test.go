package hfsplus

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extentsOverflowKeyBytesHFSPlus(cnid uint32, fork ForkKind, startBlock uint32) []byte {
	buf := make([]byte, 2+10)
	binary.BigEndian.PutUint16(buf[0:2], 10)
	buf[2] = byte(fork)
	binary.BigEndian.PutUint32(buf[4:8], cnid)
	binary.BigEndian.PutUint32(buf[8:12], startBlock)
	return buf
}

func extentsOverflowRecordPayloadHFSPlus(descriptors ...Extent) []byte {
	buf := make([]byte, 8*8)
	for i, e := range descriptors {
		binary.BigEndian.PutUint32(buf[8*i:8*i+4], e.StartBlock)
		binary.BigEndian.PutUint32(buf[8*i+4:8*i+8], e.BlockCount)
	}
	return buf
}

func buildSingleLeafExtentsOverflowTree(t *testing.T) *extentsOverflowTree {
	t.Helper()
	const nodeSize = 512
	rec := append(extentsOverflowKeyBytesHFSPlus(5, ForkData, 8),
		extentsOverflowRecordPayloadHFSPlus(Extent{StartBlock: 200, BlockCount: 4})...)
	leaf := buildNode(nodeTypeLeaf, 0, 0, 0, nodeSize, [][]byte{rec})
	header := headerNode(nodeSize, 1, 1, 1, 1, 2)
	image := &memImage{data: append(append([]byte{}, header...), leaf...)}

	reader, err := openBTree(image, 512, ForkDescriptor{}, []Extent{{StartBlock: 0, BlockCount: 2}})
	require.NoError(t, err)
	return newExtentsOverflowTree(reader, EncodingHFSPlus)
}

func TestExtentsForReturnsChainedExtentsUntilTotalReached(t *testing.T) {
	et := buildSingleLeafExtentsOverflowTree(t)
	extents, err := et.extentsFor(context.Background(), 5, ForkData, 8, 4)
	require.NoError(t, err)
	require.Len(t, extents, 1)
	assert.EqualValues(t, 200, extents[0].StartBlock)
	assert.EqualValues(t, 4, extents[0].BlockCount)
}

func TestExtentsForStopsAtDifferentCNID(t *testing.T) {
	et := buildSingleLeafExtentsOverflowTree(t)
	extents, err := et.extentsFor(context.Background(), 9, ForkData, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, extents)
}

func TestDecodeExtentRecordPayloadHFSPlusReadsEightDescriptors(t *testing.T) {
	payload := extentsOverflowRecordPayloadHFSPlus(
		Extent{StartBlock: 1, BlockCount: 2},
		Extent{StartBlock: 3, BlockCount: 4},
	)
	out, err := decodeExtentRecordPayload(payload, EncodingHFSPlus)
	require.NoError(t, err)
	require.Len(t, out, 8)
	assert.Equal(t, Extent{StartBlock: 1, BlockCount: 2}, out[0])
	assert.Equal(t, Extent{StartBlock: 3, BlockCount: 4}, out[1])
	assert.Equal(t, Extent{}, out[2])
}

func TestDecodeExtentRecordPayloadHFSReadsThreeDescriptors(t *testing.T) {
	payload := make([]byte, 4*3)
	binary.BigEndian.PutUint16(payload[0:2], 10)
	binary.BigEndian.PutUint16(payload[2:4], 20)
	out, err := decodeExtentRecordPayload(payload, EncodingHFS)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.EqualValues(t, 10, out[0].StartBlock)
	assert.EqualValues(t, 20, out[0].BlockCount)
}

func TestDecodeExtentRecordPayloadRejectsShortPayload(t *testing.T) {
	_, err := decodeExtentRecordPayload(make([]byte, 4), EncodingHFSPlus)
	require.Error(t, err)
	assert.Equal(t, KindMalformed, KindOf(err))
}
