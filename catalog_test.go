package hfsplus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSingleLeafCatalogTree builds a one-level catalog B-tree (root ==
// leaf) holding a root directory (CNID 2), a file "README.TXT" (CNID
// 5), and a file whose on-disk name is already NFD-decomposed
// ("café", CNID 6), each with matching thread records.
func buildSingleLeafCatalogTree(t *testing.T, caseFold bool) *catalogTree {
	t.Helper()
	const nodeSize = 512
	decomposedCafe := "café"

	records := [][]byte{
		catalogRecordHFSPlus(1, "", dirRecordPayloadHFSPlus(2)),
		catalogRecordHFSPlus(2, "", threadPayloadHFSPlus(0x0003, 1, "")),
		catalogRecordHFSPlus(2, "README.TXT", fileRecordPayloadHFSPlus(5)),
		catalogRecordHFSPlus(2, decomposedCafe, fileRecordPayloadHFSPlus(6)),
		catalogRecordHFSPlus(5, "", threadPayloadHFSPlus(0x0004, 2, "README.TXT")),
		catalogRecordHFSPlus(6, "", threadPayloadHFSPlus(0x0004, 2, decomposedCafe)),
	}
	header := headerNode(nodeSize, 1, 1, 1, 1, 2)
	leaf := buildNode(nodeTypeLeaf, 0, 0, 0, nodeSize, records)
	image := &memImage{data: append(append([]byte{}, header...), leaf...)}

	reader, err := openBTree(image, 512, ForkDescriptor{}, []Extent{{StartBlock: 0, BlockCount: 2}})
	require.NoError(t, err)
	return newCatalogTree(reader, EncodingHFSPlus, caseFold)
}

func TestLookupNameFindsFile(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entry, ok, err := ct.lookupName(context.Background(), 2, "README.TXT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5, entry.CNID)
	assert.Equal(t, RecordFile, entry.Type)
}

func TestLookupNameMissingReturnsNotFound(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	_, ok, err := ct.lookupName(context.Background(), 2, "NOPE.TXT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupNameCaseFoldMatchesDifferentCase(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, true)
	entry, ok, err := ct.lookupName(context.Background(), 2, "readme.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5, entry.CNID)
}

func TestLookupNameWithoutCaseFoldRejectsDifferentCase(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	_, ok, err := ct.lookupName(context.Background(), 2, "readme.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupNameMatchesPrecomposedAgainstDecomposedOnDiskName(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entry, ok, err := ct.lookupName(context.Background(), 2, "café")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 6, entry.CNID)
}

func TestLookupCNIDResolvesThroughThreadRecord(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entry, ok, err := ct.lookupCNID(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "README.TXT", entry.Name)
	assert.EqualValues(t, 2, entry.ParentCNID)
}

func TestLookupPathResolvesRootToRootCNID(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entry, ok, err := ct.lookupPath(context.Background(), "/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, entry.CNID)
}

func TestLookupPathResolvesNestedSegment(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entry, ok, err := ct.lookupPath(context.Background(), "/README.TXT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5, entry.CNID)
}

func TestLookupPathIgnoresDoubledAndTrailingSeparators(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entry, ok, err := ct.lookupPath(context.Background(), "//README.TXT/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5, entry.CNID)
}

func TestListDirectorySkipsThreadRecordsAndStopsAtNextParent(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entries, err := ct.listDirectory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "README.TXT", entries[0].Name)
	assert.Equal(t, "café", entries[1].Name)
}

func TestListDirectoryOfEmptyDirectoryIsEmpty(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	entries, err := ct.listDirectory(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDescendToLeafAbortsOnCancelledContext(t *testing.T) {
	ct := buildSingleLeafCatalogTree(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := ct.lookupName(ctx, 2, "README.TXT")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, KindAborted, KindOf(err))
}

func TestSplitPathHandlesEdgeCases(t *testing.T) {
	assert.Empty(t, splitPath(""))
	assert.Empty(t, splitPath("/"))
	assert.Equal(t, []string{"a", "b"}, splitPath("/a/b/"))
	assert.Equal(t, []string{"a", "b"}, splitPath("a//b"))
}
