package hfsplus

import (
	"hash/maphash"

	"github.com/dgryski/go-tinylfu"
)

// levelCacheFactor is the "small constant K" of §3.4/§4.3: a deeper
// cache level holds K*(level+1) nodes, mirroring the blockCacheN/
// readerCacheN sizing constants in internal/spinner/spinner.go.
const levelCacheFactor = 4

// maxBTreeDepth is the header-cap of §3.3 invariant 4: levels 0..8.
const maxBTreeDepth = 8

var nodeCacheHashSeed = maphash.MakeSeed()

func hashNodeCacheKey(n uint32) uint64 {
	var h maphash.Hash
	h.SetSeed(nodeCacheHashSeed)
	var b [4]byte
	b[0], b[1], b[2], b[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	h.Write(b[:])
	return h.Sum64()
}

// nodeCache is a fixed array of per-level MRU caches, keyed by node
// number, never shared across B-trees or across levels (§3.3 invariant
// 5, §4.3, C3).
//
// Grounded on internal/spinner/spinner.go's blkCache and
// internal/spinner/concurrent.go's bcache/rcache, both
// tinylfu.New[K, V](size, size*10, hasher, tinylfu.OnEvict(evict))
// instances; generalized from one flat cache to one per B-tree level,
// since §4.3 requires levels to never share a cache slot.
type nodeCache struct {
	levels [maxBTreeDepth + 1]*tinylfu.T[uint32, *node]
}

func newNodeCache() *nodeCache {
	c := &nodeCache{}
	for level := range c.levels {
		capacity := 1
		if level > 0 {
			capacity = levelCacheFactor * (level + 1)
		}
		c.levels[level] = tinylfu.New[uint32, *node](capacity, capacity*10, hashNodeCacheKey,
			tinylfu.OnEvict(func(uint32, *node) {
				// The decoded node (its raw bytes and record slots,
				// including any cached recordKey) becomes unreachable
				// here; Go's garbage collector reclaims it without a
				// destructor callback (DESIGN NOTES "Lazy key value
				// with destructor callback").
			}))
	}
	return c
}

func (c *nodeCache) get(level uint8, n uint32) (*node, bool) {
	if int(level) >= len(c.levels) {
		return nil, false
	}
	return c.levels[level].Get(n)
}

func (c *nodeCache) insert(level uint8, n uint32, nd *node) {
	if int(level) >= len(c.levels) {
		return
	}
	c.levels[level].Add(n, nd)
}
