package hfsplus

import (
	"context"
	"encoding/binary"
	"unicode/utf16"

	"github.com/elliotnunn/hfsplus/internal/name"
)

// parseRecordTag normalizes a leaf record's first two payload bytes
// (§3.1 "Record type tag") to a RecordType, independent of whether the
// volume is classic HFS or HFS+.
func parseRecordTag(tag uint16, enc Encoding) RecordType {
	if enc == EncodingHFSPlus {
		switch tag {
		case 0x0001:
			return RecordDirectory
		case 0x0002:
			return RecordFile
		case 0x0003:
			return RecordDirectoryThread
		case 0x0004:
			return RecordFileThread
		}
		return RecordInvalid
	}
	switch tag {
	case 0x0100:
		return RecordDirectory
	case 0x0200:
		return RecordFile
	case 0x0300:
		return RecordDirectoryThread
	case 0x0400:
		return RecordFileThread
	}
	return RecordInvalid
}

// catalogRecordCNID reads the entry's own CNID out of a directory or
// file record body. HFS+'s CatalogFolder/CatalogFile records agree on
// the offset (8); classic HFS's CatalogFolder and CatalogFile records
// don't, because HFSCatalogFile splits its flags field into two one-byte
// fields where HFSCatalogFolder has a two-byte valence.
func catalogRecordCNID(body []byte, rt RecordType, enc Encoding) (uint32, error) {
	if enc == EncodingHFSPlus {
		if len(body) < 12 {
			return 0, errMalformed("catalogRecordCNID", errBadRecordType)
		}
		return binary.BigEndian.Uint32(body[8:12]), nil
	}
	switch rt {
	case RecordDirectory:
		if len(body) < 10 {
			return 0, errMalformed("catalogRecordCNID", errBadRecordType)
		}
		return binary.BigEndian.Uint32(body[6:10]), nil
	case RecordFile:
		if len(body) < 8 {
			return 0, errMalformed("catalogRecordCNID", errBadRecordType)
		}
		return binary.BigEndian.Uint32(body[4:8]), nil
	default:
		return 0, errMalformed("catalogRecordCNID", errBadRecordType)
	}
}

// parseThreadRecord decodes a directory-thread or file-thread record
// payload into the (parent_cnid, name) pair it names (§3.1 "Thread
// record").
func parseThreadRecord(body []byte, enc Encoding) (parentCNID uint32, entryName string, err error) {
	if enc == EncodingHFSPlus {
		if len(body) < 10 {
			return 0, "", errMalformed("parseThreadRecord", errBadRecordType)
		}
		parentCNID = binary.BigEndian.Uint32(body[4:8])
		nameLen := int(binary.BigEndian.Uint16(body[8:10]))
		end := 10 + 2*nameLen
		if end > len(body) {
			return 0, "", errMalformed("parseThreadRecord", errBadKeyLength)
		}
		units := make([]uint16, nameLen)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(body[10+2*i:])
		}
		return parentCNID, string(utf16.Decode(units)), nil
	}

	if len(body) < 15 {
		return 0, "", errMalformed("parseThreadRecord", errBadRecordType)
	}
	parentCNID = binary.BigEndian.Uint32(body[10:14])
	nameLen := int(body[14])
	if 15+nameLen > len(body) {
		return 0, "", errMalformed("parseThreadRecord", errBadKeyLength)
	}
	decoded, derr := macRomanDecoder.Bytes(body[15 : 15+nameLen])
	if derr != nil {
		return 0, "", errMalformed("parseThreadRecord", derr)
	}
	return parentCNID, string(decoded), nil
}

// splitPath breaks a '/'-separated path into non-empty segments (§4.7
// "Separator handling"): a leading, trailing, or doubled separator
// contributes no empty segment.
func splitPath(path string) []string {
	var segments []string
	start := 0
	for i, r := range path {
		if r == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}

// catalogTree answers the three primitive catalog queries and the
// directory enumeration (Q1-Q4) of §4.8 against a single catalog B-tree
// reader.
//
// Grounded on internal/hfs/hfs.go's catalog walk (which builds eager
// entryof/childrenof maps and explicitly skips thread records,
// `default: continue`), generalized into an on-demand, depth-bounded
// descent that both uses thread records (for CNID lookup, Q1) and
// exploits the B-tree's sort order (for name lookup and enumeration,
// Q2/Q4) instead of scanning every leaf up front.
type catalogTree struct {
	reader   *btreeReader
	enc      Encoding
	caseFold bool
}

func newCatalogTree(reader *btreeReader, enc Encoding, caseFold bool) *catalogTree {
	return &catalogTree{reader: reader, enc: enc, caseFold: caseFold}
}

// descendTarget is the (parent_cnid, name) pair a single descent homes
// in on; name_len == 0 encodes a thread-record lookup (invariant 8).
type descendTarget struct {
	parentCNID uint32
	name       string
	nameHash   uint32
}

func newDescendTarget(parentCNID uint32, entryName string, caseFold bool) descendTarget {
	return descendTarget{parentCNID: parentCNID, name: entryName, nameHash: name.Hash(entryName, caseFold)}
}

// descendToLeaf walks from the root to the leaf that would contain
// target, following §4.8's state machine: at each index node, pick the
// last record whose key is ≤ target (ties favour the right child).
func (c *catalogTree) descendToLeaf(ctx context.Context, target descendTarget) (*node, error) {
	nd, err := c.reader.getRoot()
	if err != nil {
		return nil, err
	}

	for level := uint8(0); ; level++ {
		if err := ctx.Err(); err != nil {
			return nil, errAborted("catalogTree.descendToLeaf")
		}
		if int(level) >= c.reader.depthLimit() {
			return nil, errDepthExceeded("catalogTree.descendToLeaf")
		}
		if nd.isLeaf() {
			return nd, nil
		}
		if !nd.isIndex() {
			return nil, errMalformed("catalogTree.descendToLeaf", errBadRecordType)
		}

		chosen := -1
		for i := range nd.records {
			key, err := nd.catalogKeyAt(i, c.enc, c.caseFold)
			if err != nil {
				return nil, err
			}
			if key.compare(target.parentCNID, target.name, target.nameHash) <= 0 {
				chosen = i
			} else {
				break
			}
		}
		if chosen == -1 {
			chosen = 0
		}
		if len(nd.records) == 0 {
			return nil, errMalformed("catalogTree.descendToLeaf", errBadOffsetTable)
		}

		key, err := nd.catalogKeyAt(chosen, c.enc, c.caseFold)
		if err != nil {
			return nil, err
		}
		childNum, err := indexChildAt(nd.recordBytes(chosen), key.payloadOffset)
		if err != nil {
			return nil, err
		}
		nd, err = c.reader.getChild(level, childNum)
		if err != nil {
			return nil, err
		}
	}
}

// findOnLeaf scans forward from leaf for a record matching target,
// following next-node sibling links if the leaf runs out of records. It
// returns (node, index, true) on an exact match, or (nil, 0, false) once
// keys provably exceed target (early exit, §4.8 Q2).
func (c *catalogTree) findOnLeaf(leaf *node, target descendTarget) (*node, int, bool, error) {
	nd := leaf
	for {
		for i := range nd.records {
			key, err := nd.catalogKeyAt(i, c.enc, c.caseFold)
			if err != nil {
				return nil, 0, false, err
			}
			if key.parentCNID == target.parentCNID && key.nameHash != target.nameHash {
				// Names whose hashes differ cannot compare equal (§4.7,
				// P4), so the full name comparison is skipped.
				continue
			}
			cmp := key.compare(target.parentCNID, target.name, target.nameHash)
			if cmp == 0 {
				return nd, i, true, nil
			}
			if cmp > 0 {
				return nil, 0, false, nil
			}
		}
		if nd.descriptor.next == 0 {
			return nil, 0, false, nil
		}
		next, err := c.reader.fetch(nd.descriptor.level, nd.descriptor.next)
		if err != nil {
			return nil, 0, false, err
		}
		nd = next
	}
}

// lookupName is Q2: a single descent keyed by (parent, name).
func (c *catalogTree) lookupName(ctx context.Context, parent uint32, entryName string) (DirectoryEntry, bool, error) {
	target := newDescendTarget(parent, entryName, c.caseFold)
	leaf, err := c.descendToLeaf(ctx, target)
	if err != nil {
		return DirectoryEntry{}, false, err
	}
	nd, idx, ok, err := c.findOnLeaf(leaf, target)
	if err != nil || !ok {
		return DirectoryEntry{}, false, err
	}
	return c.decodeLeafEntry(nd, idx)
}

// decodeLeafEntry renders leaf record idx of nd as a DirectoryEntry,
// rejecting thread records (callers that want a thread record use
// lookupThread instead).
func (c *catalogTree) decodeLeafEntry(nd *node, idx int) (DirectoryEntry, bool, error) {
	key, err := nd.catalogKeyAt(idx, c.enc, c.caseFold)
	if err != nil {
		return DirectoryEntry{}, false, err
	}
	rec := nd.recordBytes(idx)
	payload := rec[key.payloadOffset:]
	if len(payload) < 2 {
		return DirectoryEntry{}, false, errMalformed("catalogTree.decodeLeafEntry", errBadRecordType)
	}
	rt := parseRecordTag(binary.BigEndian.Uint16(payload[0:2]), c.enc)
	if rt != RecordDirectory && rt != RecordFile {
		return DirectoryEntry{}, false, errMalformed("catalogTree.decodeLeafEntry", errBadRecordType)
	}
	cnid, err := catalogRecordCNID(payload, rt, c.enc)
	if err != nil {
		return DirectoryEntry{}, false, err
	}
	return DirectoryEntry{
		ParentCNID: key.parentCNID,
		Name:       key.name,
		CNID:       cnid,
		Type:       rt,
		Body:       payload,
	}, true, nil
}

// lookupThread finds the thread record keyed by (cnid, name_len=0) and
// returns the (parent_cnid, name) it names — Q1 phase A.
func (c *catalogTree) lookupThread(ctx context.Context, cnid uint32) (uint32, string, bool, error) {
	target := newDescendTarget(cnid, "", c.caseFold)
	leaf, err := c.descendToLeaf(ctx, target)
	if err != nil {
		return 0, "", false, err
	}
	nd, idx, ok, err := c.findOnLeaf(leaf, target)
	if err != nil || !ok {
		return 0, "", false, err
	}
	key, err := nd.catalogKeyAt(idx, c.enc, c.caseFold)
	if err != nil {
		return 0, "", false, err
	}
	rec := nd.recordBytes(idx)
	payload := rec[key.payloadOffset:]
	if len(payload) < 2 {
		return 0, "", false, errMalformed("catalogTree.lookupThread", errBadRecordType)
	}
	rt := parseRecordTag(binary.BigEndian.Uint16(payload[0:2]), c.enc)
	if !rt.isThread() {
		return 0, "", false, errMalformed("catalogTree.lookupThread", errBadRecordType)
	}
	parentCNID, threadName, err := parseThreadRecord(payload, c.enc)
	if err != nil {
		return 0, "", false, err
	}
	return parentCNID, threadName, true, nil
}

// lookupCNID is Q1: phase A resolves cnid to (parent, name) via its
// thread record, phase B looks up that (parent, name) pair as an
// ordinary entry.
func (c *catalogTree) lookupCNID(ctx context.Context, cnid uint32) (DirectoryEntry, bool, error) {
	parentCNID, entryName, ok, err := c.lookupThread(ctx, cnid)
	if err != nil || !ok {
		return DirectoryEntry{}, false, err
	}
	return c.lookupName(ctx, parentCNID, entryName)
}

// lookupPath is Q3: repeated Q2 starting from the root CNID (2),
// splitting on '/' and skipping empty segments.
func (c *catalogTree) lookupPath(ctx context.Context, path string) (DirectoryEntry, bool, error) {
	const rootCNID = 2
	segments := splitPath(path)
	if len(segments) == 0 {
		return c.lookupCNID(ctx, rootCNID)
	}

	current := uint32(rootCNID)
	var entry DirectoryEntry
	for _, seg := range segments {
		var ok bool
		var err error
		entry, ok, err = c.lookupName(ctx, current, seg)
		if err != nil {
			return DirectoryEntry{}, false, err
		}
		if !ok {
			return DirectoryEntry{}, false, nil
		}
		current = entry.CNID
	}
	return entry, true, nil
}

// listDirectory is Q4: descend into the sub-range {parent_cnid == P},
// collecting directory and file records and skipping thread records.
func (c *catalogTree) listDirectory(ctx context.Context, parent uint32) ([]DirectoryEntry, error) {
	target := newDescendTarget(parent, "", c.caseFold)
	leaf, err := c.descendToLeaf(ctx, target)
	if err != nil {
		return nil, err
	}

	var entries []DirectoryEntry
	nd := leaf
	for {
		if err := ctx.Err(); err != nil {
			return nil, errAborted("catalogTree.listDirectory")
		}
		for i := range nd.records {
			key, err := nd.catalogKeyAt(i, c.enc, c.caseFold)
			if err != nil {
				return nil, err
			}
			if key.parentCNID < parent {
				continue
			}
			if key.parentCNID > parent {
				return entries, nil
			}
			if key.name == "" {
				continue // thread-to-parent sentinel, invariant 8
			}
			entry, ok, err := c.decodeLeafEntry(nd, i)
			if err != nil {
				return nil, err
			}
			if ok {
				entries = append(entries, entry)
			}
		}
		if nd.descriptor.next == 0 {
			return entries, nil
		}
		next, err := c.reader.fetch(nd.descriptor.level, nd.descriptor.next)
		if err != nil {
			return nil, err
		}
		nd = next
	}
}
