package table

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/thara-playground/lightdb/pager"
)

// NodeType tags a page as either a leaf or an internal B+tree node.
type NodeType uint8

const (
	NodeLeaf     NodeType = 0
	NodeInternal NodeType = 1
)

// Every accessor below reads or writes directly through a *pager.Page's
// byte buffer — there is no intermediate decoded struct. spec.md §9
// warns that create_new_root reinitializes the root page in place and
// can invalidate any long-lived decoded view of it; operating on the
// buffer directly makes that hazard impossible to hit by construction.

func NodeTypeOf(p *pager.Page) NodeType {
	return NodeType(p.Data[NodeTypeOffset])
}

func SetNodeType(p *pager.Page, t NodeType) {
	p.Data[NodeTypeOffset] = byte(t)
}

func IsNodeRoot(p *pager.Page) bool {
	return p.Data[IsRootOffset] != 0
}

func SetNodeRoot(p *pager.Page, isRoot bool) {
	if isRoot {
		p.Data[IsRootOffset] = 1
	} else {
		p.Data[IsRootOffset] = 0
	}
}

// --- Leaf node ---

func LeafNumCells(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[LeafNodeNumCellsOffset : LeafNodeNumCellsOffset+LeafNodeNumCellsSize])
}

func SetLeafNumCells(p *pager.Page, n uint32) {
	binary.LittleEndian.PutUint32(p.Data[LeafNodeNumCellsOffset:LeafNodeNumCellsOffset+LeafNodeNumCellsSize], n)
}

// LeafNextLeaf returns the page number of the in-order successor leaf,
// or 0 ("no next") for the rightmost leaf.
func LeafNextLeaf(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[LeafNodeNextLeafOffset : LeafNodeNextLeafOffset+LeafNodeNextLeafSize])
}

func SetLeafNextLeaf(p *pager.Page, pageNum uint32) {
	binary.LittleEndian.PutUint32(p.Data[LeafNodeNextLeafOffset:LeafNodeNextLeafOffset+LeafNodeNextLeafSize], pageNum)
}

func leafCellOffset(cellNum uint32) uint32 {
	return LeafNodeHeaderSize + cellNum*LeafNodeCellSize
}

func LeafKey(p *pager.Page, cellNum uint32) uint32 {
	off := leafCellOffset(cellNum) + LeafNodeKeyOffset
	return binary.LittleEndian.Uint32(p.Data[off : off+LeafNodeKeySize])
}

func SetLeafKey(p *pager.Page, cellNum, key uint32) {
	off := leafCellOffset(cellNum) + LeafNodeKeyOffset
	binary.LittleEndian.PutUint32(p.Data[off:off+LeafNodeKeySize], key)
}

// LeafValue returns the RowSize-byte region holding cellNum's serialized
// row, as a slice directly into the page buffer.
func LeafValue(p *pager.Page, cellNum uint32) []byte {
	off := leafCellOffset(cellNum) + LeafNodeValueOffset
	return p.Data[off : off+LeafNodeValueSize]
}

// CopyLeafCell copies the entire [key|value] cell from srcCell (in src)
// to dstCell (in dst). src and dst may be the same page.
func CopyLeafCell(dst *pager.Page, dstCell uint32, src *pager.Page, srcCell uint32) {
	dOff := leafCellOffset(dstCell)
	sOff := leafCellOffset(srcCell)
	copy(dst.Data[dOff:dOff+LeafNodeCellSize], src.Data[sOff:sOff+LeafNodeCellSize])
}

func InitializeLeafNode(p *pager.Page) {
	SetNodeType(p, NodeLeaf)
	SetNodeRoot(p, false)
	SetLeafNumCells(p, 0)
	SetLeafNextLeaf(p, 0)
}

// --- Internal node ---

func InternalNumKeys(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[InternalNodeNumKeysOffset : InternalNodeNumKeysOffset+InternalNodeNumKeysSize])
}

func SetInternalNumKeys(p *pager.Page, n uint32) {
	binary.LittleEndian.PutUint32(p.Data[InternalNodeNumKeysOffset:InternalNodeNumKeysOffset+InternalNodeNumKeysSize], n)
}

func InternalRightChild(p *pager.Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[InternalNodeRightChildOffset : InternalNodeRightChildOffset+InternalNodeRightChildSize])
}

func SetInternalRightChild(p *pager.Page, pageNum uint32) {
	binary.LittleEndian.PutUint32(p.Data[InternalNodeRightChildOffset:InternalNodeRightChildOffset+InternalNodeRightChildSize], pageNum)
}

func internalCellOffset(cellNum uint32) uint32 {
	return InternalNodeHeaderSize + cellNum*InternalNodeCellSize
}

func internalCellChild(p *pager.Page, cellNum uint32) uint32 {
	off := internalCellOffset(cellNum)
	return binary.LittleEndian.Uint32(p.Data[off : off+InternalNodeChildSize])
}

func setInternalCellChild(p *pager.Page, cellNum, pageNum uint32) {
	off := internalCellOffset(cellNum)
	binary.LittleEndian.PutUint32(p.Data[off:off+InternalNodeChildSize], pageNum)
}

func InternalKey(p *pager.Page, keyNum uint32) uint32 {
	off := internalCellOffset(keyNum) + InternalNodeChildSize
	return binary.LittleEndian.Uint32(p.Data[off : off+InternalNodeKeySize])
}

func SetInternalKey(p *pager.Page, keyNum, key uint32) {
	off := internalCellOffset(keyNum) + InternalNodeChildSize
	binary.LittleEndian.PutUint32(p.Data[off:off+InternalNodeKeySize], key)
}

func SetInternalCell(p *pager.Page, cellNum, childPageNum, key uint32) {
	setInternalCellChild(p, cellNum, childPageNum)
	SetInternalKey(p, cellNum, key)
}

func InitializeInternalNode(p *pager.Page) {
	SetNodeType(p, NodeInternal)
	SetNodeRoot(p, false)
	SetInternalNumKeys(p, 0)
}

// InternalChild returns the page number of childNum, treating
// childNum == num_keys as the right child. The bound check is
// `num_keys < child_num` (not child_num > num_keys, which amounts to
// the same test) to match spec.md §9 note 2 exactly: child_num ==
// num_keys is valid and returns the right child.
func InternalChild(p *pager.Page, childNum uint32) (uint32, error) {
	numKeys := InternalNumKeys(p)
	if numKeys < childNum {
		return 0, errors.Errorf("table: internal child index %d exceeds num_keys %d", childNum, numKeys)
	}
	if childNum == numKeys {
		return InternalRightChild(p), nil
	}
	return internalCellChild(p, childNum), nil
}

// MaxKey returns a leaf's last (largest) key, or an internal node's last
// separator key. For an internal node this does not include the keys
// under its right child.
func MaxKey(p *pager.Page) uint32 {
	if NodeTypeOf(p) == NodeInternal {
		return InternalKey(p, InternalNumKeys(p)-1)
	}
	return LeafKey(p, LeafNumCells(p)-1)
}
