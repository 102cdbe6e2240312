package table

import (
	"unsafe"

	"github.com/thara-playground/lightdb/pager"
)

// Row field sizes. These are part of the on-disk file format and must
// never change for an existing database file. Username/email carry one
// extra byte of capacity for a null terminator, mirroring the original
// C struct's `char[N+1]` fields.
const (
	IDSize       = uint32(unsafe.Sizeof(uint32(0)))
	UsernameSize = uint32(32 + 1)
	EmailSize    = uint32(255 + 1)

	IDOffset       = uint32(0)
	UsernameOffset = IDOffset + IDSize
	EmailOffset    = UsernameOffset + UsernameSize

	RowSize = IDSize + UsernameSize + EmailSize
)

// Common node header layout, shared by leaf and internal nodes.
const (
	NodeTypeSize   = uint32(unsafe.Sizeof(uint8(0)))
	NodeTypeOffset = uint32(0)

	IsRootSize   = uint32(unsafe.Sizeof(uint8(0)))
	IsRootOffset = NodeTypeOffset + NodeTypeSize

	ParentPointerSize = uint32(unsafe.Sizeof(uint32(0)))
	// ParentPointerOffset inherits the original implementation's
	// IS_ROOT_OFFSET + IS_ROOT_OFFSET typo (spec.md §9 note 5) rather
	// than the intended IsRootOffset + IsRootSize. The two formulas
	// happen to agree here because IsRootOffset == IsRootSize == 1, so
	// the byte layout below is correct, but the formula is kept
	// unfixed on purpose.
	ParentPointerOffset = IsRootOffset + IsRootOffset

	CommonNodeHeaderSize = NodeTypeSize + IsRootSize + ParentPointerSize
)

// Leaf node header and body layout.
const (
	LeafNodeNumCellsSize   = uint32(unsafe.Sizeof(uint32(0)))
	LeafNodeNumCellsOffset = CommonNodeHeaderSize

	LeafNodeNextLeafSize   = uint32(unsafe.Sizeof(uint32(0)))
	LeafNodeNextLeafOffset = LeafNodeNumCellsOffset + LeafNodeNumCellsSize

	LeafNodeHeaderSize = CommonNodeHeaderSize + LeafNodeNumCellsSize + LeafNodeNextLeafSize

	LeafNodeKeySize   = uint32(unsafe.Sizeof(uint32(0)))
	LeafNodeKeyOffset = uint32(0)

	LeafNodeValueSize   = RowSize
	LeafNodeValueOffset = LeafNodeKeyOffset + LeafNodeKeySize

	LeafNodeCellSize = LeafNodeKeySize + LeafNodeValueSize

	LeafNodeSpaceForCells = uint32(pager.PageSize) - LeafNodeHeaderSize
	LeafNodeMaxCells      = LeafNodeSpaceForCells / LeafNodeCellSize

	LeafNodeRightSplitCount = (LeafNodeMaxCells + 1) / 2
	LeafNodeLeftSplitCount  = (LeafNodeMaxCells + 1) - LeafNodeRightSplitCount
)

// Internal node header and body layout.
const (
	InternalNodeNumKeysSize   = uint32(unsafe.Sizeof(uint32(0)))
	InternalNodeNumKeysOffset = CommonNodeHeaderSize

	InternalNodeRightChildSize   = uint32(unsafe.Sizeof(uint32(0)))
	InternalNodeRightChildOffset = InternalNodeNumKeysOffset + InternalNodeNumKeysSize

	InternalNodeHeaderSize = CommonNodeHeaderSize + InternalNodeNumKeysSize + InternalNodeRightChildSize

	InternalNodeKeySize   = uint32(unsafe.Sizeof(uint32(0)))
	InternalNodeChildSize = uint32(unsafe.Sizeof(uint32(0)))
	InternalNodeCellSize  = InternalNodeChildSize + InternalNodeKeySize
)

func init() {
	if LeafNodeSpaceForCells < LeafNodeCellSize {
		panic("table: page size too small to hold a single leaf cell")
	}
}

// Constant is one named value reported by the `.constants` meta-command.
type Constant struct {
	Name  string
	Value uint32
}

// Constants lists the layout constants worth showing a user inspecting
// the on-disk format, in the same order the original implementation's
// print_constants prints them.
func Constants() []Constant {
	return []Constant{
		{"ROW_SIZE", RowSize},
		{"COMMON_NODE_HEADER_SIZE", CommonNodeHeaderSize},
		{"LEAF_NODE_HEADER_SIZE", LeafNodeHeaderSize},
		{"LEAF_NODE_CELL_SIZE", LeafNodeCellSize},
		{"LEAF_NODE_SPACE_FOR_CELLS", LeafNodeSpaceForCells},
		{"LEAF_NODE_MAX_CELLS", LeafNodeMaxCells},
	}
}
