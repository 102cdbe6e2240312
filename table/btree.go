package table

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/thara-playground/lightdb/pager"
)

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = errors.New("table: duplicate key")

// ErrTableFull is retained for interface continuity with the row-major
// predecessor of this storage engine; the B+tree path never produces it
// (a full leaf splits instead), per spec.md §7.
var ErrTableFull = errors.New("table: table full")

// BTree is a B+tree of fixed-size pages, backed by a pager. Page 0 is
// always the root.
type BTree struct {
	Pager       *pager.Pager
	RootPageNum uint32
	log         *logrus.Logger
}

// Open wraps p in a BTree, initializing page 0 as an empty leaf root if
// the file is brand new.
func Open(p *pager.Pager, log *logrus.Logger) (*BTree, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	t := &BTree{Pager: p, RootPageNum: 0, log: log}
	if p.NumPages == 0 {
		root, err := p.GetPage(0)
		if err != nil {
			return nil, err
		}
		InitializeLeafNode(root)
		SetNodeRoot(root, true)
	}
	return t, nil
}

// Cursor is a logical position (page_num, cell_num) within the table.
// EndOfTable signals that iteration has passed the last element.
type Cursor struct {
	Tree       *BTree
	PageNum    uint32
	CellNum    uint32
	EndOfTable bool
}

// Value returns the RowSize-byte region for the cursor's current cell.
// Call only when !EndOfTable.
func (c *Cursor) Value() ([]byte, error) {
	page, err := c.Tree.Pager.GetPage(c.PageNum)
	if err != nil {
		return nil, err
	}
	return LeafValue(page, c.CellNum), nil
}

// Advance moves the cursor to the next key in order, following the
// leaf-sibling link when the current leaf is exhausted.
func (c *Cursor) Advance() error {
	page, err := c.Tree.Pager.GetPage(c.PageNum)
	if err != nil {
		return err
	}
	c.CellNum++
	if c.CellNum < LeafNumCells(page) {
		return nil
	}
	next := LeafNextLeaf(page)
	if next == 0 {
		c.EndOfTable = true
		return nil
	}
	c.PageNum = next
	c.CellNum = 0
	return nil
}

// leafFind binary-searches pageNum's cells for key. It never reports
// "not found" directly: it returns a cursor at the exact match, or at
// the first index whose key exceeds key (the insertion position).
func (t *BTree) leafFind(pageNum, key uint32) (*Cursor, error) {
	page, err := t.Pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	lo, hi := uint32(0), LeafNumCells(page)
	for lo < hi {
		mid := lo + (hi-lo)/2
		midKey := LeafKey(page, mid)
		if key == midKey {
			return &Cursor{Tree: t, PageNum: pageNum, CellNum: mid}, nil
		}
		if key < midKey {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return &Cursor{Tree: t, PageNum: pageNum, CellNum: lo}, nil
}

// internalFind finds the smallest i in [0, num_keys] with key <=
// key_at(i) (treating "past the end" as the right child), then
// recurses into that child, dispatching on its node type.
func (t *BTree) internalFind(pageNum, key uint32) (*Cursor, error) {
	page, err := t.Pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	numKeys := InternalNumKeys(page)
	lo, hi := uint32(0), numKeys
	for lo < hi {
		mid := lo + (hi-lo)/2
		if key <= InternalKey(page, mid) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	childPageNum, err := InternalChild(page, lo)
	if err != nil {
		return nil, errors.Wrap(err, "table: internal_find")
	}
	childPage, err := t.Pager.GetPage(childPageNum)
	if err != nil {
		return nil, err
	}
	if NodeTypeOf(childPage) == NodeLeaf {
		return t.leafFind(childPageNum, key)
	}
	return t.internalFind(childPageNum, key)
}

// Find dispatches on the root's node type to locate key.
func (t *BTree) Find(key uint32) (*Cursor, error) {
	rootPage, err := t.Pager.GetPage(t.RootPageNum)
	if err != nil {
		return nil, err
	}
	if NodeTypeOf(rootPage) == NodeLeaf {
		return t.leafFind(t.RootPageNum, key)
	}
	return t.internalFind(t.RootPageNum, key)
}

// Start returns a cursor at the smallest key, with EndOfTable set if the
// table has no rows.
func (t *BTree) Start() (*Cursor, error) {
	cur, err := t.Find(0)
	if err != nil {
		return nil, err
	}
	page, err := t.Pager.GetPage(cur.PageNum)
	if err != nil {
		return nil, err
	}
	cur.EndOfTable = LeafNumCells(page) == 0
	return cur, nil
}

// Insert adds key/row into the tree. The caller-before-insert duplicate
// check described in spec.md §4.4 happens here, before leafInsert is
// ever called.
func (t *BTree) Insert(key uint32, row Row) error {
	cur, err := t.Find(key)
	if err != nil {
		return err
	}
	page, err := t.Pager.GetPage(cur.PageNum)
	if err != nil {
		return err
	}
	if cur.CellNum < LeafNumCells(page) && LeafKey(page, cur.CellNum) == key {
		return ErrDuplicateKey
	}
	return t.leafInsert(cur, key, row)
}

func (t *BTree) leafInsert(cur *Cursor, key uint32, row Row) error {
	page, err := t.Pager.GetPage(cur.PageNum)
	if err != nil {
		return err
	}

	numCells := LeafNumCells(page)
	if numCells >= LeafNodeMaxCells {
		return t.leafSplitAndInsert(cur, key, row)
	}

	for i := numCells; i > cur.CellNum; i-- {
		CopyLeafCell(page, i, page, i-1)
	}
	SetLeafKey(page, cur.CellNum, key)
	if err := Serialize(row, LeafValue(page, cur.CellNum)); err != nil {
		return err
	}
	SetLeafNumCells(page, numCells+1)
	return nil
}

// leafSplitAndInsert implements spec.md §4.4's split algorithm exactly:
// every cell from the old leaf plus the one being inserted is walked at
// virtual position i from LEAF_NODE_MAX_CELLS down to 0 and redistributed
// into the old (left) or new (right) half. Iterating from the top down
// is what makes writing into the old node's own cells safe: a lower
// index is never read after a higher index has already overwritten it.
func (t *BTree) leafSplitAndInsert(cur *Cursor, key uint32, row Row) error {
	oldPage, err := t.Pager.GetPage(cur.PageNum)
	if err != nil {
		return err
	}

	newPageNum := t.Pager.GetUnusedPageNum()
	newPage, err := t.Pager.GetPage(newPageNum)
	if err != nil {
		return err
	}
	InitializeLeafNode(newPage)
	SetLeafNextLeaf(newPage, LeafNextLeaf(oldPage))
	SetLeafNextLeaf(oldPage, newPageNum)

	for i := int64(LeafNodeMaxCells); i >= 0; i-- {
		vi := uint32(i)

		var dest *pager.Page
		var destIdx uint32
		if vi >= LeafNodeLeftSplitCount {
			dest = newPage
			destIdx = vi - LeafNodeLeftSplitCount
		} else {
			dest = oldPage
			destIdx = vi
		}

		switch {
		case vi == cur.CellNum:
			SetLeafKey(dest, destIdx, key)
			if err := Serialize(row, LeafValue(dest, destIdx)); err != nil {
				return err
			}
		case vi > cur.CellNum:
			CopyLeafCell(dest, destIdx, oldPage, vi-1)
		default:
			CopyLeafCell(dest, destIdx, oldPage, vi)
		}
	}

	SetLeafNumCells(oldPage, LeafNodeLeftSplitCount)
	SetLeafNumCells(newPage, LeafNodeRightSplitCount)

	t.log.WithFields(logrus.Fields{"old_page": oldPage.PageNum, "new_page": newPageNum}).Info("table: leaf split")

	if IsNodeRoot(oldPage) {
		return t.createNewRoot(newPageNum)
	}

	// spec.md §4.4 / §9: updating a non-root leaf's parent after a split
	// is a declared, unimplemented limitation inherited from the source.
	return errors.New("table: need to implement updating parent after split")
}

// createNewRoot re-initializes the root page in place as an internal
// node with one key, after copying the former root's content to a
// freshly allocated left-child page.
func (t *BTree) createNewRoot(rightChildPageNum uint32) error {
	rootPage, err := t.Pager.GetPage(t.RootPageNum)
	if err != nil {
		return err
	}

	leftChildPageNum := t.Pager.GetUnusedPageNum()
	leftPage, err := t.Pager.GetPage(leftChildPageNum)
	if err != nil {
		return err
	}
	leftPage.Data = rootPage.Data
	SetNodeRoot(leftPage, false)

	InitializeInternalNode(rootPage)
	SetNodeRoot(rootPage, true)
	SetInternalNumKeys(rootPage, 1)
	SetInternalCell(rootPage, 0, leftChildPageNum, MaxKey(leftPage))
	SetInternalRightChild(rootPage, rightChildPageNum)

	t.log.WithFields(logrus.Fields{"left": leftChildPageNum, "right": rightChildPageNum}).Info("table: new root")
	return nil
}

// TreeEvent is one line of an in-order, indent-encoded tree walk, used
// by the `.btree` meta-command.
type TreeEvent struct {
	Indent int
	Kind   string // "leaf", "internal", or "key"
	Count  uint32 // cell/key count, for "leaf"/"internal"
	Key    uint32 // for "key"
}

// Walk emits a depth-first traversal of the tree: each node first emits
// its own size header, then (for internal nodes) its children
// interleaved with their separator keys, right child last, matching the
// original implementation's print_tree order.
func (t *BTree) Walk(emit func(TreeEvent)) error {
	return t.walk(t.RootPageNum, 0, emit)
}

func (t *BTree) walk(pageNum uint32, indent int, emit func(TreeEvent)) error {
	page, err := t.Pager.GetPage(pageNum)
	if err != nil {
		return err
	}

	switch NodeTypeOf(page) {
	case NodeLeaf:
		n := LeafNumCells(page)
		emit(TreeEvent{Indent: indent, Kind: "leaf", Count: n})
		for i := uint32(0); i < n; i++ {
			emit(TreeEvent{Indent: indent + 1, Kind: "key", Key: LeafKey(page, i)})
		}
	case NodeInternal:
		n := InternalNumKeys(page)
		emit(TreeEvent{Indent: indent, Kind: "internal", Count: n})
		for i := uint32(0); i < n; i++ {
			child, err := InternalChild(page, i)
			if err != nil {
				return err
			}
			if err := t.walk(child, indent+1, emit); err != nil {
				return err
			}
			emit(TreeEvent{Indent: indent + 1, Kind: "key", Key: InternalKey(page, i)})
		}
		if err := t.walk(InternalRightChild(page), indent+1, emit); err != nil {
			return err
		}
	}
	return nil
}
