package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thara-playground/lightdb/pager"
)

func openTestTree(t *testing.T) *BTree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	p, err := pager.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	bt, err := Open(p, nil)
	require.NoError(t, err)
	return bt
}

func row(id uint32) Row {
	return Row{ID: id, Username: "user", Email: "user@example.com"}
}

func TestInsertAndFindRoundTrips(t *testing.T) {
	bt := openTestTree(t)
	require.NoError(t, bt.Insert(1, row(1)))

	cur, err := bt.Find(1)
	require.NoError(t, err)
	buf, err := cur.Value()
	require.NoError(t, err)
	got, err := Deserialize(buf)
	require.NoError(t, err)
	require.Equal(t, row(1), got)
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	bt := openTestTree(t)
	require.NoError(t, bt.Insert(5, row(5)))
	require.ErrorIs(t, bt.Insert(5, row(5)), ErrDuplicateKey)
}

func TestStartOnEmptyTableIsEndOfTable(t *testing.T) {
	bt := openTestTree(t)
	cur, err := bt.Start()
	require.NoError(t, err)
	require.True(t, cur.EndOfTable)
}

func TestCursorWalksKeysInOrderRegardlessOfInsertOrder(t *testing.T) {
	bt := openTestTree(t)
	ids := []uint32{5, 1, 4, 2, 3}
	for _, id := range ids {
		require.NoError(t, bt.Insert(id, row(id)))
	}

	cur, err := bt.Start()
	require.NoError(t, err)

	var got []uint32
	for !cur.EndOfTable {
		buf, err := cur.Value()
		require.NoError(t, err)
		r, err := Deserialize(buf)
		require.NoError(t, err)
		got = append(got, r.ID)
		require.NoError(t, cur.Advance())
	}
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, got)
}

func TestLeafFillsUpToMaxCellsWithoutSplitting(t *testing.T) {
	bt := openTestTree(t)
	for i := uint32(1); i <= LeafNodeMaxCells; i++ {
		require.NoError(t, bt.Insert(i, row(i)))
	}

	rootPage, err := bt.Pager.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, NodeLeaf, NodeTypeOf(rootPage))
	require.EqualValues(t, LeafNodeMaxCells, LeafNumCells(rootPage))
}

func TestInsertBeyondMaxCellsSplitsRootIntoInternalNode(t *testing.T) {
	bt := openTestTree(t)
	for i := uint32(1); i <= LeafNodeMaxCells+1; i++ {
		require.NoError(t, bt.Insert(i, row(i)))
	}

	rootPage, err := bt.Pager.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, NodeInternal, NodeTypeOf(rootPage))
	require.EqualValues(t, 1, InternalNumKeys(rootPage))

	cur, err := bt.Start()
	require.NoError(t, err)
	var got []uint32
	for !cur.EndOfTable {
		buf, err := cur.Value()
		require.NoError(t, err)
		r, err := Deserialize(buf)
		require.NoError(t, err)
		got = append(got, r.ID)
		require.NoError(t, cur.Advance())
	}
	require.Len(t, got, int(LeafNodeMaxCells)+1)
	for i := range got {
		if i > 0 {
			require.Less(t, got[i-1], got[i])
		}
	}
}

func TestMaxKeyOfSplitLeftChildMatchesRootSeparatorKey(t *testing.T) {
	bt := openTestTree(t)
	for i := uint32(1); i <= LeafNodeMaxCells+1; i++ {
		require.NoError(t, bt.Insert(i, row(i)))
	}

	rootPage, err := bt.Pager.GetPage(0)
	require.NoError(t, err)
	leftChildNum, err := InternalChild(rootPage, 0)
	require.NoError(t, err)
	leftChild, err := bt.Pager.GetPage(leftChildNum)
	require.NoError(t, err)

	require.Equal(t, InternalKey(rootPage, 0), MaxKey(leftChild))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	p, err := pager.Open(path, nil)
	require.NoError(t, err)
	bt, err := Open(p, nil)
	require.NoError(t, err)
	require.NoError(t, bt.Insert(1, row(1)))
	require.NoError(t, bt.Insert(2, row(2)))
	require.NoError(t, p.Close())

	p2, err := pager.Open(path, nil)
	require.NoError(t, err)
	defer p2.Close()
	bt2, err := Open(p2, nil)
	require.NoError(t, err)

	cur, err := bt2.Find(2)
	require.NoError(t, err)
	buf, err := cur.Value()
	require.NoError(t, err)
	got, err := Deserialize(buf)
	require.NoError(t, err)
	require.Equal(t, row(2), got)
}

func TestWalkEmitsLeafHeaderBeforeKeys(t *testing.T) {
	bt := openTestTree(t)
	require.NoError(t, bt.Insert(1, row(1)))
	require.NoError(t, bt.Insert(2, row(2)))

	var events []TreeEvent
	require.NoError(t, bt.Walk(func(e TreeEvent) { events = append(events, e) }))

	require.Equal(t, "leaf", events[0].Kind)
	require.EqualValues(t, 2, events[0].Count)
	require.Equal(t, "key", events[1].Kind)
	require.EqualValues(t, 1, events[1].Key)
	require.Equal(t, "key", events[2].Kind)
	require.EqualValues(t, 2, events[2].Key)
}
