package pager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	p, err := Open(path, nil)
	require.NoError(t, err)
	defer p.Close()

	require.Zero(t, p.NumPages)
}

func TestOpenRejectsCorruptLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(path, make([]byte, PageSize+1), 0600))

	_, err := Open(path, nil)
	require.Error(t, err)
}

func TestGetPageBeyondMaxIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oob.db")
	p, err := Open(path, nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GetPage(TableMaxPages + 1)
	require.Error(t, err)
}

func TestGetPageAllowsExactlyMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boundary.db")
	p, err := Open(path, nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.GetPage(TableMaxPages)
	require.NoError(t, err)
}

func TestGetPageLoadsZeroedPageBeyondFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	p, err := Open(path, nil)
	require.NoError(t, err)
	defer p.Close()

	page, err := p.GetPage(0)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.NumPages)
	for _, b := range page.Data {
		require.Zero(t, b)
	}
}

func TestFlushAndReopenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.db")

	p, err := Open(path, nil)
	require.NoError(t, err)

	page, err := p.GetPage(0)
	require.NoError(t, err)
	page.Data[0] = 0xAB
	page.Data[PageSize-1] = 0xCD
	require.NoError(t, p.Close())

	p2, err := Open(path, nil)
	require.NoError(t, err)
	defer p2.Close()

	require.EqualValues(t, 1, p2.NumPages)
	reloaded, err := p2.GetPage(0)
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, reloaded.Data[0])
	require.EqualValues(t, 0xCD, reloaded.Data[PageSize-1])
}

func TestGetUnusedPageNumIsMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alloc.db")
	p, err := Open(path, nil)
	require.NoError(t, err)
	defer p.Close()

	require.EqualValues(t, 0, p.GetUnusedPageNum())
	_, err = p.GetPage(0)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.GetUnusedPageNum())

	next := p.GetUnusedPageNum()
	_, err = p.GetPage(next)
	require.NoError(t, err)
	require.EqualValues(t, 2, p.GetUnusedPageNum())
}

func TestFlushUnloadedPageIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.db")
	p, err := Open(path, nil)
	require.NoError(t, err)
	defer p.Close()

	require.Error(t, p.Flush(0))
}
