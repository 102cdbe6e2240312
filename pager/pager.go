// Package pager implements the page cache sitting between the B+tree and
// the single data file: it maps page numbers to fixed-size in-memory
// buffers, loading lazily on miss and writing everything back on close.
package pager

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// PageSize is the fixed size, in bytes, of every page on disk and in
	// memory. It is part of the file format and must never change for an
	// existing database file.
	PageSize = 4096

	// TableMaxPages bounds how many pages the pager will track in memory.
	TableMaxPages = 100
)

// Page is one fixed-size B+tree node, either resident from a read or
// freshly allocated and awaiting initialization by its caller.
type Page struct {
	Data    [PageSize]byte
	PageNum uint32
}

// Pager owns the file descriptor, the on-disk page count, and the sparse
// table of resident page buffers. There is no dirty tracking: every
// resident page is unconditionally flushed on Close.
type Pager struct {
	file     *os.File
	NumPages uint32
	pages    [tableMaxPagesSlots]*Page
	log      *logrus.Logger
}

// tableMaxPagesSlots is one larger than TableMaxPages so that GetPage's
// deliberately preserved `pageNum > TableMaxPages` off-by-one (see
// spec.md §9 note 1 / SPEC_FULL.md §5.2) can index page TableMaxPages
// itself without an out-of-bounds panic.
const tableMaxPagesSlots = TableMaxPages + 1

// Open opens or creates path in read/write mode and computes the page
// count from the file length. The file length must be a multiple of
// PageSize; anything else is treated as corruption.
func Open(path string, log *logrus.Logger) (*Pager, error) {
	if log == nil {
		log = discardLogger()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "pager: open %s", path)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "pager: stat %s", path)
	}

	fileLength := fi.Size()
	if fileLength%PageSize != 0 {
		return nil, errors.Errorf("pager: corrupt file, length %d is not a multiple of page size %d", fileLength, PageSize)
	}

	p := &Pager{
		file:     f,
		NumPages: uint32(fileLength / PageSize),
		log:      log,
	}
	log.WithFields(logrus.Fields{"path": path, "pages": p.NumPages}).Debug("pager: opened")
	return p, nil
}

// GetPage returns the in-memory buffer for pageNum, loading it from disk
// on first access. If pageNum lies beyond the file's current on-disk
// extent, a fresh zeroed buffer is returned and the caller is responsible
// for initializing it as a leaf or internal node.
//
// The `pageNum > TableMaxPages` bound (strict greater, not
// greater-or-equal) is a deliberately preserved off-by-one inherited from
// the original implementation.
func (p *Pager) GetPage(pageNum uint32) (*Page, error) {
	if pageNum > TableMaxPages {
		return nil, errors.Errorf("pager: page number %d out of bounds (max %d)", pageNum, TableMaxPages)
	}

	if p.pages[pageNum] == nil {
		page := &Page{PageNum: pageNum}
		if pageNum < p.NumPages {
			if err := p.readPage(page); err != nil {
				return nil, err
			}
		}
		p.pages[pageNum] = page
		p.log.WithField("page", pageNum).Debug("pager: loaded page")
	}

	if pageNum+1 > p.NumPages {
		p.NumPages = pageNum + 1
	}

	return p.pages[pageNum], nil
}

func (p *Pager) readPage(page *Page) error {
	off := int64(page.PageNum) * PageSize
	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return errors.Wrapf(err, "pager: seek page %d", page.PageNum)
	}
	if _, err := io.ReadFull(p.file, page.Data[:]); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrapf(err, "pager: read page %d", page.PageNum)
	}
	return nil
}

// GetUnusedPageNum returns the page number that the next allocation will
// use. It does not itself register or zero a page; the first GetPage
// call for that number does that lazily.
func (p *Pager) GetUnusedPageNum() uint32 {
	return p.NumPages
}

// Flush writes pageNum's full PageSize-byte buffer back to disk. It is
// fatal to flush a page that was never loaded.
func (p *Pager) Flush(pageNum uint32) error {
	page := p.pages[pageNum]
	if page == nil {
		return errors.Errorf("pager: cannot flush unloaded page %d", pageNum)
	}
	off := int64(pageNum) * PageSize
	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return errors.Wrapf(err, "pager: seek page %d", pageNum)
	}
	if _, err := p.file.Write(page.Data[:]); err != nil {
		return errors.Wrapf(err, "pager: write page %d", pageNum)
	}
	return nil
}

// Close flushes every resident page, then closes the underlying file
// descriptor.
func (p *Pager) Close() error {
	for i := uint32(0); i < p.NumPages; i++ {
		if p.pages[i] == nil {
			continue
		}
		if err := p.Flush(i); err != nil {
			return err
		}
		p.pages[i] = nil
	}
	p.log.Debug("pager: closed")
	return p.file.Close()
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
