// Package storage provides the byte-addressable paged file underneath the
// buffer manager: fixed-size pages read and written at page-granular offsets.
package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"ridx/internal/base"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileClosed   = errors.New("file is closed")
	ErrInvalidPage  = errors.New("page id out of range")
	ErrCorruptFile  = errors.New("file size is not page aligned")
)

// File is a paged file. Pages are numbered from 1; page N lives at byte
// offset (N-1) * PageSize. The first page of an index file is its meta page.
type File struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	numPages base.PageID
	closed   bool
}

// Open opens the paged file at path. With create set, the file must not
// already exist; without it, a missing file returns ErrFileNotFound.
func Open(path string, create bool) (*File, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size()%base.PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrCorruptFile, path)
	}

	return &File{
		file:     f,
		path:     path,
		numPages: base.PageID(info.Size() / base.PageSize),
	}, nil
}

// Path returns the file's path.
func (f *File) Path() string {
	return f.path
}

// FirstPageNo returns the id of the file's first page, or InvalidPageID for
// an empty file.
func (f *File) FirstPageNo() base.PageID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.numPages == 0 {
		return base.InvalidPageID
	}
	return 1
}

// NumPages returns the number of allocated pages.
func (f *File) NumPages() base.PageID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

// ReadPage fills p with the contents of page id.
func (f *File) ReadPage(id base.PageID, p *base.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFileClosed
	}
	if id == base.InvalidPageID || id > f.numPages {
		return fmt.Errorf("%w: %d", ErrInvalidPage, id)
	}

	if _, err := f.file.ReadAt(p.Data[:], f.offset(id)); err != nil {
		return fmt.Errorf("read page %d: %w", id, err)
	}
	return nil
}

// WritePage writes p back to page id.
func (f *File) WritePage(id base.PageID, p *base.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFileClosed
	}
	if id == base.InvalidPageID || id > f.numPages {
		return fmt.Errorf("%w: %d", ErrInvalidPage, id)
	}

	n, err := f.file.WriteAt(p.Data[:], f.offset(id))
	if err != nil {
		return fmt.Errorf("write page %d: %w", id, err)
	}
	if n != base.PageSize {
		return fmt.Errorf("write page %d: short write of %d bytes", id, n)
	}
	return nil
}

// AllocatePage extends the file by one zeroed page and returns its id.
func (f *File) AllocatePage() (base.PageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return base.InvalidPageID, ErrFileClosed
	}

	id := f.numPages + 1
	var zero base.Page
	if _, err := f.file.WriteAt(zero.Data[:], f.offset(id)); err != nil {
		return base.InvalidPageID, fmt.Errorf("allocate page %d: %w", id, err)
	}
	f.numPages = id
	return id, nil
}

// Sync forces written pages to stable storage.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFileClosed
	}
	return fdatasync(f.file)
}

// Close closes the underlying file. Further operations fail with
// ErrFileClosed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

func (f *File) offset(id base.PageID) int64 {
	return int64(id-1) * base.PageSize
}
