// Package heap implements the base relation: a slotted-page heap file of
// variable-length records addressed by (page, slot) record ids.
package heap

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"ridx/internal/base"
	"ridx/internal/storage"
)

var (
	ErrEndOfFile      = errors.New("end of file")
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordTooLarge = errors.New("record does not fit in a page")
)

// Heap page layout, little-endian:
//
//	[0:2)  numSlots
//	[2:4)  freeEnd   offset of the lowest record byte (records pack backward)
//	[4:..) slot directory, 4 bytes per slot: offset(2) length(2)
const (
	headerSize    = 4
	slotDirEntry  = 4
	numSlotsOff   = 0
	freeEndOff    = 2
	maxRecordSize = base.PageSize - headerSize - slotDirEntry
)

const cachePages = 256 // 1MB of cached heap pages

// File is an open heap relation. Reads go through a small LRU of decoded
// pages; writes go straight through to disk and refresh the cache.
type File struct {
	file  *storage.File
	cache *freelru.LRU[base.PageID, *base.Page]
}

// Open opens the heap file at path, creating it when create is set.
func Open(path string, create bool) (*File, error) {
	f, err := storage.Open(path, create)
	if err != nil {
		return nil, err
	}

	cache, err := freelru.New[base.PageID, *base.Page](cachePages, hashPageID)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{file: f, cache: cache}, nil
}

func hashPageID(id base.PageID) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(id))
	return uint32(xxhash.Sum64(buf[:]))
}

// Close closes the underlying file.
func (h *File) Close() error {
	h.cache.Purge()
	return h.file.Close()
}

// NumPages returns the number of heap pages.
func (h *File) NumPages() base.PageID {
	return h.file.NumPages()
}

// InsertRecord appends rec to the last page with room, allocating a fresh
// page when needed, and returns the record's id.
func (h *File) InsertRecord(rec []byte) (base.RecordID, error) {
	if len(rec) > maxRecordSize {
		return base.InvalidRecordID, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(rec))
	}

	pageNo := h.file.NumPages()
	var page *base.Page
	var err error

	if pageNo != base.InvalidPageID {
		page, err = h.readPage(pageNo)
		if err != nil {
			return base.InvalidRecordID, err
		}
		if pageFreeSpace(page) < len(rec)+slotDirEntry {
			page = nil
		}
	}

	if page == nil {
		pageNo, err = h.file.AllocatePage()
		if err != nil {
			return base.InvalidRecordID, err
		}
		page = &base.Page{}
		initPage(page)
		h.cache.Add(pageNo, page)
	}

	slot := insertIntoPage(page, rec)
	if err := h.file.WritePage(pageNo, page); err != nil {
		return base.InvalidRecordID, err
	}

	return base.RecordID{PageNo: uint32(pageNo), SlotNo: slot}, nil
}

// FetchRecord returns a copy of the record named by rid.
func (h *File) FetchRecord(rid base.RecordID) ([]byte, error) {
	if !rid.Valid() {
		return nil, ErrRecordNotFound
	}

	page, err := h.readPage(base.PageID(rid.PageNo))
	if err != nil {
		return nil, err
	}

	rec, ok := pageRecord(page, int(rid.SlotNo))
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrRecordNotFound, rid)
	}

	out := make([]byte, len(rec))
	copy(out, rec)
	return out, nil
}

func (h *File) readPage(id base.PageID) (*base.Page, error) {
	if page, ok := h.cache.Get(id); ok {
		return page, nil
	}

	page := &base.Page{}
	if err := h.file.ReadPage(id, page); err != nil {
		return nil, err
	}
	h.cache.Add(id, page)
	return page, nil
}

func initPage(p *base.Page) {
	binary.LittleEndian.PutUint16(p.Data[numSlotsOff:], 0)
	binary.LittleEndian.PutUint16(p.Data[freeEndOff:], base.PageSize)
}

func pageNumSlots(p *base.Page) int {
	return int(binary.LittleEndian.Uint16(p.Data[numSlotsOff:]))
}

func pageFreeSpace(p *base.Page) int {
	numSlots := pageNumSlots(p)
	freeEnd := int(binary.LittleEndian.Uint16(p.Data[freeEndOff:]))
	dirEnd := headerSize + numSlots*slotDirEntry
	return freeEnd - dirEnd
}

func insertIntoPage(p *base.Page, rec []byte) base.SlotID {
	numSlots := pageNumSlots(p)
	freeEnd := int(binary.LittleEndian.Uint16(p.Data[freeEndOff:]))

	recOff := freeEnd - len(rec)
	copy(p.Data[recOff:freeEnd], rec)

	dirOff := headerSize + numSlots*slotDirEntry
	binary.LittleEndian.PutUint16(p.Data[dirOff:], uint16(recOff))
	binary.LittleEndian.PutUint16(p.Data[dirOff+2:], uint16(len(rec)))

	binary.LittleEndian.PutUint16(p.Data[numSlotsOff:], uint16(numSlots+1))
	binary.LittleEndian.PutUint16(p.Data[freeEndOff:], uint16(recOff))

	return base.SlotID(numSlots)
}

func pageRecord(p *base.Page, slot int) ([]byte, bool) {
	if slot < 0 || slot >= pageNumSlots(p) {
		return nil, false
	}
	dirOff := headerSize + slot*slotDirEntry
	off := int(binary.LittleEndian.Uint16(p.Data[dirOff:]))
	length := int(binary.LittleEndian.Uint16(p.Data[dirOff+2:]))
	if off+length > base.PageSize {
		return nil, false
	}
	return p.Data[off : off+length], true
}
