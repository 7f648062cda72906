// Package bufmgr implements the buffer manager: a fixed-capacity pool of
// page frames with pin counts, LRU replacement over unpinned frames, and
// write-back of dirty pages.
package bufmgr

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"ridx/internal/base"
	"ridx/internal/storage"
)

var (
	ErrPageNotPinned = errors.New("page is not pinned")
	ErrBufferFull    = errors.New("all buffer frames are pinned")
	ErrPagePinned    = errors.New("page is still pinned")
)

const (
	DefaultPoolSize = 1024 // 4MB of 4KB frames
	MinPoolSize     = 16   // enough for one root-to-leaf path plus scan state
)

type frameKey struct {
	file *storage.File
	id   base.PageID
}

// frame holds one buffered page. A frame with pinCount > 0 is never evicted;
// a dirty frame is written back before eviction.
type frame struct {
	key        frameKey
	page       *base.Page
	pinCount   int
	dirty      bool
	lruElement *list.Element
}

// BufferManager is the page pool shared by every file of an index process.
type BufferManager struct {
	mu      sync.Mutex
	frames  map[frameKey]*frame
	lru     *list.List // front = MRU, back = LRU
	maxSize int

	// stats
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Stats is a snapshot of the pool's counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Frames    int
	Pinned    int
}

// New creates a buffer manager holding at most maxSize frames.
func New(maxSize int) *BufferManager {
	maxSize = max(maxSize, MinPoolSize)

	return &BufferManager{
		frames:  make(map[frameKey]*frame),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// ReadPage returns the page pinned. Every successful ReadPage must be paired
// with exactly one UnpinPage.
func (b *BufferManager) ReadPage(f *storage.File, id base.PageID) (*base.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := frameKey{file: f, id: id}
	if fr, ok := b.frames[key]; ok {
		b.hits.Add(1)
		fr.pinCount++
		b.lru.MoveToFront(fr.lruElement)
		return fr.page, nil
	}
	b.misses.Add(1)

	if err := b.evictLocked(1); err != nil {
		return nil, err
	}

	page := &base.Page{}
	if err := f.ReadPage(id, page); err != nil {
		return nil, err
	}

	fr := &frame{key: key, page: page, pinCount: 1}
	fr.lruElement = b.lru.PushFront(fr)
	b.frames[key] = fr
	return page, nil
}

// AllocPage extends the file by one page and returns it pinned. The page
// bytes are zeroed but otherwise undefined to the caller.
func (b *BufferManager) AllocPage(f *storage.File) (base.PageID, *base.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.evictLocked(1); err != nil {
		return base.InvalidPageID, nil, err
	}

	id, err := f.AllocatePage()
	if err != nil {
		return base.InvalidPageID, nil, err
	}

	fr := &frame{
		key:      frameKey{file: f, id: id},
		page:     &base.Page{},
		pinCount: 1,
	}
	fr.lruElement = b.lru.PushFront(fr)
	b.frames[fr.key] = fr
	return id, fr.page, nil
}

// UnpinPage releases one pin on the page. The dirty flag is sticky: once set
// it stays until the page is written back. Unpinning a page that is not
// pinned is a programmer error.
func (b *BufferManager) UnpinPage(f *storage.File, id base.PageID, dirty bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fr, ok := b.frames[frameKey{file: f, id: id}]
	if !ok || fr.pinCount == 0 {
		return fmt.Errorf("%w: page %d", ErrPageNotPinned, id)
	}

	fr.pinCount--
	if dirty {
		fr.dirty = true
	}
	return nil
}

// FlushFile writes back every dirty frame of f and syncs it. Frames stay
// resident; pins are unaffected.
func (b *BufferManager) FlushFile(f *storage.File) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, fr := range b.frames {
		if key.file != f || !fr.dirty {
			continue
		}
		if err := f.WritePage(key.id, fr.page); err != nil {
			return err
		}
		fr.dirty = false
	}
	return f.Sync()
}

// ReleaseFile drops every frame of f from the pool. Dirty frames are written
// back first. Fails with ErrPagePinned if any frame of f is still pinned.
func (b *BufferManager) ReleaseFile(f *storage.File) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, fr := range b.frames {
		if key.file != f {
			continue
		}
		if fr.pinCount > 0 {
			return fmt.Errorf("%w: page %d", ErrPagePinned, key.id)
		}
	}
	for key, fr := range b.frames {
		if key.file != f {
			continue
		}
		if fr.dirty {
			if err := f.WritePage(key.id, fr.page); err != nil {
				return err
			}
		}
		b.lru.Remove(fr.lruElement)
		delete(b.frames, key)
	}
	return nil
}

// PinCount reports the pin count of a buffered page, 0 if not resident.
func (b *BufferManager) PinCount(f *storage.File, id base.PageID) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if fr, ok := b.frames[frameKey{file: f, id: id}]; ok {
		return fr.pinCount
	}
	return 0
}

// TotalPins reports the sum of all pin counts across the pool.
func (b *BufferManager) TotalPins() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, fr := range b.frames {
		total += fr.pinCount
	}
	return total
}

// Stats returns a snapshot of the pool counters.
func (b *BufferManager) Stats() Stats {
	b.mu.Lock()
	pinned := 0
	for _, fr := range b.frames {
		if fr.pinCount > 0 {
			pinned++
		}
	}
	n := len(b.frames)
	b.mu.Unlock()

	return Stats{
		Hits:      b.hits.Load(),
		Misses:    b.misses.Load(),
		Evictions: b.evictions.Load(),
		Frames:    n,
		Pinned:    pinned,
	}
}

// evictLocked makes room for want more frames, evicting unpinned frames from
// the LRU end. Dirty victims are written back before they are dropped.
func (b *BufferManager) evictLocked(want int) error {
	for len(b.frames)+want > b.maxSize {
		victim := b.findVictimLocked()
		if victim == nil {
			return ErrBufferFull
		}
		if victim.dirty {
			if err := victim.key.file.WritePage(victim.key.id, victim.page); err != nil {
				return err
			}
		}
		b.lru.Remove(victim.lruElement)
		delete(b.frames, victim.key)
		b.evictions.Add(1)
	}
	return nil
}

func (b *BufferManager) findVictimLocked() *frame {
	for elem := b.lru.Back(); elem != nil; elem = elem.Prev() {
		fr := elem.Value.(*frame)
		if fr.pinCount == 0 {
			return fr
		}
	}
	return nil
}
