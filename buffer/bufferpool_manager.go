package buffer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
)

// PageStore is the paged file store the buffer pool reads from and writes
// back to. Page ids are unique within a file.
type PageStore interface {
	ReadPage(pageId int64, fileName string, data []byte) error
	WritePage(pageId int64, fileName string, data []byte) error
	AllocatePages(count int, fileName string) (int64, error)
	DeallocatePages(pageId int64, count int, fileName string) error
}

func NewBufferpoolManager(size int, store PageStore) (*BufferpoolManager, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	pages := make([]*Page, size)
	for i := range pages {
		pages[i] = newPage()
	}

	return &BufferpoolManager{
		frames:    newFrameTable(size),
		pages:     pages,
		pageTable: newPageTable(size),
		replacer:  newClockReplacer(),
		store:     store,
		logger:    slog.Default(),
	}, nil
}

func (b *BufferpoolManager) SetLogger(logger *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

func (b *BufferpoolManager) PoolSize() int {
	return len(b.frames)
}

// Pin returns the page pinned in the pool, reading it from the store on a
// miss. If fresh is true the page is known to be empty and is zeroed instead
// of read. ok is false, with a nil error, when the pool is full and every
// resident page is pinned.
func (b *BufferpoolManager) Pin(pageId int64, fileName string, fresh bool) (page *Page, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pin(pageId, fileName, fresh)
}

func (b *BufferpoolManager) Unpin(pageId int64, fileName string, dirty bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot, ok := b.pageTable.lookup(fileName, pageId)
	if !ok {
		return notResident("Unpin", fileName, pageId)
	}
	return b.frames[slot].unpin(dirty)
}

// NewPage allocates numPages consecutive pages in fileName and pins the
// first one. ok is false when no frame can be freed for it, in which case
// nothing is allocated.
func (b *BufferpoolManager) NewPage(numPages int, fileName string) (pageId int64, page *Page, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasReplaceableFrame() {
		b.stats.exhausted.Add(1)
		return disk.INVALID_PAGE_ID, nil, false, nil
	}

	first, err := b.store.AllocatePages(numPages, fileName)
	if err != nil {
		return disk.INVALID_PAGE_ID, nil, false, storeErr("NewPage", err)
	}

	// the allocation stays on disk even if pinning fails below
	page, ok, err = b.pin(first, fileName, true)
	if err != nil || !ok {
		return first, nil, ok, err
	}
	return first, page, true, nil
}

// FreePage deallocates the page in the store and then drops it from the
// pool without writing it back. A resident page must not be pinned. If the
// store fails the resident copy is kept.
func (b *BufferpoolManager) FreePage(pageId int64, fileName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot, resident := b.pageTable.lookup(fileName, pageId)
	if resident && !b.frames[slot].isEvictable() {
		f := &b.frames[slot]
		return util.NewError(util.KindPagePinned, "FreePage", fmt.Sprintf("%s pin count %d", f.key(), f.pins), nil)
	}

	if err := b.store.DeallocatePages(pageId, 1, fileName); err != nil {
		return storeErr("FreePage", err)
	}

	if resident {
		f := &b.frames[slot]
		b.pageTable.remove(f.key())
		f.reset()
	}
	return nil
}

// FlushPage writes the page back if it is resident and dirty.
func (b *BufferpoolManager) FlushPage(pageId int64, fileName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot, ok := b.pageTable.lookup(fileName, pageId)
	if !ok {
		return nil
	}
	return b.flush(slot)
}

// FlushAllPages writes back every dirty page in frame order. Pins and
// residency are left untouched.
func (b *BufferpoolManager) FlushAllPages() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for slot := range b.frames {
		if b.frames[slot].isFree() {
			continue
		}
		if err := b.flush(slot); err != nil {
			return err
		}
	}
	return nil
}

// FindFrame reports the frame holding the page, if any.
func (b *BufferpoolManager) FindFrame(pageId int64, fileName string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pageTable.lookup(fileName, pageId)
}

func (b *BufferpoolManager) Stats() *Stats {
	return &b.stats
}

func (b *BufferpoolManager) pin(pageId int64, fileName string, fresh bool) (*Page, bool, error) {
	if slot, ok := b.pageTable.lookup(fileName, pageId); ok {
		b.stats.hits.Add(1)
		b.frames[slot].pin()
		return b.pages[slot], true, nil
	}

	b.stats.misses.Add(1)
	slot, ok := b.frames.findFreeSlot()
	if !ok {
		if slot, ok = b.replacer.victim(b.frames); !ok {
			b.stats.exhausted.Add(1)
			return nil, false, nil
		}
		if err := b.evict(slot); err != nil {
			return nil, false, err
		}
	}

	page := b.pages[slot]
	if fresh {
		page.zero()
	} else if err := b.store.ReadPage(pageId, fileName, page.data); err != nil {
		// the frame is still free, nothing to undo
		return nil, false, storeErr("Pin", err)
	}

	b.frames[slot].install(pageId, fileName)
	b.pageTable.insert(b.frames[slot].key(), slot)
	return page, true, nil
}

// evict writes the victim back if dirty and leaves its frame free.
func (b *BufferpoolManager) evict(slot int) error {
	f := &b.frames[slot]
	if f.isFree() {
		return nil
	}

	if err := b.flush(slot); err != nil {
		return err
	}

	b.logger.Debug("evicted page", "file", f.fileName, "page", f.pageId, "frame", f.id)
	b.stats.evictions.Add(1)
	b.pageTable.remove(f.key())
	f.reset()
	return nil
}

func (b *BufferpoolManager) flush(slot int) error {
	f := &b.frames[slot]
	if !f.dirty {
		return nil
	}

	if err := b.store.WritePage(f.pageId, f.fileName, b.pages[slot].data); err != nil {
		return storeErr("flush", err)
	}

	b.logger.Debug("wrote back page", "file", f.fileName, "page", f.pageId, "frame", f.id)
	b.stats.writeBacks.Add(1)
	f.dirty = false
	return nil
}

// hasReplaceableFrame reports whether a miss could be served right now.
func (b *BufferpoolManager) hasReplaceableFrame() bool {
	for i := range b.frames {
		if b.frames[i].isFree() || b.frames[i].isEvictable() {
			return true
		}
	}
	return false
}

func notResident(op, fileName string, pageId int64) error {
	return util.NewError(util.KindPageNotFound, op, pageKey{fileName: fileName, pageId: pageId}.String(), nil)
}

// storeErr classifies store failures that are not already CacheErrors as
// store io errors.
func storeErr(op string, err error) error {
	if util.KindOf(err) != util.KindUnknown {
		return err
	}
	return util.NewError(util.KindStoreIO, op, "page store failure", err)
}

type BufferpoolManager struct {
	mu        sync.Mutex
	frames    frameTable
	pages     []*Page
	pageTable pageTable
	replacer  *clockReplacer
	store     PageStore
	stats     Stats
	logger    *slog.Logger
}
