package buffer

import (
	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
)

func newFrameTable(size int) frameTable {
	frames := make(frameTable, size)
	for i := range frames {
		frames[i] = frame{id: i}
		frames[i].reset()
	}
	return frames
}

// findFreeSlot returns the lowest index holding no page.
func (ft frameTable) findFreeSlot() (int, bool) {
	for i := range ft {
		if ft[i].isFree() {
			return i, true
		}
	}
	return INVALID_FRAME_ID, false
}

func (f *frame) install(pageId int64, fileName string) {
	f.pageId = pageId
	f.fileName = fileName
	f.pins = 1
	f.dirty = false
	f.referenced = true
}

func (f *frame) pin() {
	f.pins++
	f.referenced = true
}

func (f *frame) unpin(markDirty bool) error {
	if f.pins == 0 {
		return util.NewError(util.KindNotPinned, "unpin", f.key().String(), nil)
	}

	f.pins--
	if markDirty {
		f.dirty = true
	}
	return nil
}

func (f *frame) isEvictable() bool {
	return f.pins == 0
}

func (f *frame) isFree() bool {
	return f.pageId == disk.INVALID_PAGE_ID
}

func (f *frame) key() pageKey {
	return pageKey{fileName: f.fileName, pageId: f.pageId}
}

func (f *frame) reset() {
	f.pageId = disk.INVALID_PAGE_ID
	f.fileName = ""
	f.pins = 0
	f.dirty = false
	f.referenced = false
}

type frameTable []frame

type frame struct {
	id         int
	pageId     int64
	fileName   string
	pins       int
	dirty      bool
	referenced bool
}
