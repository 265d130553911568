package buffer

import "fmt"

const INVALID_FRAME_ID = -1

func newPageTable(size int) pageTable {
	return make(pageTable, size)
}

func (pt pageTable) lookup(fileName string, pageId int64) (int, bool) {
	slot, ok := pt[pageKey{fileName: fileName, pageId: pageId}]
	return slot, ok
}

// insert panics on a duplicate key: the manager installs a page only after a
// failed lookup, so a duplicate means the table and the frames disagree.
func (pt pageTable) insert(key pageKey, slot int) {
	if existing, ok := pt[key]; ok {
		panic(fmt.Sprintf("[pageTable] [insert] %s already mapped to frame %d", key, existing))
	}
	pt[key] = slot
}

func (pt pageTable) remove(key pageKey) {
	delete(pt, key)
}

func (k pageKey) String() string {
	return fmt.Sprintf("[file %s, page %d]", k.fileName, k.pageId)
}

type pageKey struct {
	fileName string
	pageId   int64
}

type pageTable map[pageKey]int
