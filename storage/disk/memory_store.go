package disk

import (
	"fmt"
	"sync"

	"github.com/jobala/pagecache/util"
)

// MemoryStore keeps page files in memory. It follows the same id and error
// rules as DiskManager: ids start at FIRST_PAGE_ID and unallocated ids fail.
func NewMemoryStore(maxPages int64) *MemoryStore {
	if maxPages <= 0 {
		maxPages = DEFAULT_MAX_PAGES
	}
	return &MemoryStore{
		maxPages: maxPages,
		files:    map[string]*memFile{},
	}
}

func (m *MemoryStore) CreateFile(fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[fileName]; ok {
		return storeErr("CreateFile", fileName, ErrFileExists)
	}
	m.files[fileName] = &memFile{header: newFileHeader(m.maxPages), pages: map[int64][]byte{}}
	return nil
}

func (m *MemoryStore) ReadPage(pageId int64, fileName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.page(fileName, pageId, "ReadPage")
	if err != nil {
		return err
	}
	if len(data) != PAGE_SIZE {
		return storeErr("ReadPage", fileName, ErrBadPageSize)
	}

	if stored, ok := f.pages[pageId]; ok {
		copy(data, stored)
	} else {
		clear(data)
	}
	return nil
}

func (m *MemoryStore) WritePage(pageId int64, fileName string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.page(fileName, pageId, "WritePage")
	if err != nil {
		return err
	}
	if len(data) != PAGE_SIZE {
		return storeErr("WritePage", fileName, ErrBadPageSize)
	}

	f.pages[pageId] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) AllocatePages(count int, fileName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count <= 0 {
		return INVALID_PAGE_ID, storeErr("AllocatePages", fileName, fmt.Errorf("page count must be positive, got %d", count))
	}
	f, ok := m.files[fileName]
	if !ok {
		return INVALID_PAGE_ID, storeErr("AllocatePages", fileName, ErrFileNotFound)
	}

	first, ok := f.header.allocate(count)
	if !ok {
		return INVALID_PAGE_ID, util.NewError(util.KindFileFull, "AllocatePages", fmt.Sprintf("%s: cannot allocate %d pages", fileName, count), nil)
	}
	return first, nil
}

func (m *MemoryStore) DeallocatePages(pageId int64, count int, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count <= 0 {
		return storeErr("DeallocatePages", fileName, fmt.Errorf("page count must be positive, got %d", count))
	}
	for id := pageId; id < pageId+int64(count); id++ {
		if _, err := m.page(fileName, id, "DeallocatePages"); err != nil {
			return err
		}
	}

	f := m.files[fileName]
	for id := pageId; id < pageId+int64(count); id++ {
		f.header.release(id)
		delete(f.pages, id)
	}
	return nil
}

func (m *MemoryStore) page(fileName string, pageId int64, op string) (*memFile, error) {
	f, ok := m.files[fileName]
	if !ok {
		return nil, storeErr(op, fileName, ErrFileNotFound)
	}
	if !f.header.isAllocated(pageId) {
		return nil, pageErr(op, fileName, pageId, ErrInvalidPage)
	}
	return f, nil
}

type MemoryStore struct {
	mu       sync.Mutex
	maxPages int64
	files    map[string]*memFile
}

type memFile struct {
	header fileHeader
	pages  map[int64][]byte
}
