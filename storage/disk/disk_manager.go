package disk

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jobala/pagecache/util"
)

func NewManager(dir string, opts Options) (*DiskManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DEFAULT_MAX_PAGES
	}
	if opts.Logger == nil {
		opts.Logger = util.DiscardLogger()
	}

	return &DiskManager{
		dir:    dir,
		opts:   opts,
		files:  map[string]*pageFile{},
		logger: opts.Logger,
	}, nil
}

// CreateFile creates an empty page file holding only its header region,
// sized for the manager's MaxPages.
func (dm *DiskManager) CreateFile(fileName string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	path, err := dm.path(fileName)
	if err != nil {
		return storeErr("CreateFile", fileName, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			err = ErrFileExists
		}
		return storeErr("CreateFile", fileName, err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return storeErr("CreateFile", fileName, err)
	}

	pf := &pageFile{file: f, header: newFileHeader(dm.opts.MaxPages)}
	err = f.Truncate(pf.size())
	if err == nil {
		err = dm.writeHeader(pf)
	}
	if err != nil {
		_ = unlockFile(f)
		_ = f.Close()
		return storeErr("CreateFile", fileName, err)
	}

	dm.files[fileName] = pf
	dm.logger.Debug("created page file", "file", fileName)
	return nil
}

func (dm *DiskManager) ReadPage(pageId int64, fileName string, data []byte) error {
	if len(data) != PAGE_SIZE {
		return storeErr("ReadPage", fileName, ErrBadPageSize)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	pf, err := dm.openFile(fileName)
	if err != nil {
		return storeErr("ReadPage", fileName, err)
	}
	if !pf.header.isAllocated(pageId) {
		return pageErr("ReadPage", fileName, pageId, ErrInvalidPage)
	}

	if _, err := pf.file.ReadAt(data, pf.offset(pageId)); err != nil {
		return pageErr("ReadPage", fileName, pageId, err)
	}
	return nil
}

func (dm *DiskManager) WritePage(pageId int64, fileName string, data []byte) error {
	if len(data) != PAGE_SIZE {
		return storeErr("WritePage", fileName, ErrBadPageSize)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	pf, err := dm.openFile(fileName)
	if err != nil {
		return storeErr("WritePage", fileName, err)
	}
	if !pf.header.isAllocated(pageId) {
		return pageErr("WritePage", fileName, pageId, ErrInvalidPage)
	}

	if _, err := pf.file.WriteAt(data, pf.offset(pageId)); err != nil {
		return pageErr("WritePage", fileName, pageId, err)
	}
	if dm.opts.SyncWrites {
		if err := pf.file.Sync(); err != nil {
			return pageErr("WritePage", fileName, pageId, err)
		}
	}
	return nil
}

// AllocatePages hands out count consecutive page ids, reusing a freed run
// when one is long enough and growing the file otherwise.
func (dm *DiskManager) AllocatePages(count int, fileName string) (int64, error) {
	if count <= 0 {
		return INVALID_PAGE_ID, storeErr("AllocatePages", fileName, fmt.Errorf("page count must be positive, got %d", count))
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	pf, err := dm.openFile(fileName)
	if err != nil {
		return INVALID_PAGE_ID, storeErr("AllocatePages", fileName, err)
	}

	prev := pf.header.clone()
	first, ok := pf.header.allocate(count)
	if !ok {
		return INVALID_PAGE_ID, util.NewError(
			util.KindFileFull,
			"AllocatePages",
			fmt.Sprintf("%s: cannot allocate %d pages, %d of %d in use", fileName, count, pf.header.inUse(), pf.header.MaxPages-FIRST_PAGE_ID),
			nil,
		)
	}

	if pf.header.NumPages != prev.NumPages {
		if err := pf.file.Truncate(pf.size()); err != nil {
			pf.header = prev
			return INVALID_PAGE_ID, storeErr("AllocatePages", fileName, fmt.Errorf("error resizing page file: %w", err))
		}
	}

	if err := dm.writeHeader(pf); err != nil {
		pf.header = prev
		return INVALID_PAGE_ID, storeErr("AllocatePages", fileName, err)
	}

	dm.logger.Debug("allocated pages", "file", fileName, "first", first, "count", count)
	return first, nil
}

func (dm *DiskManager) DeallocatePages(pageId int64, count int, fileName string) error {
	if count <= 0 {
		return storeErr("DeallocatePages", fileName, fmt.Errorf("page count must be positive, got %d", count))
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	pf, err := dm.openFile(fileName)
	if err != nil {
		return storeErr("DeallocatePages", fileName, err)
	}

	for id := pageId; id < pageId+int64(count); id++ {
		if !pf.header.isAllocated(id) {
			return pageErr("DeallocatePages", fileName, id, ErrInvalidPage)
		}
	}

	prev := pf.header.clone()
	for id := pageId; id < pageId+int64(count); id++ {
		pf.header.release(id)
	}

	if err := dm.writeHeader(pf); err != nil {
		pf.header = prev
		return storeErr("DeallocatePages", fileName, err)
	}

	dm.logger.Debug("deallocated pages", "file", fileName, "first", pageId, "count", count)
	return nil
}

// NumPages returns how many data pages of the file are currently allocated.
func (dm *DiskManager) NumPages(fileName string) (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	pf, err := dm.openFile(fileName)
	if err != nil {
		return 0, storeErr("NumPages", fileName, err)
	}
	return pf.header.inUse(), nil
}

func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var err error
	for name, pf := range dm.files {
		if e := pf.file.Sync(); e != nil {
			err = errors.Join(err, fmt.Errorf("sync %s: %w", name, e))
		}
		if e := unlockFile(pf.file); e != nil {
			err = errors.Join(err, fmt.Errorf("unlock %s: %w", name, e))
		}
		if e := pf.file.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", name, e))
		}
		delete(dm.files, name)
	}
	return err
}

func (dm *DiskManager) openFile(fileName string) (*pageFile, error) {
	if pf, ok := dm.files[fileName]; ok {
		return pf, nil
	}

	path, err := dm.path(fileName)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrFileNotFound, err)
		}
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	header, err := readHeader(f)
	if err != nil {
		_ = unlockFile(f)
		_ = f.Close()
		return nil, err
	}

	pf := &pageFile{file: f, header: header}
	dm.files[fileName] = pf
	return pf, nil
}

func (dm *DiskManager) writeHeader(pf *pageFile) error {
	buf, err := encodeHeader(pf.header, dm.opts.Compression)
	if err != nil {
		return err
	}
	if _, err := pf.file.WriteAt(buf, HEADER_PAGE_ID*PAGE_SIZE); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if dm.opts.SyncWrites {
		return pf.file.Sync()
	}
	return nil
}

func readHeader(f *os.File) (fileHeader, error) {
	buf := make([]byte, PAGE_SIZE)
	if _, err := f.ReadAt(buf, HEADER_PAGE_ID*PAGE_SIZE); err != nil {
		return fileHeader{}, fmt.Errorf("reading header: %w", err)
	}

	size, err := headerSize(buf)
	if err != nil {
		return fileHeader{}, err
	}
	if size > len(buf) {
		info, err := f.Stat()
		if err != nil {
			return fileHeader{}, err
		}
		if int64(size) > info.Size() {
			return fileHeader{}, ErrBadHeader
		}
		buf = make([]byte, size)
		if _, err := f.ReadAt(buf, HEADER_PAGE_ID*PAGE_SIZE); err != nil {
			return fileHeader{}, fmt.Errorf("%w: reading header: %v", ErrBadHeader, err)
		}
	}
	return decodeHeader(buf)
}

func (dm *DiskManager) path(fileName string) (string, error) {
	if fileName == "" || filepath.Base(fileName) != fileName || fileName == "." || fileName == ".." {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return filepath.Join(dm.dir, fileName), nil
}

func storeErr(op, fileName string, err error) error {
	return util.NewError(util.KindStoreIO, op, fileName, err)
}

func pageErr(op, fileName string, pageId int64, err error) error {
	return util.NewError(util.KindStoreIO, op, fmt.Sprintf("page %d of %s", pageId, fileName), err)
}

type Options struct {
	// MaxPages bounds page ids of files this manager creates. Existing files
	// keep the bound recorded in their header.
	MaxPages    int64
	Compression Compression
	SyncWrites  bool
	Logger      *slog.Logger
}

type DiskManager struct {
	mu     sync.Mutex
	dir    string
	opts   Options
	files  map[string]*pageFile
	logger *slog.Logger
}

// offset of a data page. Data pages follow the header region.
func (pf *pageFile) offset(pageId int64) int64 {
	return (headerPages(pf.header.MaxPages) + pageId - FIRST_PAGE_ID) * PAGE_SIZE
}

// size of the file up to the high-water mark.
func (pf *pageFile) size() int64 {
	return pf.offset(pf.header.NumPages)
}

type pageFile struct {
	file   *os.File
	header fileHeader
}
