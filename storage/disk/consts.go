package disk

import "errors"

const (
	PAGE_SIZE       = 4096
	INVALID_PAGE_ID = int64(-1)

	// page 0 of every file holds the file header
	HEADER_PAGE_ID = int64(0)
	FIRST_PAGE_ID  = int64(1)

	DEFAULT_MAX_PAGES = int64(1 << 16)
)

var (
	ErrInvalidPage  = errors.New("page id is not allocated")
	ErrFileNotFound = errors.New("file does not exist")
	ErrFileExists   = errors.New("file already exists")
	ErrBadPageSize  = errors.New("page data must be exactly PAGE_SIZE bytes")
	ErrBadHeader    = errors.New("file header is unreadable")
)
