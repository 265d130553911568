package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/golang/snappy"
	"github.com/jobala/pagecache/util"
	"github.com/pierrec/lz4/v4"
)

type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionLZ4
)

const (
	headerMagic = uint32(0x50474348)

	// header region layout, starting at page 0:
	// [0]: compression type
	// [1-4]: payload length
	// [5-8]: uncompressed payload length
	// [9+]: msgpack encoded fileHeader, possibly compressed
	headerPrefixSize = 9

	// upper bound on the msgpack framing around the bitmap
	headerFieldsSize = 128
)

func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	}
	return CompressionNone, fmt.Errorf("unsupported compression: %q (must be none, snappy, or lz4)", name)
}

func (c Compression) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

func newFileHeader(maxPages int64) fileHeader {
	return fileHeader{
		Magic:     headerMagic,
		NumPages:  FIRST_PAGE_ID,
		MaxPages:  maxPages,
		Allocated: make([]byte, (maxPages+7)/8),
	}
}

// headerPages is the number of pages reserved for the header of a file
// holding up to maxPages page ids. It covers an incompressible bitmap.
func headerPages(maxPages int64) int64 {
	size := int64(headerPrefixSize+headerFieldsSize) + (maxPages+7)/8
	return (size + PAGE_SIZE - 1) / PAGE_SIZE
}

func (h *fileHeader) isAllocated(pageId int64) bool {
	if pageId < FIRST_PAGE_ID || pageId >= h.NumPages {
		return false
	}
	return h.Allocated[pageId/8]&(1<<(pageId%8)) != 0
}

func (h *fileHeader) set(pageId int64) {
	h.Allocated[pageId/8] |= 1 << (pageId % 8)
}

func (h *fileHeader) release(pageId int64) {
	h.Allocated[pageId/8] &^= 1 << (pageId % 8)
}

// allocate marks count consecutive ids as allocated. It takes the lowest
// free run below the high-water mark, and otherwise raises the mark. ok is
// false when the run would pass MaxPages.
func (h *fileHeader) allocate(count int) (int64, bool) {
	run := int64(0)
	for id := FIRST_PAGE_ID; id < h.NumPages; id++ {
		if h.isAllocated(id) {
			run = 0
			continue
		}
		run++
		if run == int64(count) {
			first := id - run + 1
			for i := first; i <= id; i++ {
				h.set(i)
			}
			return first, true
		}
	}

	first := h.NumPages
	if first+int64(count) > h.MaxPages {
		return INVALID_PAGE_ID, false
	}
	h.NumPages += int64(count)
	for id := first; id < h.NumPages; id++ {
		h.set(id)
	}
	return first, true
}

// inUse counts allocated data pages.
func (h *fileHeader) inUse() int64 {
	n := 0
	for _, b := range h.Allocated {
		n += bits.OnesCount8(b)
	}
	return int64(n)
}

func (h fileHeader) clone() fileHeader {
	h.Allocated = bytes.Clone(h.Allocated)
	return h
}

// encodeHeader returns the header region, padded to whole pages.
func encodeHeader(h fileHeader, c Compression) ([]byte, error) {
	raw, err := util.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	payload, used, err := compress(raw, c)
	if err != nil {
		return nil, err
	}
	size := headerPrefixSize + len(payload)
	if reserved := headerPages(h.MaxPages) * PAGE_SIZE; int64(size) > reserved {
		return nil, fmt.Errorf("header needs %d bytes, %d reserved", size, reserved)
	}

	buf := make([]byte, (size+PAGE_SIZE-1)/PAGE_SIZE*PAGE_SIZE)
	buf[0] = byte(used)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(raw)))
	copy(buf[headerPrefixSize:], payload)
	return buf, nil
}

// headerSize reads the total encoded header length from the prefix.
func headerSize(prefix []byte) (int, error) {
	if len(prefix) < headerPrefixSize {
		return 0, ErrBadHeader
	}
	return headerPrefixSize + int(binary.LittleEndian.Uint32(prefix[1:5])), nil
}

func decodeHeader(page []byte) (fileHeader, error) {
	size, err := headerSize(page)
	if err != nil {
		return fileHeader{}, err
	}
	if size > len(page) {
		return fileHeader{}, ErrBadHeader
	}

	c := Compression(page[0])
	payloadLen := size - headerPrefixSize
	rawLen := int(binary.LittleEndian.Uint32(page[5:9]))

	raw, err := decompress(page[headerPrefixSize:headerPrefixSize+payloadLen], rawLen, c)
	if err != nil {
		return fileHeader{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}

	h, err := util.ToStruct[fileHeader](raw)
	if err != nil {
		return fileHeader{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if h.Magic != headerMagic || h.NumPages < FIRST_PAGE_ID || h.NumPages > h.MaxPages ||
		int64(len(h.Allocated)) != (h.MaxPages+7)/8 {
		return fileHeader{}, ErrBadHeader
	}
	return h, nil
}

// compress returns the payload and the compression actually applied. Data
// that does not shrink is stored uncompressed.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil

	case CompressionSnappy:
		out := snappy.Encode(nil, data)
		if len(out) >= len(data) {
			return data, CompressionNone, nil
		}
		return out, CompressionSnappy, nil

	case CompressionLZ4:
		out := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, out, nil)
		if err != nil {
			return nil, c, fmt.Errorf("lz4 compression failed: %w", err)
		}
		// n == 0 means the block is incompressible
		if n == 0 || n >= len(data) {
			return data, CompressionNone, nil
		}
		return out[:n], CompressionLZ4, nil
	}

	return nil, c, fmt.Errorf("unsupported compression type: %d", c)
}

func decompress(data []byte, rawLen int, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil

	case CompressionSnappy:
		return snappy.Decode(nil, data)

	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return out[:n], nil
	}

	return nil, fmt.Errorf("unsupported compression type: %d", c)
}

// fileHeader is persisted at the start of every page file.
type fileHeader struct {
	Magic uint32 `msgpack:"magic"`
	// NumPages is the high-water mark: ids below it have been handed out.
	NumPages int64 `msgpack:"num_pages"`
	// MaxPages bounds page ids. It is fixed when the file is created.
	MaxPages int64 `msgpack:"max_pages"`
	// bit i is set while page id i is allocated
	Allocated []byte `msgpack:"allocated"`
}
