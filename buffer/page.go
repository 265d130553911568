package buffer

import "github.com/jobala/pagecache/storage/disk"

func newPage() *Page {
	return &Page{data: make([]byte, disk.PAGE_SIZE)}
}

// Data returns the page's bytes. They stay valid while the page is pinned;
// once unpinned the slot may be reused for another page.
func (p *Page) Data() []byte {
	return p.data
}

func (p *Page) zero() {
	clear(p.data)
}

type Page struct {
	data []byte
}
