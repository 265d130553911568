package buffer

import "github.com/jobala/pagecache/util"

// FetchPage pins an existing page and wraps it in a guard. Unlike Pin, a
// full pool is reported as util.ErrPoolExhausted.
func (b *BufferpoolManager) FetchPage(pageId int64, fileName string) (*PageGuard, error) {
	page, ok, err := b.Pin(pageId, fileName, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.NewError(util.KindPoolExhausted, "FetchPage", pageKey{fileName: fileName, pageId: pageId}.String(), nil)
	}
	return NewPageGuard(b, pageId, fileName, page), nil
}

// NewPageGuarded allocates numPages pages like NewPage and guards the first.
func (b *BufferpoolManager) NewPageGuarded(numPages int, fileName string) (*PageGuard, error) {
	pageId, page, ok, err := b.NewPage(numPages, fileName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.NewError(util.KindPoolExhausted, "NewPageGuarded", fileName, nil)
	}
	return NewPageGuard(b, pageId, fileName, page), nil
}

func NewPageGuard(bpm *BufferpoolManager, pageId int64, fileName string, page *Page) *PageGuard {
	return &PageGuard{
		bpm:      bpm,
		pageId:   pageId,
		fileName: fileName,
		page:     page,
	}
}

func (pg *PageGuard) PageId() int64 {
	return pg.pageId
}

// GetData returns the page's bytes, or nil once the guard is dropped.
func (pg *PageGuard) GetData() []byte {
	if pg.page == nil {
		return nil
	}
	return pg.page.Data()
}

// GetDataMut returns the page's bytes and marks the page dirty on Drop. It
// returns nil once the guard is dropped.
func (pg *PageGuard) GetDataMut() []byte {
	if pg.page == nil {
		return nil
	}
	pg.dirty = true
	return pg.page.Data()
}

// Drop unpins the page. Only the first call has an effect.
func (pg *PageGuard) Drop() error {
	if pg == nil || pg.page == nil {
		return nil
	}

	err := pg.bpm.Unpin(pg.pageId, pg.fileName, pg.dirty)
	pg.page = nil
	return err
}

type PageGuard struct {
	bpm      *BufferpoolManager
	pageId   int64
	fileName string
	page     *Page
	dirty    bool
}
