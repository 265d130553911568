package disk

import (
	"errors"
	"sync"
)

type reqOp int

const (
	opRead reqOp = iota
	opWrite
	opAllocate
	opDeallocate
)

var ErrSchedulerClosed = errors.New("disk scheduler is closed")

// NewScheduler starts a worker that runs page store requests one at a time,
// in the order they were scheduled.
func NewScheduler(diskManager *DiskManager) *DiskScheduler {
	ds := &DiskScheduler{
		reqCh:       make(chan DiskReq, 100),
		diskManager: diskManager,
		done:        make(chan struct{}),
	}

	go ds.handleDiskReq()
	return ds
}

func NewReadRequest(pageId int64, fileName string, data []byte) DiskReq {
	return DiskReq{Op: opRead, PageId: pageId, FileName: fileName, Data: data, RespCh: make(chan DiskResp, 1)}
}

func NewWriteRequest(pageId int64, fileName string, data []byte) DiskReq {
	return DiskReq{Op: opWrite, PageId: pageId, FileName: fileName, Data: data, RespCh: make(chan DiskResp, 1)}
}

// Schedule queues req without waiting for it to run. The response arrives on
// the returned channel.
func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.closed {
		go func() { req.RespCh <- DiskResp{PageId: req.PageId, Err: ErrSchedulerClosed} }()
		return req.RespCh
	}

	ds.reqCh <- req
	return req.RespCh
}

func (ds *DiskScheduler) ReadPage(pageId int64, fileName string, data []byte) error {
	resp := <-ds.Schedule(NewReadRequest(pageId, fileName, data))
	return resp.Err
}

func (ds *DiskScheduler) WritePage(pageId int64, fileName string, data []byte) error {
	resp := <-ds.Schedule(NewWriteRequest(pageId, fileName, data))
	return resp.Err
}

func (ds *DiskScheduler) AllocatePages(count int, fileName string) (int64, error) {
	req := DiskReq{Op: opAllocate, Count: count, FileName: fileName, RespCh: make(chan DiskResp, 1)}
	resp := <-ds.Schedule(req)
	return resp.PageId, resp.Err
}

func (ds *DiskScheduler) DeallocatePages(pageId int64, count int, fileName string) error {
	req := DiskReq{Op: opDeallocate, PageId: pageId, Count: count, FileName: fileName, RespCh: make(chan DiskResp, 1)}
	resp := <-ds.Schedule(req)
	return resp.Err
}

// Close stops accepting requests and waits for queued ones to finish.
func (ds *DiskScheduler) Close() {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return
	}
	ds.closed = true
	close(ds.reqCh)
	ds.mu.Unlock()

	<-ds.done
}

func (ds *DiskScheduler) handleDiskReq() {
	defer close(ds.done)

	for req := range ds.reqCh {
		var resp DiskResp

		switch req.Op {
		case opRead:
			resp.PageId = req.PageId
			resp.Err = ds.diskManager.ReadPage(req.PageId, req.FileName, req.Data)
		case opWrite:
			resp.PageId = req.PageId
			resp.Err = ds.diskManager.WritePage(req.PageId, req.FileName, req.Data)
		case opAllocate:
			resp.PageId, resp.Err = ds.diskManager.AllocatePages(req.Count, req.FileName)
		case opDeallocate:
			resp.PageId = req.PageId
			resp.Err = ds.diskManager.DeallocatePages(req.PageId, req.Count, req.FileName)
		}

		req.RespCh <- resp
	}
}

type DiskScheduler struct {
	reqCh       chan DiskReq
	diskManager *DiskManager
	done        chan struct{}

	mu     sync.RWMutex
	closed bool
}

type DiskReq struct {
	Op       reqOp
	PageId   int64
	FileName string
	Data     []byte
	Count    int
	RespCh   chan DiskResp
}

type DiskResp struct {
	PageId int64
	Err    error
}
