package disk

func NewScheduler(diskManager *diskManager) *DiskScheduler {
	ds := &DiskScheduler{
		reqCh:       make(chan DiskReq, 100),
		diskManager: diskManager,
	}

	go ds.handleDiskReq()
	return ds
}

func NewRequest(pageId PageID, data []byte, isWrite bool) DiskReq {
	return DiskReq{
		PageId: pageId,
		Data:   data,
		Write:  isWrite,
		RespCh: make(chan DiskResp, 1),
	}
}

func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.reqCh <- req
	return req.RespCh
}

func (ds *DiskScheduler) AllocatePage() PageID {
	return ds.diskManager.AllocatePage()
}

func (ds *DiskScheduler) DeallocatePage(pageId PageID) {
	ds.diskManager.DeallocatePage(pageId)
}

// handleDiskReq drains the request channel in arrival order, so two requests
// for the same page can never be reordered against each other.
func (ds *DiskScheduler) handleDiskReq() {
	for req := range ds.reqCh {
		if req.Write {
			err := ds.diskManager.WritePage(req.PageId, req.Data)
			req.RespCh <- DiskResp{Success: err == nil}
		} else {
			data, err := ds.diskManager.ReadPage(req.PageId)
			req.RespCh <- DiskResp{Success: err == nil, Data: data}
		}
	}
}

type DiskScheduler struct {
	reqCh       chan DiskReq
	diskManager *diskManager
}

type DiskReq struct {
	PageId PageID
	Data   []byte
	Write  bool
	RespCh chan DiskResp
}

type DiskResp struct {
	Success bool
	Data    []byte
}
