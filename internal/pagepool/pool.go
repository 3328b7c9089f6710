// Package pagepool implements the page pool: a fixed-capacity,
// process-shared cache of fixed-size page buffers mediating all access
// between stores and transactions.
//
// This package only depends on the page package's StoreRef/TransactionRef
// interfaces, never on the concrete store or txn packages, so it stays the
// leaf of the dependency graph that store and txn both build on.
package pagepool

import (
	"container/list"
	"sync"

	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/logging"
	"github.com/berrydb/berrydb/internal/metrics"
	"github.com/berrydb/berrydb/internal/page"

	"go.uber.org/zap"
)

// key identifies a cached buffer by (store, page id). StoreRef values hold
// pointers, so the struct is comparable and usable as a map key.
type key struct {
	store page.StoreRef
	id    page.ID
}

// Pool is a bounded cache of page buffers keyed by (store, page-id). It
// allocates, evicts, pins/unpins, fetches, and writes back pages on behalf
// of stores and transactions.
type Pool struct {
	mu sync.Mutex

	pageSize int
	capacity int
	count    int // allocated buffer count; count <= capacity

	byKey map[key]*page.Buffer

	freeList *list.List // unbound, unpinned buffers; LIFO reuse
	lruList  *list.List // bound, unpinned buffers; FIFO eviction

	log     *zap.Logger
	metrics *metrics.Pool
}

// New creates a page pool with pages of pageSize bytes and room for at most
// capacity buffers. pageSize must be a power of two.
func New(pageSize, capacity int, log *zap.Logger, m *metrics.Pool) *Pool {
	if log == nil {
		log = logging.Nop()
	}
	if m == nil {
		m = metrics.NewPool(nil)
	}
	return &Pool{
		pageSize: pageSize,
		capacity: capacity,
		byKey:    make(map[key]*page.Buffer, capacity),
		freeList: list.New(),
		lruList:  list.New(),
		log:      log,
		metrics:  m,
	}
}

// PageSize returns the pool's fixed page size in bytes.
func (p *Pool) PageSize() int { return p.pageSize }

// Capacity returns the maximum number of buffers the pool will allocate.
func (p *Pool) Capacity() int { return p.capacity }

// PinnedPages returns the number of buffers with a non-zero pin count. Used
// by the resource-pool shell to assert a clean teardown.
func (p *Pool) PinnedPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count - p.freeList.Len() - p.lruList.Len()
}

// AllocatedPages returns the number of buffers ever created.
func (p *Pool) AllocatedPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// UnusedPages returns the number of buffers sitting in the free list.
func (p *Pool) UnusedPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeList.Len()
}

// StorePage returns a pinned buffer caching (store, id). A cache hit
// re-pins the existing buffer; a miss allocates, grows, or evicts to make
// room, then reads the page per fetchMode. Returns ErrPoolFull if no
// buffer is available and nothing can be evicted.
func (p *Pool) StorePage(store page.StoreRef, id page.ID, fetchMode page.FetchMode) (*page.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{store, id}
	if buf, ok := p.byKey[k]; ok {
		p.pinStorePageLocked(buf)
		p.metrics.Hit()
		p.publishOccupancyLocked()
		return buf, nil
	}
	p.metrics.Miss()

	buf := p.allocPageLocked()
	if buf == nil {
		p.publishOccupancyLocked()
		return nil, errs.ErrPoolFull
	}

	if err := p.assignPageToStoreLocked(buf, store, id, fetchMode); err != nil {
		// The buffer never made it into byKey, so it is still unbound;
		// return it to the free list.
		p.unpinUnassignedPageLocked(buf)
		p.publishOccupancyLocked()
		return nil, err
	}
	p.publishOccupancyLocked()
	return buf, nil
}

// publishOccupancyLocked refreshes the free/lru/pinned gauges. Called while
// p.mu is held, after every mutation of the free list, LRU list, or
// allocated count.
func (p *Pool) publishOccupancyLocked() {
	free := p.freeList.Len()
	lru := p.lruList.Len()
	p.metrics.SetOccupancy(free, lru, p.count-free-lru)
}

// PinStorePage ensures an already-held buffer stays resident: if it is
// currently unpinned (sitting in the LRU list), it is removed from that
// list before being pinned.
func (p *Pool) PinStorePage(buf *page.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinStorePageLocked(buf)
	p.publishOccupancyLocked()
}

func (p *Pool) pinStorePageLocked(buf *page.Buffer) {
	// If the page is already pinned, it is in no list. If unpinned, it must
	// be in the LRU list; remove it before re-pinning.
	if buf.IsUnpinned() {
		p.lruList.Remove(buf.LRUElem())
		buf.SetLRUElem(nil)
	}
	buf.AddPin()
}

// PinTransactionPages pins every buffer in a transaction's page list. Used
// at commit time so none of the transaction's pages can be evicted while
// they are being persisted.
func (p *Pool) PinTransactionPages(pages *list.List) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for e := pages.Front(); e != nil; {
		next := e.Next() // fetch next before acting, in case current is removed
		buf := e.Value.(*page.Buffer)
		p.pinStorePageLocked(buf)
		e = next
	}
	p.publishOccupancyLocked()
}

// UnpinStorePage decrements the pin count of a buffer bound to a store. If
// the count reaches zero, the buffer moves to the LRU list.
func (p *Pool) UnpinStorePage(buf *page.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf.RemovePin()
	if buf.IsUnpinned() {
		buf.SetLRUElem(p.lruList.PushBack(buf))
	}
	p.publishOccupancyLocked()
}

// UnpinUnassignedPage decrements the pin count of a buffer with no store
// binding. If the count reaches zero, the buffer moves to the free list.
func (p *Pool) UnpinUnassignedPage(buf *page.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpinUnassignedPageLocked(buf)
	p.publishOccupancyLocked()
}

func (p *Pool) unpinUnassignedPageLocked(buf *page.Buffer) {
	buf.RemovePin()
	if buf.IsUnpinned() {
		buf.SetFreeElem(p.freeList.PushBack(buf))
	}
}

// UnassignPageFromStore removes a bound buffer's (store, page-id) binding.
// If the buffer is dirty, its contents are written back to the store
// first; on writeback failure the store is closed, but this call still
// reports success to the caller that triggered it (the failure only
// becomes visible on the next operation against the now-closed store).
// Either way a dirty buffer is unassigned through UnassignPersistedPage,
// which clears its dirty flag, so after a failed writeback its unwritten
// contents are discarded.
func (p *Pool) UnassignPageFromStore(buf *page.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unassignPageFromStoreLocked(buf)
	p.publishOccupancyLocked()
}

func (p *Pool) unassignPageFromStoreLocked(buf *page.Buffer) {
	transaction := buf.Transaction()
	store := transaction.Store()
	delete(p.byKey, key{store, buf.ID()})

	if buf.IsDirty() {
		err := store.WritePage(buf)
		transaction.UnassignPersistedPage(buf)
		if err != nil {
			p.metrics.WritebackFailure()
			p.log.Warn("writeback failed during eviction; closing store",
				zap.Uint64("page_id", uint64(buf.ID())), zap.Error(err))
			store.Close()
		}
	} else {
		transaction.UnassignPage(buf)
	}
}

// AllocPage returns a free buffer, pinned once: from the free list (LIFO)
// if non-empty, else a freshly allocated buffer if under capacity, else
// the oldest LRU victim (FIFO) after evicting it from its store. Returns
// nil if the pool is exhausted by pinned pages.
func (p *Pool) AllocPage() *page.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := p.allocPageLocked()
	p.publishOccupancyLocked()
	return buf
}

func (p *Pool) allocPageLocked() *page.Buffer {
	// The free list is used as a stack (LIFO): the most recently freed
	// buffer has the best chance of still being warm in CPU caches.
	if e := p.freeList.Back(); e != nil {
		buf := e.Value.(*page.Buffer)
		p.freeList.Remove(e)
		buf.SetFreeElem(nil)
		buf.AddPin()
		return buf
	}

	if p.count < p.capacity {
		p.count++
		return page.New(p.pageSize)
	}

	if e := p.lruList.Front(); e != nil {
		buf := e.Value.(*page.Buffer)
		buf.AddPin()
		p.lruList.Remove(e)
		buf.SetLRUElem(nil)
		p.metrics.Eviction()
		p.unassignPageFromStoreLocked(buf)
		return buf
	}

	return nil
}

// FetchStorePage loads a buffer's contents per fetchMode: a real read for
// FetchPageData, nothing for IgnorePageData (the caller is contractually
// required to mark the buffer dirty before it is next unpinned).
func (p *Pool) FetchStorePage(buf *page.Buffer, fetchMode page.FetchMode) error {
	if fetchMode == page.IgnorePageData {
		return nil
	}
	return buf.Transaction().Store().ReadPage(buf)
}

// AssignPageToStore binds a free buffer to (store, id) via the store's init
// transaction, then fetches its data per fetchMode. On fetch failure the
// buffer is unassigned again and the error is returned; the buffer is left
// pinned and unbound for the caller to dispose of.
func (p *Pool) AssignPageToStore(buf *page.Buffer, store page.StoreRef, id page.ID, fetchMode page.FetchMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assignPageToStoreLocked(buf, store, id, fetchMode)
}

func (p *Pool) assignPageToStoreLocked(buf *page.Buffer, store page.StoreRef, id page.ID, fetchMode page.FetchMode) error {
	transaction := store.InitTransaction()
	transaction.AssignPage(buf, id)

	if err := p.FetchStorePage(buf, fetchMode); err != nil {
		transaction.UnassignPage(buf)
		return err
	}

	p.byKey[key{store, id}] = buf
	return nil
}

// Close releases every buffer still sitting in the free and LRU lists.
// PinnedPages() must be zero, i.e. every store using this pool must
// already have been closed.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for e := p.freeList.Front(); e != nil; {
		next := e.Next()
		buf := e.Value.(*page.Buffer)
		buf.Release()
		e = next
	}
	for e := p.lruList.Front(); e != nil; {
		next := e.Next()
		buf := e.Value.(*page.Buffer)
		buf.Release()
		e = next
	}
	p.freeList.Init()
	p.lruList.Init()
}
