// Package page implements the page buffer: the in-memory copy of a single
// on-disk page, plus the bookkeeping the page pool needs to pin it, evict
// it, and track which of the pool's four intrusive lists it currently
// belongs to.
//
// The buffer never talks to a store or a transaction directly. It only
// knows about the two interfaces below, which keeps this package free of
// a dependency on the store and transaction packages (see the design note
// on weak back-references).
package page

import "container/list"

// ID identifies a page within a single store. It is meaningless without a
// store to interpret it against.
type ID uint64

// InvalidID is never a legal page id; page 0 is reserved for a store's own
// header.
const InvalidID ID = 0

// FetchMode controls whether StorePage/AssignPageToStore reads the page's
// bytes from the store or leaves them uninitialized.
type FetchMode int

const (
	// FetchPageData reads the page's current on-disk contents.
	FetchPageData FetchMode = iota
	// IgnorePageData skips the read. The caller must mark the page dirty
	// before it is next unpinned, since its in-memory contents no longer
	// match whatever (if anything) is on disk. Used when allocating a
	// brand-new page.
	IgnorePageData
)

// TransactionRef is the callback surface a buffer's owning transaction must
// provide to the page pool. Implemented by *txn.Transaction.
type TransactionRef interface {
	// AssignPage adds buf to this transaction's page list and sets buf's
	// back-reference to it.
	AssignPage(buf *Buffer, id ID)
	// UnassignPage removes buf from this transaction's page list. Used when
	// buf's contents don't need to be preserved.
	UnassignPage(buf *Buffer)
	// UnassignPersistedPage is UnassignPage, plus clearing the dirty flag.
	// Used by the page pool after writing a dirty buffer back to the store,
	// whether or not that write succeeded.
	UnassignPersistedPage(buf *Buffer)
	// Store returns the store this transaction was opened against.
	Store() StoreRef
}

// StoreRef is the callback surface a store must provide to the page pool.
// Implemented by *store.Store.
type StoreRef interface {
	// ReadPage fills buf.data from the store's on-disk page buf.ID().
	ReadPage(buf *Buffer) error
	// WritePage writes buf.data to the store's on-disk page buf.ID().
	WritePage(buf *Buffer) error
	// Close terminates open transactions and releases file handles.
	Close() error
	// InitTransaction returns the store's pseudo-transaction, used to hold
	// pages fetched on a miss before a user transaction claims them.
	InitTransaction() TransactionRef
}

// Buffer is one page-sized cache slot. It is bound to at most one
// (transaction, page id) pair at a time; while bound, the transaction's
// Store() identifies the owning store.
//
// All policy (when to pin, evict, or writeback) lives in the page pool.
// Buffer only tracks state.
type Buffer struct {
	id       ID
	data     []byte
	pinCount uint32
	dirty    bool

	transaction TransactionRef

	// Intrusive list membership. At most one of freeElem/lruElem is non-nil
	// at a time (a buffer lives in the free list or the LRU list, never
	// both), matching invariants 1-3 in spec.md §8. pagesElem and logElem
	// belong to whichever transaction currently owns the buffer.
	freeElem, lruElem  *list.Element
	pagesElem, logElem *list.Element
}

// New allocates a page-sized buffer, pinned once, unbound, clean.
//
// Go's allocator already returns slices aligned for native word access, so
// unlike the original C++ implementation there is no manual alignment dance
// here.
func New(size int) *Buffer {
	return &Buffer{
		data:     make([]byte, size),
		pinCount: 1,
	}
}

// Release marks the buffer's storage as reclaimable. Callers must ensure
// the buffer is unbound, unpinned, and in no list before calling this.
func (b *Buffer) Release() {
	b.data = nil
}

// AddPin increments the pin count.
func (b *Buffer) AddPin() {
	b.pinCount++
}

// RemovePin decrements the pin count. It never takes the count below zero.
func (b *Buffer) RemovePin() {
	if b.pinCount > 0 {
		b.pinCount--
	}
}

// IsUnpinned reports whether the pin count is zero.
func (b *Buffer) IsUnpinned() bool {
	return b.pinCount == 0
}

// PinCount returns the current pin count, for diagnostics and tests.
func (b *Buffer) PinCount() uint32 {
	return b.pinCount
}

// IsBound reports whether the buffer currently caches a (transaction, page
// id) pair.
func (b *Buffer) IsBound() bool {
	return b.transaction != nil
}

// ID returns the page id the buffer is bound to. Only valid while IsBound.
func (b *Buffer) ID() ID {
	return b.id
}

// Transaction returns the buffer's owning transaction, or nil if unbound.
func (b *Buffer) Transaction() TransactionRef {
	return b.transaction
}

// Store returns the store the buffer is bound to, or nil if unbound.
func (b *Buffer) Store() StoreRef {
	if b.transaction == nil {
		return nil
	}
	return b.transaction.Store()
}

// WillCacheStoreData binds the buffer to (transaction, id). Precondition:
// the buffer must currently be unbound. Does not read any data.
func (b *Buffer) WillCacheStoreData(transaction TransactionRef, id ID) {
	b.transaction = transaction
	b.id = id
}

// DoesNotCacheStoreData clears the buffer's binding. Precondition: bound,
// and not dirty.
func (b *Buffer) DoesNotCacheStoreData() {
	b.transaction = nil
}

// Data returns the buffer's contents for reading.
func (b *Buffer) Data() []byte {
	return b.data
}

// MutableData returns the buffer's contents for writing in place.
func (b *Buffer) MutableData() []byte {
	return b.data
}

// IsDirty reports whether the buffer's contents differ from the on-disk
// page.
func (b *Buffer) IsDirty() bool {
	return b.dirty
}

// MarkDirty flags the buffer as holding modifications not yet on disk.
func (b *Buffer) MarkDirty() {
	b.dirty = true
}

// MarkClean flags the buffer as matching the on-disk page.
func (b *Buffer) MarkClean() {
	b.dirty = false
}

// --- intrusive list membership, used only by the pagepool and txn packages ---

// FreeElem returns the buffer's element in the pool's free list, or nil.
func (b *Buffer) FreeElem() *list.Element { return b.freeElem }

// SetFreeElem records the buffer's element in the pool's free list.
func (b *Buffer) SetFreeElem(e *list.Element) { b.freeElem = e }

// LRUElem returns the buffer's element in the pool's LRU list, or nil.
func (b *Buffer) LRUElem() *list.Element { return b.lruElem }

// SetLRUElem records the buffer's element in the pool's LRU list.
func (b *Buffer) SetLRUElem(e *list.Element) { b.lruElem = e }

// PagesElem returns the buffer's element in its owning transaction's page
// list, or nil.
func (b *Buffer) PagesElem() *list.Element { return b.pagesElem }

// SetPagesElem records the buffer's element in its owning transaction's
// page list.
func (b *Buffer) SetPagesElem(e *list.Element) { b.pagesElem = e }

// LogElem returns the buffer's element in its owning transaction's
// log-dirty list, or nil.
func (b *Buffer) LogElem() *list.Element { return b.logElem }

// SetLogElem records the buffer's element in its owning transaction's
// log-dirty list.
func (b *Buffer) SetLogElem(e *list.Element) { b.logElem = e }
