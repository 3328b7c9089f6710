// Package txn implements the transaction adaptor: the object a store hands
// out to group a set of page pins under one commit/rollback boundary, plus
// the store's own pseudo "init transaction" that holds pages between a pool
// miss and the moment a real transaction claims them.
//
// Grounded on ShubhamNegi4-DaemonDB's storage_engine/transaction_manager
// package for the active/committed/aborted state machine shape, generalized
// here to also own the two intrusive lists (pages, log-dirty) the page pool
// needs.
package txn

import (
	"container/list"
	"fmt"

	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/logging"
	"github.com/berrydb/berrydb/internal/page"
	"github.com/berrydb/berrydb/internal/pagepool"

	"go.uber.org/zap"
)

// State is a transaction's position in its active -> committed|rolled-back
// lifecycle. Both terminal states imply the transaction is closed.
type State uint8

const (
	Active State = iota
	Committed
	RolledBack
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// StoreHandle is the callback surface a transaction needs from its owning
// store, beyond what page.StoreRef already provides: removing itself from
// the store's open-transaction bookkeeping on close. Implemented by
// *store.Store.
type StoreHandle interface {
	page.StoreRef
	// TransactionClosed notifies the store that t is no longer open, so
	// the store can drop it from its active-transaction set.
	TransactionClosed(t *Transaction)
}

// Transaction groups a set of pinned pages under one commit/rollback
// boundary. A store's "init transaction" is a Transaction like any other,
// used internally by the page pool to hold a page between AssignPageToStore
// and the moment a caller's real transaction claims it.
type Transaction struct {
	store StoreHandle
	pool  *pagepool.Pool
	state State

	// pages lists every buffer currently assigned to this transaction.
	// logDirty lists the subset that has been modified since the
	// transaction began, in the order they were first dirtied; a future
	// log/journal layer would replay this list at commit time (see
	// SPEC_FULL.md §4.5.NEW).
	pages    *list.List
	logDirty *list.List

	log *zap.Logger
}

// New creates an active transaction against store, using pool to pin and
// unpin the pages it comes to own.
func New(store StoreHandle, pool *pagepool.Pool, log *zap.Logger) *Transaction {
	if log == nil {
		log = logging.Nop()
	}
	return &Transaction{
		store:    store,
		pool:     pool,
		state:    Active,
		pages:    list.New(),
		logDirty: list.New(),
		log:      log,
	}
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State { return t.state }

// IsClosed reports whether the transaction has committed or rolled back.
func (t *Transaction) IsClosed() bool { return t.state != Active }

// Store returns the store this transaction was opened against, satisfying
// page.TransactionRef.
func (t *Transaction) Store() page.StoreRef { return t.store }

// AssignPage binds buf to (t, id) and adds it to t's page list, satisfying
// page.TransactionRef.
func (t *Transaction) AssignPage(buf *page.Buffer, id page.ID) {
	buf.WillCacheStoreData(t, id)
	buf.SetPagesElem(t.pages.PushBack(buf))
}

// ClaimPage transfers ownership of buf to t, first releasing it from
// whatever transaction currently owns it (the store's init transaction
// after a fresh pool fetch, or another transaction's prior ownership on a
// cache hit — see SPEC_FULL.md §4.5.NEW). Safe to call whether or not buf
// is already bound.
func (t *Transaction) ClaimPage(buf *page.Buffer, id page.ID) {
	if prev := buf.Transaction(); prev != nil {
		if e := buf.LogElem(); e != nil {
			// The dirty-tracking list belongs to whichever *Transaction
			// struct created it; only that instance's logDirty can hold
			// e, so remove it through prev's list rather than t's.
			if pt, ok := prev.(*Transaction); ok {
				pt.logDirty.Remove(e)
			}
			buf.SetLogElem(nil)
		}
		prev.UnassignPage(buf)
	}
	t.AssignPage(buf, id)
}

// UnassignPage removes buf from t's page list and clears its binding,
// satisfying page.TransactionRef. Used when buf's contents need not be
// preserved (a rollback, or a page never fetched successfully).
func (t *Transaction) UnassignPage(buf *page.Buffer) {
	t.removeFromPagesList(buf)
	buf.DoesNotCacheStoreData()
}

// UnassignPersistedPage is UnassignPage plus clearing the dirty flag and
// removing buf from the log-dirty list, satisfying page.TransactionRef.
// The page pool calls it after writing a dirty buffer back to the store,
// whether or not that write succeeded.
func (t *Transaction) UnassignPersistedPage(buf *page.Buffer) {
	if e := buf.LogElem(); e != nil {
		t.logDirty.Remove(e)
		buf.SetLogElem(nil)
	}
	buf.MarkClean()
	t.UnassignPage(buf)
}

func (t *Transaction) removeFromPagesList(buf *page.Buffer) {
	if e := buf.PagesElem(); e != nil {
		t.pages.Remove(e)
		buf.SetPagesElem(nil)
	}
}

// MarkPageDirty flags buf as modified under this transaction and adds it to
// the log-dirty list, if it isn't there already. Callers must hold a pin on
// buf and buf must be assigned to t.
func (t *Transaction) MarkPageDirty(buf *page.Buffer) {
	buf.MarkDirty()
	if buf.LogElem() == nil {
		buf.SetLogElem(t.logDirty.PushBack(buf))
	}
}

// Commit pins every page this transaction owns so none can be evicted out
// from under it mid-commit, walks the log-dirty list (a no-op today; see
// SPEC_FULL.md §4.5.NEW), then releases the commit-time pin on each page.
// Pages stay bound to the store and in this transaction's page list — a
// commit does not evict its pages, it just makes them idle again so a
// later lookup against the same store is a cache hit, not a re-read.
//
// Returns ErrAlreadyClosed if the transaction has already committed or
// rolled back.
func (t *Transaction) Commit() error {
	if t.state != Active {
		return fmt.Errorf("commit transaction: %w", errs.ErrAlreadyClosed)
	}

	t.pool.PinTransactionPages(t.pages)
	for e := t.logDirty.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*page.Buffer) // log replay attaches here once a journal exists
	}
	for e := t.pages.Front(); e != nil; e = e.Next() {
		t.pool.UnpinStorePage(e.Value.(*page.Buffer))
	}

	t.state = Committed
	t.log.Debug("transaction committed")
	t.store.TransactionClosed(t)
	return nil
}

// Rollback discards every page this transaction owns without writing back
// dirty content: each page is evicted from the store's cache outright
// (rather than merely unpinned), since its in-memory contents no longer
// match either the modified-but-uncommitted state or the on-disk page, and
// the only safe way to forget that is to force the next access to re-read
// from disk.
//
// Returns ErrAlreadyClosed if the transaction has already committed or
// rolled back.
func (t *Transaction) Rollback() error {
	if t.state != Active {
		return fmt.Errorf("rollback transaction: %w", errs.ErrAlreadyClosed)
	}

	for e := t.pages.Front(); e != nil; {
		next := e.Next()
		buf := e.Value.(*page.Buffer)
		buf.MarkClean() // discard modifications; never write them back
		if le := buf.LogElem(); le != nil {
			t.logDirty.Remove(le)
			buf.SetLogElem(nil)
		}
		// A page a caller has already released sits unpinned in the
		// pool's LRU list; pin it back out of that list before
		// unassigning so the pool's bookkeeping stays consistent, then
		// release the pin again so it lands in the free list.
		t.pool.PinStorePage(buf)
		t.pool.UnassignPageFromStore(buf)
		t.pool.UnpinUnassignedPage(buf)
		e = next
	}

	t.state = RolledBack
	t.log.Debug("transaction rolled back")
	t.store.TransactionClosed(t)
	return nil
}
