package berrydb

import (
	"github.com/berrydb/berrydb/internal/page"
	"github.com/berrydb/berrydb/internal/txn"
)

// Transaction groups a set of page accesses under one commit/rollback
// boundary, obtained from Store.BeginTransaction.
type Transaction struct {
	store *Store
	inner *txn.Transaction
}

// GetPage fetches the page identified by id, pinning it in the pool until
// ReleasePage is called. fetchMode controls whether the page's current
// on-disk contents are read (FetchPageData) or skipped (IgnorePageData,
// for a page the caller is about to overwrite entirely).
func (t *Transaction) GetPage(id PageID, fetchMode FetchMode) (*Page, error) {
	buf, err := t.store.pool.pagePool.StorePage(t.store.inner, page.ID(id), page.FetchMode(fetchMode))
	if err != nil {
		return nil, err
	}
	t.inner.ClaimPage(buf, page.ID(id))
	return &Page{id: id, buf: buf, txn: t}, nil
}

// ReleasePage unpins p, making it eligible for eviction once no other
// pin references it. Callers must not use p after this call.
func (t *Transaction) ReleasePage(p *Page) {
	t.store.pool.pagePool.UnpinStorePage(p.buf)
}

// Commit closes the transaction, leaving every page it touched cached in
// the pool. It writes nothing to the store itself: a modified page reaches
// the data file when the pool evicts it. Returns ErrAlreadyClosed if already
// committed or rolled back.
func (t *Transaction) Commit() error {
	return t.inner.Commit()
}

// Rollback discards every modification this transaction made and closes
// it. Returns ErrAlreadyClosed if already committed or rolled back.
func (t *Transaction) Rollback() error {
	return t.inner.Rollback()
}

// IsClosed reports whether the transaction has committed or rolled back.
func (t *Transaction) IsClosed() bool {
	return t.inner.IsClosed()
}
