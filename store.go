package berrydb

import (
	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/store"
)

// Store is a handle to one open BerryDB store (one data file plus its
// companion log file), obtained from Pool.OpenStore.
type Store struct {
	pool   *Pool
	inner  *store.Store
	closed bool
}

// BeginTransaction starts a new transaction against this store.
func (s *Store) BeginTransaction() *Transaction {
	return &Transaction{store: s, inner: s.inner.BeginTransaction()}
}

// AllocatePageID reserves a fresh page id for a caller about to create a
// new page. It is the caller's responsibility to then fetch that id with
// FetchMode IgnorePageData and mark it dirty.
func (s *Store) AllocatePageID() PageID {
	return PageID(s.inner.AllocatePageID())
}

// Close rolls back every open transaction against this store, closes its
// files, and deregisters it from the owning pool. Returns ErrAlreadyClosed
// if already closed.
func (s *Store) Close() error {
	if s.closed {
		return errs.ErrAlreadyClosed
	}
	s.closed = true
	s.pool.storeClosed(s)
	return s.inner.Close()
}
