package txn

import (
	"errors"
	"testing"

	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/page"
	"github.com/berrydb/berrydb/internal/pagepool"
)

// testStore is a minimal StoreHandle backed by an in-memory byte map,
// enough to drive real pagepool.Pool instances in these tests.
type testStore struct {
	pages      map[page.ID][]byte
	initTxn    *Transaction
	closedTxns []*Transaction
}

func newTestStoreAndPool(capacity int) (*testStore, *pagepool.Pool) {
	pool := pagepool.New(64, capacity, nil, nil)
	s := &testStore{pages: make(map[page.ID][]byte)}
	s.initTxn = New(s, pool, nil)
	return s, pool
}

func (s *testStore) ReadPage(buf *page.Buffer) error {
	if data, ok := s.pages[buf.ID()]; ok {
		copy(buf.MutableData(), data)
	}
	return nil
}

func (s *testStore) WritePage(buf *page.Buffer) error {
	cp := append([]byte(nil), buf.Data()...)
	s.pages[buf.ID()] = cp
	return nil
}

func (s *testStore) Close() error { return nil }

func (s *testStore) InitTransaction() page.TransactionRef { return s.initTxn }

func (s *testStore) TransactionClosed(t *Transaction) {
	s.closedTxns = append(s.closedTxns, t)
}

func TestCommitUnpinsButKeepsPagesCached(t *testing.T) {
	store, pool := newTestStoreAndPool(4)
	tx := New(store, pool, nil)

	buf, err := pool.StorePage(store, 1, page.FetchPageData)
	if err != nil {
		t.Fatalf("StorePage: %v", err)
	}
	tx.ClaimPage(buf, 1)
	buf.MutableData()[0] = 7
	tx.MarkPageDirty(buf)

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if buf.PinCount() != 0 {
		t.Errorf("PinCount after commit: expected 0, got %d", buf.PinCount())
	}
	if !tx.IsClosed() {
		t.Error("expected transaction to be closed after commit")
	}
	if tx.State() != Committed {
		t.Errorf("State: expected Committed, got %v", tx.State())
	}

	// Page stays cached: a second fetch is a hit, same buffer.
	buf2, err := pool.StorePage(store, 1, page.FetchPageData)
	if err != nil {
		t.Fatalf("StorePage (after commit): %v", err)
	}
	if buf2 != buf {
		t.Error("expected the committed page to remain cached (cache hit)")
	}
}

func TestCommitTwiceFails(t *testing.T) {
	store, pool := newTestStoreAndPool(4)
	tx := New(store, pool, nil)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, errs.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed on double commit, got %v", err)
	}
}

func TestRollbackEvictsDirtyPagesWithoutWriteback(t *testing.T) {
	store, pool := newTestStoreAndPool(4)
	tx := New(store, pool, nil)

	buf, err := pool.StorePage(store, 1, page.FetchPageData)
	if err != nil {
		t.Fatalf("StorePage: %v", err)
	}
	tx.ClaimPage(buf, 1)
	buf.MutableData()[0] = 9
	tx.MarkPageDirty(buf)

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, wrote := store.pages[1]; wrote {
		t.Error("rollback must never write dirty content back to the store")
	}
	if tx.State() != RolledBack {
		t.Errorf("State: expected RolledBack, got %v", tx.State())
	}
}

func TestRollbackNotifiesStore(t *testing.T) {
	store, pool := newTestStoreAndPool(4)
	tx := New(store, pool, nil)
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if len(store.closedTxns) != 1 || store.closedTxns[0] != tx {
		t.Error("expected the store to be notified that tx closed")
	}
}

func TestClaimPageTransfersOwnershipFromInitTransaction(t *testing.T) {
	store, pool := newTestStoreAndPool(4)

	// A fresh fetch binds the page to the store's init transaction.
	buf, err := pool.StorePage(store, 1, page.IgnorePageData)
	if err != nil {
		t.Fatalf("StorePage: %v", err)
	}
	if buf.Transaction() != page.TransactionRef(store.initTxn) {
		t.Fatal("expected a freshly fetched page to be owned by the init transaction")
	}

	user := New(store, pool, nil)
	user.ClaimPage(buf, 1)

	if buf.Transaction() != page.TransactionRef(user) {
		t.Error("expected ClaimPage to transfer ownership to the claiming transaction")
	}
	if store.initTxn.pages.Len() != 0 {
		t.Error("expected the init transaction's page list to no longer hold the claimed page")
	}
	if user.pages.Len() != 1 {
		t.Error("expected the claiming transaction's page list to hold the claimed page")
	}
}
