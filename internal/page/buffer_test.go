package page

import "testing"

func TestNewIsPinnedOnceAndClean(t *testing.T) {
	buf := New(4096)
	if buf.PinCount() != 1 {
		t.Errorf("PinCount: expected 1, got %d", buf.PinCount())
	}
	if buf.IsDirty() {
		t.Error("new buffer should not be dirty")
	}
	if buf.IsBound() {
		t.Error("new buffer should not be bound")
	}
	if len(buf.Data()) != 4096 {
		t.Errorf("Data length: expected 4096, got %d", len(buf.Data()))
	}
}

func TestPinUnpinRoundTrip(t *testing.T) {
	buf := New(4096)
	buf.RemovePin()
	if !buf.IsUnpinned() {
		t.Fatal("expected buffer to be unpinned after removing its sole pin")
	}
	buf.AddPin()
	buf.AddPin()
	if buf.PinCount() != 2 {
		t.Errorf("PinCount: expected 2, got %d", buf.PinCount())
	}
	buf.RemovePin()
	buf.RemovePin()
	if !buf.IsUnpinned() {
		t.Fatal("expected buffer to be unpinned")
	}
}

func TestRemovePinNeverGoesNegative(t *testing.T) {
	buf := New(4096)
	buf.RemovePin()
	buf.RemovePin() // already at 0; must not wrap around
	if !buf.IsUnpinned() {
		t.Fatal("expected buffer to remain unpinned")
	}
	if buf.PinCount() != 0 {
		t.Errorf("PinCount: expected 0, got %d", buf.PinCount())
	}
}

type fakeStore struct{}

func (fakeStore) ReadPage(*Buffer) error          { return nil }
func (fakeStore) WritePage(*Buffer) error         { return nil }
func (fakeStore) Close() error                    { return nil }
func (fakeStore) InitTransaction() TransactionRef { return nil }

type fakeTxn struct{ store StoreRef }

func (f *fakeTxn) AssignPage(*Buffer, ID)        {}
func (f *fakeTxn) UnassignPage(*Buffer)          {}
func (f *fakeTxn) UnassignPersistedPage(*Buffer) {}
func (f *fakeTxn) Store() StoreRef                { return f.store }

func TestWillCacheStoreDataBindsBuffer(t *testing.T) {
	buf := New(4096)
	txn := &fakeTxn{store: fakeStore{}}

	buf.WillCacheStoreData(txn, ID(42))
	if !buf.IsBound() {
		t.Fatal("expected buffer to be bound")
	}
	if buf.ID() != 42 {
		t.Errorf("ID: expected 42, got %d", buf.ID())
	}
	if buf.Store() != txn.store {
		t.Error("Store() should return the bound transaction's store")
	}

	buf.DoesNotCacheStoreData()
	if buf.IsBound() {
		t.Error("expected buffer to be unbound after DoesNotCacheStoreData")
	}
	if buf.Store() != nil {
		t.Error("Store() should return nil once unbound")
	}
}

func TestDirtyFlag(t *testing.T) {
	buf := New(4096)
	if buf.IsDirty() {
		t.Fatal("new buffer should be clean")
	}
	buf.MarkDirty()
	if !buf.IsDirty() {
		t.Error("expected buffer to be dirty")
	}
	buf.MarkClean()
	if buf.IsDirty() {
		t.Error("expected buffer to be clean")
	}
}
