package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/page"
	"github.com/berrydb/berrydb/internal/pagepool"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.store")
}

func TestOpenCreatesDataAndLogFiles(t *testing.T) {
	path := tempStorePath(t)
	pool := pagepool.New(4096, 4, nil, nil)

	s, err := Open(path, Options{PageShift: 12, CreateIfMissing: true}, pool, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected data file to exist: %v", err)
	}
	if _, err := os.Stat(LogFilePath(path)); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}

func TestOpenErrorIfExistsRejectsExistingFile(t *testing.T) {
	path := tempStorePath(t)
	pool := pagepool.New(4096, 4, nil, nil)

	s, err := Open(path, Options{PageShift: 12, CreateIfMissing: true}, pool, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	_, err = Open(path, Options{PageShift: 12, CreateIfMissing: true, ErrorIfExists: true}, pool, nil)
	if err == nil {
		t.Fatal("expected an error opening an existing file with ErrorIfExists set")
	}
}

func TestAllocatePageIDIsMonotonic(t *testing.T) {
	path := tempStorePath(t)
	pool := pagepool.New(4096, 4, nil, nil)
	s, err := Open(path, Options{PageShift: 12, CreateIfMissing: true}, pool, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	first := s.AllocatePageID()
	second := s.AllocatePageID()
	if second <= first {
		t.Errorf("expected strictly increasing page ids, got %d then %d", first, second)
	}
}

func TestReadWritePageRoundTrip(t *testing.T) {
	path := tempStorePath(t)
	pool := pagepool.New(4096, 4, nil, nil)
	s, err := Open(path, Options{PageShift: 12, CreateIfMissing: true}, pool, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	buf := page.New(4096)
	buf.WillCacheStoreData(s.initTxn, 1)
	buf.MutableData()[0] = 0x42

	if err := s.WritePage(buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	readBuf := page.New(4096)
	readBuf.WillCacheStoreData(s.initTxn, 1)
	if err := s.ReadPage(readBuf); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if readBuf.Data()[0] != 0x42 {
		t.Errorf("expected byte 0x42 at offset 0, got %#x", readBuf.Data()[0])
	}
}

func TestCloseRollsBackActiveTransactions(t *testing.T) {
	path := tempStorePath(t)
	pool := pagepool.New(4096, 4, nil, nil)
	s, err := Open(path, Options{PageShift: 12, CreateIfMissing: true}, pool, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	tx := s.BeginTransaction()
	if tx.IsClosed() {
		t.Fatal("expected a fresh transaction to be active")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !tx.IsClosed() {
		t.Error("expected Close to roll back still-open transactions")
	}
}

func TestCloseIsNotIdempotent(t *testing.T) {
	path := tempStorePath(t)
	pool := pagepool.New(4096, 4, nil, nil)
	s, err := Open(path, Options{PageShift: 12, CreateIfMissing: true}, pool, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != errs.ErrAlreadyClosed {
		t.Fatalf("expected ErrAlreadyClosed on second Close, got %v", err)
	}
}
