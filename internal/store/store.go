// Package store implements the store adaptor: the object that owns a
// store's open data and log files, mints new page ids, and satisfies the
// page.StoreRef contract the page pool needs to read and write pages.
//
// Grounded on ShubhamNegi4-DaemonDB's storage_engine/disk_manager package
// for file-handle ownership and offset arithmetic (LocalPageID *
// PageSize), generalized from DaemonDB's global file-table model to one
// store owning exactly one data file and one log file, matching
// src/store_impl.{h,cc} from the original implementation.
package store

import (
	"fmt"
	"io"
	"sync"

	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/logging"
	"github.com/berrydb/berrydb/internal/page"
	"github.com/berrydb/berrydb/internal/pagepool"
	"github.com/berrydb/berrydb/internal/txn"
	"github.com/berrydb/berrydb/vfs"

	"go.uber.org/zap"
)

// Options configures a store at open time.
type Options struct {
	// PageShift is log2 of the page size in bytes, shared with the pool
	// that will cache this store's pages.
	PageShift int
	// CreateIfMissing creates the data file when it does not already
	// exist.
	CreateIfMissing bool
	// ErrorIfExists fails the open if the data file already exists.
	ErrorIfExists bool
}

// LogFilePath is the log file BerryDB opens alongside a store's data file,
// grounded on src/store_impl.cc's StoreImpl::LogFilePath (data path plus a
// fixed suffix).
func LogFilePath(dataPath string) string {
	return dataPath + ".log"
}

// Store owns one open data file and one open log file, and mints page ids
// for its pool. All exported methods other than Close and the page.StoreRef
// methods are meant to be called by the resource-pool shell, which
// serializes access to a single store from a single goroutine at a time
// per SPEC_FULL.md §5.
type Store struct {
	mu sync.Mutex

	path       string
	pageSize   int
	data       vfs.BlockAccessFile
	logFile    vfs.RandomAccessFile
	pool       *pagepool.Pool
	nextPageID page.ID

	initTxn    *txn.Transaction
	activeTxns map[*txn.Transaction]struct{}
	closed     bool

	log *zap.Logger
}

// Open opens (and, per opts, optionally creates) the data file at path and
// its companion log file, locks the data file, and returns a Store ready
// to serve pool.StorePage calls. The store starts with no active user
// transactions and a fresh init transaction.
func Open(path string, opts Options, pool *pagepool.Pool, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}
	pageSize := 1 << opts.PageShift

	data, created, err := vfs.DefaultVfs().OpenForBlockAccess(path, opts.PageShift, opts.CreateIfMissing, opts.ErrorIfExists)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := data.Lock(); err != nil {
		data.Close()
		return nil, fmt.Errorf("lock store %s: %w", path, err)
	}

	logFile, _, err := vfs.DefaultVfs().OpenForRandomAccess(LogFilePath(path), opts.CreateIfMissing, opts.ErrorIfExists)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("open log for %s: %w", path, err)
	}

	nextPageID, err := currentPageCount(data, pageSize, created)
	if err != nil {
		data.Close()
		logFile.Close()
		return nil, err
	}

	s := &Store{
		path:       path,
		pageSize:   pageSize,
		data:       data,
		logFile:    logFile,
		pool:       pool,
		nextPageID: page.ID(nextPageID),
		activeTxns: make(map[*txn.Transaction]struct{}),
		log:        log,
	}
	s.initTxn = txn.New(s, pool, log)
	log.Debug("store opened", zap.String("path", path), zap.Bool("created", created))
	return s, nil
}

// currentPageCount derives the next page id to allocate from the data
// file's current size, so ids stay stable across process restarts without
// needing an on-disk free-list (out of scope; see SPEC_FULL.md §4.4.NEW).
func currentPageCount(data vfs.BlockAccessFile, pageSize int, created bool) (int64, error) {
	if created {
		return 1, nil // page 0 is reserved for the store's header
	}
	size, err := data.Size()
	if err != nil {
		return 0, fmt.Errorf("stat store: %w", errs.ErrIoError)
	}
	if count := size / int64(pageSize); count > 1 {
		return count, nil
	}
	return 1, nil // page 0 is reserved for the store's header
}

// AllocatePageID returns a fresh page id for a new page and advances the
// counter. It never reuses an id from a freed page, matching the "no
// on-disk free-page-list" decision in SPEC_FULL.md §4.4.NEW.
func (s *Store) AllocatePageID() page.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPageID
	s.nextPageID++
	return id
}

// InitTransaction returns the store's pseudo-transaction, used by the page
// pool to hold a page fetched on a miss until a real transaction claims it.
// Satisfies page.StoreRef.
func (s *Store) InitTransaction() page.TransactionRef {
	return s.initTxn
}

// BeginTransaction starts a new active transaction against this store.
func (s *Store) BeginTransaction() *txn.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := txn.New(s, s.pool, s.log)
	s.activeTxns[t] = struct{}{}
	return t
}

// TransactionClosed drops t from the store's active-transaction set. Called
// by *txn.Transaction after it commits or rolls back.
func (s *Store) TransactionClosed(t *txn.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeTxns, t)
}

// ReadPage fills buf's data from the store's on-disk page buf.ID(). The part
// of a page that lies past the end of the data file reads as zeros. Satisfies
// page.StoreRef.
func (s *Store) ReadPage(buf *page.Buffer) error {
	offset := int64(buf.ID()) * int64(s.pageSize)
	n, err := s.data.ReadAt(buf.MutableData(), offset)
	if err == io.EOF {
		data := buf.MutableData()
		for i := n; i < len(data); i++ {
			data[i] = 0
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read page %d from %s: %w", buf.ID(), s.path, errs.ErrIoError)
	}
	return nil
}

// WritePage writes buf's data to the store's on-disk page buf.ID(). Satisfies
// page.StoreRef.
func (s *Store) WritePage(buf *page.Buffer) error {
	offset := int64(buf.ID()) * int64(s.pageSize)
	if _, err := s.data.WriteAt(buf.Data(), offset); err != nil {
		return fmt.Errorf("write page %d to %s: %w", buf.ID(), s.path, errs.ErrIoError)
	}
	return nil
}

// Close rolls back every open user transaction, then the init transaction,
// closes the data and log files, and marks the store closed. Closing an
// already-closed store does nothing and returns ErrAlreadyClosed.
//
// Grounded on src/store_impl.cc's StoreImpl::Close, which rolls back live
// transactions before touching file handles so the page pool never writes
// back a page whose owning transaction has vanished.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errs.ErrAlreadyClosed
	}
	s.closed = true
	txns := make([]*txn.Transaction, 0, len(s.activeTxns))
	for t := range s.activeTxns {
		txns = append(txns, t)
	}
	s.mu.Unlock()

	for _, t := range txns {
		_ = t.Rollback()
	}
	_ = s.initTxn.Rollback()

	var firstErr error
	if err := s.data.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close data file %s: %w", s.path, errs.ErrIoError)
	}
	if err := s.logFile.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close log file %s: %w", LogFilePath(s.path), errs.ErrIoError)
	}
	s.log.Debug("store closed", zap.String("path", s.path))
	return firstErr
}
