// Package berrydb is an embedded key-value storage engine. This file
// implements the resource-pool shell: the top-level handle an embedder
// creates once per process (or per test), which owns the shared page pool
// and every store opened against it.
//
// Grounded on src/pool_impl.cc's PoolImpl: Create/Release own the set of
// open stores and assert a clean teardown (no pinned pages, no leaked
// allocations) before the process-wide page pool itself is released.
package berrydb

import (
	"fmt"
	"sync"

	"github.com/berrydb/berrydb/internal/errs"
	"github.com/berrydb/berrydb/internal/logging"
	"github.com/berrydb/berrydb/internal/metrics"
	"github.com/berrydb/berrydb/internal/pagepool"
	"github.com/berrydb/berrydb/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PoolOptions configures a Pool at creation time.
type PoolOptions struct {
	// PageShift is log2 of the page size in bytes shared by every store
	// opened against this pool. All stores in one pool share one page
	// size.
	PageShift int
	// PageCapacity is the maximum number of page buffers the pool will
	// hold in memory at once.
	PageCapacity int

	// Logger receives lifecycle and error events. If nil, a no-op logger
	// is used.
	Logger *zap.Logger
	// Registerer receives the pool's Prometheus collectors. If nil,
	// prometheus.DefaultRegisterer is used.
	Registerer prometheus.Registerer
}

// Pool is a page pool plus every store currently open against it. Create
// exactly one per embedding process (or one per test, with its own
// Registerer to avoid duplicate metric registration).
type Pool struct {
	mu sync.Mutex

	pageShift int
	pagePool  *pagepool.Pool
	stores    map[*Store]struct{}
	log       *zap.Logger
	closed    bool
}

// Create validates opts and returns a new Pool. Returns ErrInvalidArgument
// if PageShift or PageCapacity is non-positive.
func Create(opts PoolOptions) (*Pool, error) {
	if opts.PageShift <= 0 {
		return nil, fmt.Errorf("create pool: page shift must be positive: %w", errs.ErrInvalidArgument)
	}
	if opts.PageCapacity <= 0 {
		return nil, fmt.Errorf("create pool: page capacity must be positive: %w", errs.ErrInvalidArgument)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	pageSize := 1 << opts.PageShift
	m := metrics.NewPool(opts.Registerer)
	pool := &Pool{
		pageShift: opts.PageShift,
		pagePool:  pagepool.New(pageSize, opts.PageCapacity, log, m),
		stores:    make(map[*Store]struct{}),
		log:       log,
	}
	log.Info("pool created", zap.Int("page_size", pageSize), zap.Int("page_capacity", opts.PageCapacity))
	return pool, nil
}

// StoreOptions configures a single OpenStore call.
type StoreOptions struct {
	// CreateIfMissing creates the store's data file if it does not
	// already exist.
	CreateIfMissing bool
	// ErrorIfExists fails the open if the data file already exists.
	ErrorIfExists bool
}

// OpenStore opens (and, per opts, optionally creates) the store at path,
// registers it with the pool, and returns a handle to it.
func (p *Pool) OpenStore(path string, opts StoreOptions) (*Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("open store %s: %w", path, errs.ErrAlreadyClosed)
	}

	inner, err := store.Open(path, store.Options{
		PageShift:       p.pageShift,
		CreateIfMissing: opts.CreateIfMissing,
		ErrorIfExists:   opts.ErrorIfExists,
	}, p.pagePool, p.log)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: p, inner: inner}
	p.stores[s] = struct{}{}
	return s, nil
}

// storeClosed drops s from the pool's open-store set. Called by
// Store.Close.
func (p *Pool) storeClosed(s *Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, s)
}

// Release closes every store still open against this pool, then releases
// the page pool itself. Panics if any page is still pinned or if any
// buffer was allocated but never freed, both of which indicate a caller
// leaked a pin — the same invariant src/pool_impl.cc's PoolImpl::Release
// asserts before tearing down.
func (p *Pool) Release() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errs.ErrAlreadyClosed
	}
	p.closed = true
	toClose := make([]*Store, 0, len(p.stores))
	for s := range p.stores {
		toClose = append(toClose, s)
	}
	p.mu.Unlock()

	var firstErr error
	for _, s := range toClose {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if pinned := p.pagePool.PinnedPages(); pinned != 0 {
		panic(fmt.Sprintf("berrydb: pool released with %d pages still pinned", pinned))
	}
	if allocated, unused := p.pagePool.AllocatedPages(), p.pagePool.UnusedPages(); allocated != unused {
		panic(fmt.Sprintf("berrydb: pool released with %d of %d allocated pages not returned to the free list", allocated-unused, allocated))
	}
	p.pagePool.Close()
	p.log.Info("pool released")
	return firstErr
}
