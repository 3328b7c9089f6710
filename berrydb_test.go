package berrydb

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// newTestPool returns a Pool with its own Prometheus registry, so parallel
// tests don't collide on duplicate collector registration.
func newTestPool(t *testing.T) *Pool {
	t.Helper()
	pool, err := Create(PoolOptions{
		PageShift:    12,
		PageCapacity: 8,
		Registerer:   prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return pool
}

func TestCreateRejectsInvalidOptions(t *testing.T) {
	_, err := Create(PoolOptions{PageShift: 0, PageCapacity: 8})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Create(PoolOptions{PageShift: 12, PageCapacity: 0})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOpenStoreWriteCommitReadBack(t *testing.T) {
	pool := newTestPool(t)
	defer pool.Release()

	path := filepath.Join(t.TempDir(), "db.store")
	s, err := pool.OpenStore(path, StoreOptions{CreateIfMissing: true})
	require.NoError(t, err)

	tx := s.BeginTransaction()
	p, err := tx.GetPage(1, IgnorePageData)
	require.NoError(t, err)
	p.MutableData()[0] = 0x55
	p.MarkDirty()
	tx.ReleasePage(p)
	require.NoError(t, tx.Commit())

	tx2 := s.BeginTransaction()
	p2, err := tx2.GetPage(1, FetchPageData)
	require.NoError(t, err)
	require.Equal(t, byte(0x55), p2.Data()[0])
	tx2.ReleasePage(p2)
	require.NoError(t, tx2.Commit())
}

func TestRollbackDiscardsUncommittedWrites(t *testing.T) {
	pool := newTestPool(t)
	defer pool.Release()

	path := filepath.Join(t.TempDir(), "db.store")
	s, err := pool.OpenStore(path, StoreOptions{CreateIfMissing: true})
	require.NoError(t, err)

	tx := s.BeginTransaction()
	p, err := tx.GetPage(1, IgnorePageData)
	require.NoError(t, err)
	p.MutableData()[0] = 0x99
	p.MarkDirty()
	tx.ReleasePage(p)
	require.NoError(t, tx.Rollback())

	tx2 := s.BeginTransaction()
	p2, err := tx2.GetPage(1, FetchPageData)
	require.NoError(t, err)
	require.Equal(t, byte(0), p2.Data()[0])
	tx2.ReleasePage(p2)
	require.NoError(t, tx2.Commit())
}

func TestReleaseClosesOpenStores(t *testing.T) {
	pool := newTestPool(t)

	path := filepath.Join(t.TempDir(), "db.store")
	s, err := pool.OpenStore(path, StoreOptions{CreateIfMissing: true})
	require.NoError(t, err)

	tx := s.BeginTransaction()
	require.NoError(t, tx.Commit())

	require.NoError(t, pool.Release())
	require.ErrorIs(t, s.Close(), ErrAlreadyClosed)
}

func TestReleaseTwiceFails(t *testing.T) {
	pool := newTestPool(t)
	require.NoError(t, pool.Release())
	require.ErrorIs(t, pool.Release(), ErrAlreadyClosed)
}
