// Package metrics defines the Prometheus instrumentation shared by the
// page pool, store, and transaction packages. It is grounded on
// sushant-115-gojodb's use of github.com/prometheus/client_golang for its
// own write-engine metrics.
package metrics

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// nextPoolID hands out a process-wide unique id to each Pool's metrics, so
// two Pool instances registering against the same registerer (e.g. the
// Prometheus default, or two Pool.Create calls in one test binary) get
// genuinely distinguishable series instead of one silently shadowing the
// other.
var nextPoolID uint64

// Pool holds the counters and gauges emitted by the page pool. A nil
// *Pool is never handed to callers; pagepool.New substitutes NewPool(nil)
// when it is passed a nil *Pool.
type Pool struct {
	hits              prometheus.Counter
	misses            prometheus.Counter
	evictions         prometheus.Counter
	writebackFailures prometheus.Counter
	occupancy         *prometheus.GaugeVec
}

// NewPool registers the page pool's metrics against reg. A nil reg
// registers against prometheus.DefaultRegisterer. Every call's collectors
// carry a const "pool_id" label unique within the process, so registering
// a second pool's metrics against a shared registerer never collides: each
// pool's series has a distinct identity, and reg.Register never returns
// AlreadyRegisteredError for it. That check is kept below only as a
// defensive fallback; if it ever does fire, this pool's counters would
// keep incrementing objects no registry exposes, so it still panics rather
// than pretend the pool is instrumented.
func NewPool(reg prometheus.Registerer) *Pool {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"pool_id": strconv.FormatUint(atomic.AddUint64(&nextPoolID, 1), 10)}

	p := &Pool{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "berrydb_pagepool_hits_total",
			Help:        "Page pool lookups that found an already-cached buffer.",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "berrydb_pagepool_misses_total",
			Help:        "Page pool lookups that required allocating or evicting a buffer.",
			ConstLabels: labels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "berrydb_pagepool_evictions_total",
			Help:        "Buffers reclaimed from the LRU list to satisfy an allocation.",
			ConstLabels: labels,
		}),
		writebackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "berrydb_pagepool_writeback_failures_total",
			Help:        "Writebacks to a store that failed during eviction or unassignment.",
			ConstLabels: labels,
		}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "berrydb_pagepool_occupancy",
			Help:        "Buffer counts by list membership (free, lru, pinned).",
			ConstLabels: labels,
		}, []string{"list"}),
	}

	for _, c := range []prometheus.Collector{p.hits, p.misses, p.evictions, p.writebackFailures, p.occupancy} {
		if err := reg.Register(c); err != nil {
			panic(err)
		}
	}
	return p
}

// Hit records a page pool cache hit.
func (p *Pool) Hit() { p.hits.Inc() }

// Miss records a page pool cache miss.
func (p *Pool) Miss() { p.misses.Inc() }

// Eviction records a buffer reclaimed from the LRU list.
func (p *Pool) Eviction() { p.evictions.Inc() }

// WritebackFailure records a failed writeback during eviction.
func (p *Pool) WritebackFailure() { p.writebackFailures.Inc() }

// SetOccupancy publishes the current free/lru/pinned buffer counts.
func (p *Pool) SetOccupancy(free, lru, pinned int) {
	p.occupancy.WithLabelValues("free").Set(float64(free))
	p.occupancy.WithLabelValues("lru").Set(float64(lru))
	p.occupancy.WithLabelValues("pinned").Set(float64(pinned))
}
