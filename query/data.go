// Package query builds and runs entity queries. Built queries are cached per
// goroutine by Data, so re-running a query neither rebuilds its SQL nor
// re-prepares its statement, and no two goroutines ever share a mutable query.
package query

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/petermattis/goid"

	"github.com/satishbabariya/go-dao/internal/debug"
)

// Instance is the constraint for values cached by Data: a pointer to Q that
// exposes its owning goroutine and its mutable parameters.
type Instance[Q any] interface {
	*Q
	// Owner is the id of the goroutine the instance was created for. It is
	// set once at construction and never changes.
	Owner() int64
	// Parameters returns the instance's own parameter slice, which Data
	// overwrites with the initial values on every hand-out.
	Parameters() []string
}

// Factory creates a new instance for the goroutine owner. parameters is a
// fresh copy of the initial values that the instance may keep. The factory
// runs while Data holds its lock and must not call back into the same Data.
type Factory[Q any] func(sql string, parameters []string, owner int64) (*Q, error)

// Stats is a snapshot of a Data's counters.
type Stats struct {
	Created  uint64
	Reused   uint64
	FastPath uint64
	Swept    uint64
	Tracked  int
	Live     int
	HitRate  float64
}

// Data hands each goroutine its own instance of one query. Instances are held
// weakly: once the owning goroutine drops its instance, the garbage collector
// may reclaim it and the next acquisition from that goroutine builds a new one.
type Data[Q any, P Instance[Q]] struct {
	sql           string
	initialValues []string
	create        Factory[Q]

	mu      sync.Mutex
	queries map[int64]weak.Pointer[Q]

	created  atomic.Uint64
	reused   atomic.Uint64
	fastPath atomic.Uint64
	swept    atomic.Uint64
}

// NewData creates the cache for one query. initialValues is copied.
func NewData[Q any, P Instance[Q]](sql string, initialValues []string, create Factory[Q]) *Data[Q, P] {
	values := make([]string, len(initialValues))
	copy(values, initialValues)
	return &Data[Q, P]{
		sql:           sql,
		initialValues: values,
		create:        create,
		queries:       make(map[int64]weak.Pointer[Q]),
	}
}

// SQL returns the statement the instances are built for.
func (d *Data[Q, P]) SQL() string {
	return d.sql
}

// InitialValues returns a copy of the initial parameter values.
func (d *Data[Q, P]) InitialValues() []string {
	values := make([]string, len(d.initialValues))
	copy(values, d.initialValues)
	return values
}

// ForCurrentGoroutineFrom is ForCurrentGoroutine with a shortcut: when hint
// already belongs to the calling goroutine its parameters are reset and it is
// returned without touching the map.
func (d *Data[Q, P]) ForCurrentGoroutineFrom(hint P) (P, error) {
	// Owner is write-once and only the owner passes its own instance here.
	if (*Q)(hint) != nil && hint.Owner() == goid.Get() {
		copy(hint.Parameters(), d.initialValues)
		d.fastPath.Add(1)
		return hint, nil
	}
	return d.ForCurrentGoroutine()
}

// ForCurrentGoroutine returns the calling goroutine's instance with its
// parameters reset to the initial values, creating the instance if the
// goroutine has none or its previous one was reclaimed. Factory errors are
// returned unchanged.
//
// The returned instance must only be used by the calling goroutine.
func (d *Data[Q, P]) ForCurrentGoroutine() (P, error) {
	id := goid.Get()

	d.mu.Lock()
	defer d.mu.Unlock()

	if ref, ok := d.queries[id]; ok {
		if q := ref.Value(); q != nil {
			p := P(q)
			copy(p.Parameters(), d.initialValues)
			d.reused.Add(1)
			return p, nil
		}
	}

	d.collectStale()

	q, err := d.create(d.sql, d.InitialValues(), id)
	if err != nil {
		var zero P
		return zero, err
	}
	// A recycled goroutine id simply overwrites the stale entry.
	d.queries[id] = weak.Make(q)
	d.created.Add(1)
	debug.Debug("query instance created", "goroutine", id, "tracked", len(d.queries))
	return P(q), nil
}

// collectStale drops entries whose instance has been reclaimed.
// Callers must hold d.mu.
func (d *Data[Q, P]) collectStale() {
	removed := 0
	for id, ref := range d.queries {
		if ref.Value() == nil {
			delete(d.queries, id)
			removed++
		}
	}
	if removed > 0 {
		d.swept.Add(uint64(removed))
		debug.Debug("query cache swept stale entries", "removed", removed, "tracked", len(d.queries))
	}
}

// Len returns the number of tracked goroutine entries, including stale ones
// not yet swept.
func (d *Data[Q, P]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queries)
}

// Live returns the number of tracked entries whose instance is still reachable.
func (d *Data[Q, P]) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveLocked()
}

func (d *Data[Q, P]) liveLocked() int {
	live := 0
	for _, ref := range d.queries {
		if ref.Value() != nil {
			live++
		}
	}
	return live
}

// Stats returns a snapshot of the counters.
func (d *Data[Q, P]) Stats() Stats {
	d.mu.Lock()
	tracked, live := len(d.queries), d.liveLocked()
	d.mu.Unlock()

	s := Stats{
		Created:  d.created.Load(),
		Reused:   d.reused.Load(),
		FastPath: d.fastPath.Load(),
		Swept:    d.swept.Load(),
		Tracked:  tracked,
		Live:     live,
	}
	if total := s.Created + s.Reused + s.FastPath; total > 0 {
		s.HitRate = float64(s.Reused+s.FastPath) / float64(total)
	}
	return s
}
