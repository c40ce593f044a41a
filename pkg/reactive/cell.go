// Package reactive provides the minimal reactive primitive the flow store
// is built on: a mutable Cell that notifies subscribers on write, and a
// Derived value that is push-invalidated by its dependencies and lazily
// recomputed on read.
//
// The design is deliberately small. There is no automatic dependency
// tracking - a Derived names its dependencies explicitly at construction.
// Notification is synchronous: by the time Set returns, every subscriber
// has either run or been recorded in the active batch. A reader therefore
// always observes a value at least as new as the last completed write.
//
// # Ordering
//
// Subscribers come in two tiers. Derived values register on their
// dependencies as dependents; everything registered through Subscribe is
// an ordinary subscriber. A write first runs every dependent invalidation
// reachable from the written cell, then ordinary subscribers. A subscriber
// that reads a Derived during notification therefore always sees a value
// recomputed from the write that triggered it, never a cached one.
//
// # Batching
//
// High-frequency interactions (pointer drags) write several cells per
// event. RunBatch coalesces notifications so each subscriber runs at most
// once per batch, after all writes in the batch have been applied:
//
//	reactive.RunBatch(func() {
//	    nodes.Set(next)
//	    dragging.Set(true)
//	})
//
// # Concurrency
//
// Cells are written from a single goroutine per store (the event loop of
// the embedding UI). Internal locking exists only so that incidental reads
// from other goroutines (diagnostics, tests) are safe; it is not a
// transaction mechanism.
package reactive

import (
	"sync"
	"sync/atomic"
)

// Source is anything a Derived value can depend on: a Cell or another
// Derived. Subscribe registers fn to run when the value changes and
// returns a function that removes the subscription.
type Source interface {
	Subscribe(fn func()) (unsubscribe func())
}

// dependencySource is the unexported registration path Derive uses so its
// invalidations run ahead of ordinary subscribers. Cell and Derived both
// implement it.
type dependencySource interface {
	subscribeDependent(fn func()) (unsubscribe func())
}

// subID distinguishes subscribers so a batch can coalesce them.
var subID atomic.Uint64

type subscriber struct {
	id        uint64
	fn        func()
	dependent bool
}

// Cell is a mutable reactive container for a value of type T.
// The zero value is not usable - use NewCell.
type Cell[T any] struct {
	mu   sync.RWMutex
	v    T
	subs map[uint64]subscriber
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{v: initial, subs: make(map[uint64]subscriber)}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Set replaces the value and notifies subscribers.
// Notification happens outside the cell's lock so subscribers may read
// this or other cells freely.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	subs := c.snapshot()
	c.mu.Unlock()
	deliver(subs)
}

// Update atomically applies fn to the current value and notifies
// subscribers with the result.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.v = fn(c.v)
	subs := c.snapshot()
	c.mu.Unlock()
	deliver(subs)
}

// Subscribe registers fn to run after every Set or Update. The returned
// function removes the subscription; calling it more than once is safe.
func (c *Cell[T]) Subscribe(fn func()) func() {
	return c.subscribe(fn, false)
}

func (c *Cell[T]) subscribeDependent(fn func()) func() {
	return c.subscribe(fn, true)
}

func (c *Cell[T]) subscribe(fn func(), dependent bool) func() {
	id := subID.Add(1)
	c.mu.Lock()
	c.subs[id] = subscriber{id: id, fn: fn, dependent: dependent}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// snapshot copies the subscriber set. Callers must hold c.mu.
func (c *Cell[T]) snapshot() []subscriber {
	subs := make([]subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	return subs
}

// Derived is a memoized value computed from one or more Sources.
// A write to any dependency invalidates the cached value and notifies
// subscribers; the next Get recomputes. Derived itself implements Source,
// so projections can stack.
type Derived[T any] struct {
	mu      sync.Mutex
	compute func() T
	v       T
	valid   bool
	subs    map[uint64]subscriber
}

// Derive creates a derived value computed by fn whenever any of deps
// changes. fn runs once immediately on first Get, not at construction.
func Derive[T any](fn func() T, deps ...Source) *Derived[T] {
	d := &Derived[T]{compute: fn, subs: make(map[uint64]subscriber)}
	for _, dep := range deps {
		if ds, ok := dep.(dependencySource); ok {
			ds.subscribeDependent(d.invalidate)
		} else {
			dep.Subscribe(d.invalidate)
		}
	}
	return d
}

// Get returns the derived value, recomputing it if a dependency changed
// since the last read.
func (d *Derived[T]) Get() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid {
		d.v = d.compute()
		d.valid = true
	}
	return d.v
}

// Invalidate discards the cached value without waiting for a dependency
// write. Used when the compute function reads state outside its declared
// dependencies (e.g. a validation predicate swapped at runtime).
func (d *Derived[T]) Invalidate() {
	d.invalidate()
}

func (d *Derived[T]) invalidate() {
	d.mu.Lock()
	d.valid = false
	subs := make([]subscriber, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.mu.Unlock()
	deliver(subs)
}

// Subscribe registers fn to run whenever the derived value is
// invalidated. The returned function removes the subscription.
func (d *Derived[T]) Subscribe(fn func()) func() {
	return d.subscribe(fn, false)
}

func (d *Derived[T]) subscribeDependent(fn func()) func() {
	return d.subscribe(fn, true)
}

func (d *Derived[T]) subscribe(fn func(), dependent bool) func() {
	id := subID.Add(1)
	d.mu.Lock()
	d.subs[id] = subscriber{id: id, fn: fn, dependent: dependent}
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// batch collects subscribers notified during RunBatch so each runs once.
type batch struct {
	mu      sync.Mutex
	pending map[uint64]subscriber
	order   []uint64
	active  bool
}

var currentBatch atomic.Pointer[batch]

func (b *batch) add(subs []subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	for _, s := range subs {
		if _, seen := b.pending[s.id]; !seen {
			b.pending[s.id] = s
			b.order = append(b.order, s.id)
		}
	}
}

func (b *batch) commit() {
	b.mu.Lock()
	b.active = false
	subs := make([]subscriber, 0, len(b.order))
	for _, id := range b.order {
		subs = append(subs, b.pending[id])
	}
	b.pending = nil
	b.order = nil
	b.mu.Unlock()
	// currentBatch is already restored, so this starts a cascade:
	// the deferred invalidations run before the deferred subscribers.
	deliver(subs)
}

// RunBatch executes fn with notifications deferred: subscribers triggered
// by writes inside fn run once each, in first-trigger order, after fn
// returns. Batches nest; only the outermost commit delivers. Dependent
// invalidations still run ahead of ordinary subscribers at commit.
func RunBatch(fn func()) {
	b := &batch{pending: make(map[uint64]subscriber), active: true}
	prev := currentBatch.Swap(b)
	defer func() {
		currentBatch.Store(prev)
		if prev == nil {
			b.commit()
		} else {
			// Nested batch: fold into the enclosing one.
			b.mu.Lock()
			subs := make([]subscriber, 0, len(b.order))
			for _, id := range b.order {
				subs = append(subs, b.pending[id])
			}
			b.active = false
			b.mu.Unlock()
			prev.add(subs)
		}
	}()
	fn()
}

// cascade orders one round of notifications: dependent invalidations
// drain first, including any they trigger transitively, then ordinary
// subscribers run once each in first-trigger order.
type cascade struct {
	mu      sync.Mutex
	deps    []func()
	pending map[uint64]func()
	order   []uint64
}

var currentCascade atomic.Pointer[cascade]

func (c *cascade) add(subs []subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range subs {
		if s.dependent {
			c.deps = append(c.deps, s.fn)
			continue
		}
		if _, seen := c.pending[s.id]; !seen {
			c.pending[s.id] = s.fn
			c.order = append(c.order, s.id)
		}
	}
}

func (c *cascade) drain() {
	for {
		c.mu.Lock()
		if len(c.deps) > 0 {
			fn := c.deps[0]
			c.deps = c.deps[1:]
			c.mu.Unlock()
			fn()
			continue
		}
		if len(c.order) == 0 {
			c.mu.Unlock()
			return
		}
		id := c.order[0]
		c.order = c.order[1:]
		fn := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		fn()
	}
}

// deliver batches the given subscribers, joins the cascade in progress,
// or starts a new cascade and drains it.
func deliver(subs []subscriber) {
	if b := currentBatch.Load(); b != nil {
		b.add(subs)
		return
	}
	if c := currentCascade.Load(); c != nil {
		c.add(subs)
		return
	}
	c := &cascade{pending: make(map[uint64]func())}
	currentCascade.Store(c)
	defer currentCascade.Store(nil)
	c.add(subs)
	c.drain()
}
