// Package store keeps a client-side cache of server entities and applies
// mutations optimistically: a change is visible at once, the server call
// runs in the background, and the cache is reconciled with the response or
// rolled back when the call fails.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"expensetracker/internal/errbus"
	"expensetracker/internal/logger"
	"expensetracker/internal/uuid"
)

// ErrClosed is returned for work issued on, or finished after, Close.
var ErrClosed = errors.New("store: collection closed")

// ErrRangeUnsupported is returned by RangeRefetch when the adapter cannot
// fetch a bounded range.
var ErrRangeUnsupported = errors.New("store: adapter does not support range fetches")

// NotFoundError is returned when a mutation names a key the cache does not
// hold.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("store: no entry for key %q", e.Key) }

// Adapter performs the server calls behind a collection. Keys passed to
// Update and Delete are always server keys.
type Adapter[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, key string, item T) (T, error)
	Delete(ctx context.Context, key string) error
}

// RangeAdapter is an Adapter that can also fetch a bounded range.
type RangeAdapter[T any] interface {
	Adapter[T]
	ListRange(ctx context.Context, start, end string) ([]T, error)
}

// Collection is an optimistic cache of T keyed by KeyFunc.
type Collection[T any] struct {
	adapter Adapter[T]
	keyOf   func(T) string
	bus     *errbus.Bus
	log     *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	items     map[string]T
	confirmed map[string]T      // last value the server acknowledged
	seq       map[string]uint64 // first-seen order of each key
	nextSeq   uint64
	pending   map[string]int    // in-flight mutations per key
	version   map[string]uint64 // bumped by every optimistic write
	aliases   map[string]string // temporary key -> server key
	queues    map[string]*keyQueue
	gen       uint64
	fetchGen  uint64 // bumped by every full refetch
	epoch     uint64 // bumped by every fetch
	fetching  int
	touched   map[string]uint64 // epoch of the last server write while fetches were in flight
	closed    bool

	listenersMu sync.Mutex
	nextID      int
	listeners   map[int]func()
}

// keyQueue chains the mutations of one entity so they reach the server in
// the order they were issued. A temporary key and its server key share one
// queue once the insert resolves.
type keyQueue struct {
	tail chan struct{}
	keys []string
}

// New creates a collection. keyOf must return the server key of an entity
// the server has acknowledged. A nil bus disables broadcasting.
func New[T any](adapter Adapter[T], keyOf func(T) string, bus *errbus.Bus) *Collection[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collection[T]{
		adapter:   adapter,
		keyOf:     keyOf,
		bus:       bus,
		log:       logger.Named("store"),
		ctx:       ctx,
		cancel:    cancel,
		items:     make(map[string]T),
		confirmed: make(map[string]T),
		seq:       make(map[string]uint64),
		pending:   make(map[string]int),
		version:   make(map[string]uint64),
		aliases:   make(map[string]string),
		queues:    make(map[string]*keyQueue),
		touched:   make(map[string]uint64),
		listeners: make(map[int]func()),
	}
}

// Mutation is the handle of one optimistic change.
type Mutation struct {
	mu   sync.Mutex
	key  string
	err  error
	done chan struct{}
}

func newMutation(key string) *Mutation {
	return &Mutation{key: key, done: make(chan struct{})}
}

func failedMutation(key string, err error) *Mutation {
	m := newMutation(key)
	m.finish(key, err)
	return m
}

// Key is the key the entity is cached under: the temporary key of an
// insert until the server acknowledges it, the server key afterwards.
func (m *Mutation) Key() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key
}

// Wait blocks until the server call settles or ctx is done.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the mutation settles.
func (m *Mutation) Done() <-chan struct{} { return m.done }

func (m *Mutation) finish(key string, err error) {
	m.mu.Lock()
	m.key = key
	m.err = err
	m.mu.Unlock()
	close(m.done)
}

// Insert shows draft under a fresh temporary key and asks the server to
// create it. On success the entry moves to its server key; on failure it is
// removed and the error broadcast.
func (c *Collection[T]) Insert(ctx context.Context, draft T) *Mutation {
	key := uuid.NewTempKey()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return failedMutation(key, ErrClosed)
	}
	c.put(key, draft)
	ver := c.bump(key)
	c.pending[key]++
	prev, done := c.enqueue(key)
	gen := c.gen
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	m := newMutation(key)
	c.run(ctx, prev, done, func(ctx context.Context) {
		created, err := c.adapter.Create(ctx, draft)

		c.mu.Lock()
		c.pending[key]--
		if c.stale(gen) {
			c.mu.Unlock()
			m.finish(key, ErrClosed)
			return
		}
		if err != nil {
			// The entity never existed, so later local edits go with it.
			c.remove(key)
			c.settle(key)
			c.mu.Unlock()
			c.notify()
			m.finish(key, c.broadcast(err))
			return
		}

		serverKey := c.keyOf(created)
		c.alias(key, serverKey)
		c.acknowledge(serverKey, created)
		if c.version[serverKey] == ver {
			c.items[serverKey] = created
		}
		c.settle(serverKey)
		c.mu.Unlock()
		c.notify()
		m.finish(serverKey, nil)
	})
	return m
}

// Update applies mutator to a copy of the entry, shows the result at once
// and sends it to the server. The mutator must not write through pointers
// shared with the cached value.
func (c *Collection[T]) Update(ctx context.Context, key string, mutator func(*T)) *Mutation {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return failedMutation(key, ErrClosed)
	}
	rk := c.resolve(key)
	snapshot, ok := c.items[rk]
	if !ok {
		c.mu.Unlock()
		return failedMutation(key, &NotFoundError{Key: key})
	}
	next := snapshot
	mutator(&next)
	c.items[rk] = next
	ver := c.bump(rk)
	c.pending[rk]++
	prev, done := c.enqueue(rk)
	gen := c.gen
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	m := newMutation(rk)
	c.run(ctx, prev, done, func(ctx context.Context) {
		target, ok := c.serverKey(rk)
		if !ok {
			// The insert this update was queued behind failed.
			c.mu.Lock()
			c.pending[rk]--
			c.settle(rk)
			c.mu.Unlock()
			m.finish(rk, &NotFoundError{Key: key})
			return
		}

		updated, err := c.adapter.Update(ctx, target, next)

		c.mu.Lock()
		c.pending[target]--
		if c.stale(gen) {
			c.mu.Unlock()
			m.finish(target, ErrClosed)
			return
		}
		if err != nil {
			if c.version[target] == ver {
				c.items[target] = c.lastConfirmed(target, snapshot)
			}
			c.settle(target)
			c.mu.Unlock()
			c.notify()
			m.finish(target, c.broadcast(err))
			return
		}
		c.acknowledge(target, updated)
		if c.version[target] == ver {
			c.items[target] = updated
		}
		c.settle(target)
		c.mu.Unlock()
		c.notify()
		m.finish(target, nil)
	})
	return m
}

// Delete removes the entry at once and asks the server to delete it. On
// failure the entry is restored and the error broadcast.
func (c *Collection[T]) Delete(ctx context.Context, key string) *Mutation {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return failedMutation(key, ErrClosed)
	}
	rk := c.resolve(key)
	snapshot, ok := c.items[rk]
	if !ok {
		c.mu.Unlock()
		return failedMutation(key, &NotFoundError{Key: key})
	}
	delete(c.items, rk)
	ver := c.bump(rk)
	c.pending[rk]++
	prev, done := c.enqueue(rk)
	gen := c.gen
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	m := newMutation(rk)
	c.run(ctx, prev, done, func(ctx context.Context) {
		target, ok := c.serverKey(rk)
		if !ok {
			c.mu.Lock()
			c.pending[rk]--
			c.settle(rk)
			c.mu.Unlock()
			m.finish(rk, nil)
			return
		}

		err := c.adapter.Delete(ctx, target)

		c.mu.Lock()
		c.pending[target]--
		if c.stale(gen) {
			c.mu.Unlock()
			m.finish(target, ErrClosed)
			return
		}
		if err != nil {
			if c.version[target] == ver {
				c.put(target, c.lastConfirmed(target, snapshot))
			}
			c.settle(target)
			c.mu.Unlock()
			c.notify()
			m.finish(target, c.broadcast(err))
			return
		}
		delete(c.confirmed, target)
		c.touch(target)
		if _, ok := c.items[target]; !ok {
			delete(c.seq, target)
		}
		c.settle(target)
		c.mu.Unlock()
		m.finish(target, nil)
	})
	return m
}

// Refetch replaces the cache with the server's list. Entries with a
// mutation in flight keep their local state.
func (c *Collection[T]) Refetch(ctx context.Context) error {
	return c.fetch(ctx, c.adapter.List, true)
}

// RangeRefetch merges a bounded fetch into the cache: fetched keys are
// overwritten or added, nothing is removed.
func (c *Collection[T]) RangeRefetch(ctx context.Context, start, end string) error {
	ra, ok := c.adapter.(RangeAdapter[T])
	if !ok {
		return ErrRangeUnsupported
	}
	return c.fetch(ctx, func(ctx context.Context) ([]T, error) {
		return ra.ListRange(ctx, start, end)
	}, false)
}

func (c *Collection[T]) fetch(ctx context.Context, list func(context.Context) ([]T, error), replace bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if replace {
		c.fetchGen++
	}
	c.epoch++
	c.fetching++
	fetchGen, issued, gen := c.fetchGen, c.epoch, c.gen
	c.mu.Unlock()

	ctx, cancel := c.bind(ctx)
	defer cancel()

	fetched, err := list(ctx)

	c.mu.Lock()
	defer c.endFetch()
	if c.stale(gen) {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.mu.Unlock()
		return c.broadcast(err)
	}
	if replace && fetchGen != c.fetchGen {
		// A newer full fetch was issued; its response wins.
		c.mu.Unlock()
		c.log.Debugw("dropping superseded fetch", "generation", fetchGen)
		return nil
	}

	// Keys the server wrote after the fetch was issued may be missing or
	// out of date in the response.
	newer := func(k string) bool { return c.touched[k] >= issued }

	if replace {
		seen := make(map[string]bool, len(fetched))
		for _, item := range fetched {
			seen[c.keyOf(item)] = true
		}
		for k := range c.items {
			if !seen[k] && c.pending[k] == 0 && !newer(k) {
				c.remove(k)
			}
		}
	}
	for _, item := range fetched {
		k := c.keyOf(item)
		if newer(k) {
			continue
		}
		c.confirmed[k] = item
		if c.pending[k] > 0 {
			continue
		}
		c.put(k, item)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Collection[T]) endFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching--
	if c.fetching == 0 {
		clear(c.touched)
	}
}

// Get returns the entry for key, following a temporary key to its server
// key once the insert has resolved.
func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[c.resolve(key)]
	return item, ok
}

// Len reports the number of visible entries.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the visible keys in first-seen order.
func (c *Collection[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderedKeys()
}

// Query returns a snapshot of the entries accepted by filter (nil accepts
// all), sorted by less or, when less is nil, in first-seen order.
// filter and less run outside the cache lock and may read from the
// collection.
func (c *Collection[T]) Query(filter func(T) bool, less func(a, b T) bool) []T {
	c.mu.Lock()
	all := make([]T, 0, len(c.items))
	for _, k := range c.orderedKeys() {
		all = append(all, c.items[k])
	}
	c.mu.Unlock()

	out := all
	if filter != nil {
		out = all[:0]
		for _, item := range all {
			if filter(item) {
				out = append(out, item)
			}
		}
	}

	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// OnChange registers fn to run after every change to the visible entries.
// fn runs outside the cache lock and may read from the collection.
func (c *Collection[T]) OnChange(fn func()) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// Close cancels in-flight requests and waits for their goroutines. Late
// responses are dropped and further work fails with ErrClosed.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// run executes call once the previous mutation on the same key has settled.
// The caller has already added to c.wg under c.mu.
func (c *Collection[T]) run(ctx context.Context, prev <-chan struct{}, done chan struct{}, call func(context.Context)) {
	go func() {
		defer c.wg.Done()
		defer close(done)

		ctx, cancel := c.bind(ctx)
		defer cancel()

		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
			}
		}
		call(ctx)
	}()
}

// bind derives a context that ends with either ctx or the collection.
func (c *Collection[T]) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func (c *Collection[T]) broadcast(err error) error {
	if c.bus == nil {
		return err
	}
	return c.bus.Emit(err)
}

func (c *Collection[T]) notify() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// The helpers below expect c.mu to be held.

func (c *Collection[T]) stale(gen uint64) bool {
	return c.closed || c.gen != gen
}

func (c *Collection[T]) put(key string, item T) {
	if _, ok := c.seq[key]; !ok {
		c.nextSeq++
		c.seq[key] = c.nextSeq
	}
	c.items[key] = item
}

func (c *Collection[T]) remove(key string) {
	delete(c.items, key)
	delete(c.confirmed, key)
	delete(c.seq, key)
}

// acknowledge records a value returned by the server for key.
func (c *Collection[T]) acknowledge(key string, item T) {
	c.confirmed[key] = item
	c.touch(key)
}

// lastConfirmed is the value a failed mutation rolls back to.
func (c *Collection[T]) lastConfirmed(key string, fallback T) T {
	if item, ok := c.confirmed[key]; ok {
		return item
	}
	return fallback
}

// touch marks key as written by the server after the in-flight fetches were
// issued.
func (c *Collection[T]) touch(key string) {
	if c.fetching > 0 {
		c.touched[key] = c.epoch
	}
}

func (c *Collection[T]) bump(key string) uint64 {
	c.version[key]++
	return c.version[key]
}

func (c *Collection[T]) resolve(key string) string {
	if server, ok := c.aliases[key]; ok {
		return server
	}
	return key
}

// serverKey resolves key under the lock and reports whether it names an
// acknowledged entity.
func (c *Collection[T]) serverKey(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rk := c.resolve(key)
	return rk, !uuid.IsTempKey(rk)
}

// alias moves everything known about a temporary key to its server key.
func (c *Collection[T]) alias(tmp, server string) {
	c.aliases[tmp] = server

	if item, ok := c.items[tmp]; ok {
		delete(c.items, tmp)
		c.items[server] = item
	}
	if s, ok := c.seq[tmp]; ok {
		delete(c.seq, tmp)
		c.seq[server] = s
	}
	c.pending[server] += c.pending[tmp]
	delete(c.pending, tmp)
	c.version[server] += c.version[tmp]
	delete(c.version, tmp)

	if q, ok := c.queues[tmp]; ok {
		c.queues[server] = q
		q.keys = append(q.keys, server)
	}
}

// enqueue appends a mutation to key's queue and returns the channel to
// wait on (nil when the queue was idle) and the one to close when done.
func (c *Collection[T]) enqueue(key string) (prev <-chan struct{}, done chan struct{}) {
	q, ok := c.queues[key]
	if !ok {
		q = &keyQueue{keys: []string{key}}
		c.queues[key] = q
	}
	done = make(chan struct{})
	if q.tail != nil {
		prev = q.tail
	}
	q.tail = done
	return prev, done
}

// settle forgets bookkeeping for key once nothing is in flight.
func (c *Collection[T]) settle(key string) {
	if c.pending[key] > 0 {
		return
	}
	delete(c.pending, key)
	if q, ok := c.queues[key]; ok {
		for _, k := range q.keys {
			delete(c.queues, k)
		}
	}
}

func (c *Collection[T]) orderedKeys() []string {
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return c.seq[keys[i]] < c.seq[keys[j]] })
	return keys
}
