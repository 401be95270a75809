package chunk

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Source loads the lines of a range from the document store.
type Source func(ctx context.Context, k Key) ([]string, error)

// Poster hands a continuation back to the goroutine that owns the Fetcher.
type Poster func(fn func())

// Done receives the outcome of a Get. It always runs on the owner goroutine.
type Done func(c *Chunk, err error)

type call struct {
	epoch   uint64
	waiters []Done
}

// Fetcher resolves chunk requests from the Store, falling back to the
// Source. Concurrent requests for the same key share one round trip.
// All methods must be called from the owner goroutine; Source runs on its
// own goroutine and its result comes back through Poster.
type Fetcher struct {
	store    *Store
	source   Source
	post     Poster
	log      *zap.Logger
	inflight map[Key]*call
	epoch    uint64
	fetches  atomic.Uint64
}

// NewFetcher wires a store to a source.
func NewFetcher(store *Store, source Source, post Poster, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		store:    store,
		source:   source,
		post:     post,
		log:      log,
		inflight: make(map[Key]*call),
	}
}

// Store returns the backing cache.
func (f *Fetcher) Store() *Store { return f.store }

// Fetches returns how many times the source has been called.
func (f *Fetcher) Fetches() uint64 { return f.fetches.Load() }

// InFlight returns the number of outstanding source calls.
func (f *Fetcher) InFlight() int { return len(f.inflight) }

// Get resolves k. On a cache hit done runs before Get returns and Get
// reports true; otherwise done runs later, after the source answers.
func (f *Fetcher) Get(ctx context.Context, k Key, done Done) bool {
	if c, ok := f.store.Get(k); ok {
		if done != nil {
			done(c, nil)
		}
		return true
	}
	if cl, ok := f.inflight[k]; ok && cl.epoch == f.epoch {
		if done != nil {
			cl.waiters = append(cl.waiters, done)
		}
		return false
	}
	cl := &call{epoch: f.epoch}
	if done != nil {
		cl.waiters = append(cl.waiters, done)
	}
	f.inflight[k] = cl
	f.fetches.Add(1)
	go func() {
		lines, err := f.source(ctx, k)
		f.post(func() { f.complete(k, cl, lines, err) })
	}()
	return false
}

// Prefetch warms the cache for k without waiting on the result.
func (f *Fetcher) Prefetch(ctx context.Context, k Key) {
	if _, ok := f.store.entries[k]; ok {
		return
	}
	f.Get(ctx, k, nil)
}

// InvalidateAll clears the cache. Results of calls already in flight are
// still delivered to their waiters but are not cached.
func (f *Fetcher) InvalidateAll() {
	f.epoch++
	f.store.Clear()
}

func (f *Fetcher) complete(k Key, cl *call, lines []string, err error) {
	if cur, ok := f.inflight[k]; ok && cur == cl {
		delete(f.inflight, k)
	}
	if err != nil {
		f.log.Warn("chunk fetch failed", zap.Stringer("key", k), zap.Error(err))
		wrapped := fmt.Errorf("%w: %s: %v", ErrUnavailable, k, err)
		for _, done := range cl.waiters {
			done(nil, wrapped)
		}
		return
	}
	c := &Chunk{Key: k, Lines: lines}
	if cl.epoch == f.epoch {
		if evicted, ok := f.store.Put(c); ok {
			f.log.Debug("chunk evicted", zap.Stringer("key", evicted))
		}
	}
	for _, done := range cl.waiters {
		done(c, nil)
	}
}
