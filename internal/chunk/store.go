// Package chunk caches line ranges fetched from a document store.
package chunk

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrUnavailable is reported when a chunk could not be fetched.
var ErrUnavailable = errors.New("chunk unavailable")

// Key identifies the half-open line range [Start, End).
type Key struct {
	Start int
	End   int
}

func (k Key) String() string {
	return fmt.Sprintf("[%d,%d)", k.Start, k.End)
}

// Len is the number of lines the key covers.
func (k Key) Len() int {
	if k.End <= k.Start {
		return 0
	}
	return k.End - k.Start
}

// Valid reports whether 0 <= Start < End <= total.
func (k Key) Valid(total int) bool {
	return k.Start >= 0 && k.Start < k.End && k.End <= total
}

// Contains reports whether line falls inside the range.
func (k Key) Contains(line int) bool {
	return line >= k.Start && line < k.End
}

// Align widens [start, end) outward to multiples of granularity and clamps
// it to the document.
func Align(start, end, granularity, total int) Key {
	if granularity < 1 {
		granularity = 1
	}
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	start = (start / granularity) * granularity
	if rem := end % granularity; rem != 0 {
		end += granularity - rem
	}
	if end > total {
		end = total
	}
	if start >= end {
		if total == 0 {
			return Key{}
		}
		start = ((total - 1) / granularity) * granularity
		end = total
	}
	return Key{Start: start, End: end}
}

// Chunk is a fetched range with the text of each line.
type Chunk struct {
	Key   Key
	Lines []string
}

// Line returns the text of absolute line idx, if the chunk holds it.
func (c *Chunk) Line(idx int) (string, bool) {
	if c == nil || !c.Key.Contains(idx) {
		return "", false
	}
	off := idx - c.Key.Start
	if off >= len(c.Lines) {
		return "", false
	}
	return c.Lines[off], true
}

// Policy selects which entry is evicted when the store is full.
type Policy int

const (
	// PolicyFIFO evicts the entry inserted first; hits do not reorder.
	PolicyFIFO Policy = iota
	// PolicyLRU moves an entry to the back of the order on every hit.
	PolicyLRU
)

// ParsePolicy maps a config value onto a Policy, defaulting to FIFO.
func ParsePolicy(s string) Policy {
	switch s {
	case "lru", "LRU":
		return PolicyLRU
	default:
		return PolicyFIFO
	}
}

func (p Policy) String() string {
	if p == PolicyLRU {
		return "lru"
	}
	return "fifo"
}

// Store is a bounded, insertion-ordered chunk cache. It is not safe for
// concurrent use; the owning engine serializes access.
type Store struct {
	capacity int
	policy   Policy
	entries  map[Key]*Chunk
	order    []Key

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewStore creates a store holding at most capacity chunks.
func NewStore(capacity int, policy Policy) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		policy:   policy,
		entries:  make(map[Key]*Chunk, capacity),
	}
}

// Capacity returns the configured bound.
func (s *Store) Capacity() int { return s.capacity }

// Len returns the number of cached chunks.
func (s *Store) Len() int { return len(s.entries) }

// Get returns the chunk stored under the exact key.
func (s *Store) Get(k Key) (*Chunk, bool) {
	c, ok := s.entries[k]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	if s.policy == PolicyLRU {
		s.touch(k)
	}
	return c, true
}

// Put inserts or replaces a chunk, evicting the oldest entry when the store
// would exceed its capacity. It returns the evicted key, if any.
func (s *Store) Put(c *Chunk) (Key, bool) {
	if c == nil {
		return Key{}, false
	}
	if _, ok := s.entries[c.Key]; ok {
		s.entries[c.Key] = c
		if s.policy == PolicyLRU {
			s.touch(c.Key)
		}
		return Key{}, false
	}
	s.entries[c.Key] = c
	s.order = append(s.order, c.Key)
	if len(s.order) <= s.capacity {
		return Key{}, false
	}
	evict := s.order[0]
	s.order = s.order[1:]
	delete(s.entries, evict)
	s.evictions.Add(1)
	return evict, true
}

// Clear drops every cached chunk.
func (s *Store) Clear() {
	s.entries = make(map[Key]*Chunk, s.capacity)
	s.order = nil
}

// Keys returns the cached keys, oldest first.
func (s *Store) Keys() []Key {
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}

// Stats reports hit, miss and eviction counts.
func (s *Store) Stats() (hits, misses, evictions uint64) {
	return s.hits.Load(), s.misses.Load(), s.evictions.Load()
}

func (s *Store) touch(k Key) {
	for i, v := range s.order {
		if v == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, k)
}
