package chunk

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func chunkOf(start, end int) *Chunk {
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, "line")
	}
	return &Chunk{Key: Key{Start: start, End: end}, Lines: lines}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name                    string
		start, end, gran, total int
		want                    Key
	}{
		{"inside", 130, 260, 100, 1000, Key{100, 300}},
		{"already aligned", 200, 400, 100, 1000, Key{200, 400}},
		{"clamp head", -50, 80, 100, 1000, Key{0, 100}},
		{"clamp tail", 950, 1200, 100, 1000, Key{900, 1000}},
		{"short document", 0, 40, 100, 17, Key{0, 17}},
		{"start past end", 1200, 1300, 100, 1000, Key{900, 1000}},
		{"zero granularity", 3, 7, 0, 10, Key{3, 7}},
		{"empty document", 0, 10, 100, 0, Key{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Align(tt.start, tt.end, tt.gran, tt.total))
		})
	}
}

func TestKeyHelpers(t *testing.T) {
	k := Key{Start: 100, End: 200}
	require.Equal(t, 100, k.Len())
	require.True(t, k.Valid(200))
	require.False(t, k.Valid(150))
	require.True(t, k.Contains(100))
	require.False(t, k.Contains(200))
	require.Equal(t, "[100,200)", k.String())
	require.Equal(t, 0, Key{Start: 5, End: 5}.Len())
}

func TestChunkLine(t *testing.T) {
	c := &Chunk{Key: Key{10, 13}, Lines: []string{"a", "b"}}
	got, ok := c.Line(11)
	require.True(t, ok)
	require.Equal(t, "b", got)
	_, ok = c.Line(12)
	require.False(t, ok, "short chunk")
	_, ok = c.Line(9)
	require.False(t, ok)
	var nilChunk *Chunk
	_, ok = nilChunk.Line(0)
	require.False(t, ok)
}

func TestStoreFIFOEvictsOldestInserted(t *testing.T) {
	s := NewStore(2, PolicyFIFO)
	s.Put(chunkOf(0, 100))
	s.Put(chunkOf(100, 200))

	// A hit does not protect the oldest entry under FIFO.
	_, ok := s.Get(Key{0, 100})
	require.True(t, ok)

	evicted, ok := s.Put(chunkOf(200, 300))
	require.True(t, ok)
	require.Equal(t, Key{0, 100}, evicted)
	require.Equal(t, []Key{{100, 200}, {200, 300}}, s.Keys())
}

func TestStoreLRUKeepsRecentlyRead(t *testing.T) {
	s := NewStore(2, PolicyLRU)
	s.Put(chunkOf(0, 100))
	s.Put(chunkOf(100, 200))
	_, ok := s.Get(Key{0, 100})
	require.True(t, ok)

	evicted, ok := s.Put(chunkOf(200, 300))
	require.True(t, ok)
	require.Equal(t, Key{100, 200}, evicted)
}

func TestStoreReplaceDoesNotEvict(t *testing.T) {
	s := NewStore(1, PolicyFIFO)
	s.Put(chunkOf(0, 100))
	_, evicted := s.Put(&Chunk{Key: Key{0, 100}, Lines: []string{"new"}})
	require.False(t, evicted)
	c, ok := s.Get(Key{0, 100})
	require.True(t, ok)
	require.Equal(t, []string{"new"}, c.Lines)
}

func TestStoreClearAndStats(t *testing.T) {
	s := NewStore(0, PolicyFIFO)
	require.Equal(t, 1, s.Capacity())
	s.Put(chunkOf(0, 1))
	s.Get(Key{0, 1})
	s.Get(Key{5, 6})
	s.Put(chunkOf(1, 2))
	s.Clear()
	require.Equal(t, 0, s.Len())
	require.Empty(t, s.Keys())
	hits, misses, evictions := s.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)
	require.Equal(t, uint64(1), evictions)
}

func TestParsePolicy(t *testing.T) {
	require.Equal(t, PolicyLRU, ParsePolicy("lru"))
	require.Equal(t, PolicyFIFO, ParsePolicy("fifo"))
	require.Equal(t, PolicyFIFO, ParsePolicy(""))
	require.Equal(t, "lru", PolicyLRU.String())
}

func TestStoreNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(rt, "capacity")
		policy := Policy(rapid.IntRange(0, 1).Draw(rt, "policy"))
		s := NewStore(capacity, policy)
		starts := rapid.SliceOfN(rapid.IntRange(0, 40), 1, 200).Draw(rt, "starts")
		for _, start := range starts {
			k := Key{Start: start * 100, End: start*100 + 100}
			_, existed := s.entries[k]
			before := s.Keys()
			evicted, ok := s.Put(chunkOf(k.Start, k.End))
			if s.Len() > capacity {
				rt.Fatalf("len %d exceeds capacity %d", s.Len(), capacity)
			}
			if ok {
				if existed || len(before) != capacity {
					rt.Fatalf("unexpected eviction")
				}
				if policy == PolicyFIFO && evicted != before[0] {
					rt.Fatalf("evicted %v, want oldest %v", evicted, before[0])
				}
			}
		}
	})
}
