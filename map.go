package phmap

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/tamirms/phmap/internal/displace"
	"golang.org/x/sync/errgroup"
)

// minParallelKeys is the key count below which WithWorkers is ignored:
// goroutine fan-out costs more than it saves on small sets.
const minParallelKeys = 4096

// Map is an immutable perfect-hash map. Once NewMap returns, the map never
// changes; Get, Contains, and iteration are safe for unlimited concurrent
// readers with no locking.
type Map[K, V any] struct {
	hasher  Hasher[K]
	table   *displace.Table
	entries []Entry[K, V]
}

// NewMap builds an immutable map over entries. The entries slice is copied;
// the caller may reuse it. Construction fails with a DuplicateKeyError if
// two keys compare equal, and with a ConstructionError if the displacement
// solver exhausts its retry budget; no partial map is ever returned.
func NewMap[K, V any](ctx context.Context, hasher Hasher[K], entries []Entry[K, V], opts ...Option) (*Map[K, V], error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	copied := slices.Clone(entries)
	src := &entrySource[K, V]{
		ctx:     ctx,
		hasher:  hasher,
		entries: copied,
		workers: cfg.workers,
	}
	table, err := displace.Build(ctx, src, cfg.displace)
	if err != nil {
		return nil, wrapBuildError(err, func(i int) K { return copied[i].Key })
	}
	return &Map[K, V]{hasher: hasher, table: table, entries: copied}, nil
}

// wrapBuildError converts internal solver errors into the public typed
// errors, resolving duplicate indices to the offending key.
func wrapBuildError[K any](err error, keyAt func(int) K) error {
	var dup *displace.DuplicateError
	if errors.As(err, &dup) {
		return &DuplicateKeyError[K]{Key: keyAt(dup.Second)}
	}
	var exh *displace.ExhaustedError
	if errors.As(err, &exh) {
		return &ConstructionError{Retries: exh.Retries, LargestBucket: exh.LargestBucket}
	}
	return err
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.entries) }

// Empty reports whether the map holds no entries.
func (m *Map[K, V]) Empty() bool { return len(m.entries) == 0 }

// Contains reports whether key was in the original key set.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Get returns the value associated with key. Keys outside the original set
// return (zero, false); absence is an expected result, not an error.
func (m *Map[K, V]) Get(key K) (V, bool) {
	h := m.hasher.Hash(key, m.table.Seed())
	idx, ok := m.table.Lookup(h)
	if !ok {
		var zero V
		return zero, false
	}
	// The perfect-hash property only covers members of the original set; a
	// foreign key can still route to an occupied slot. Full equality
	// disambiguates.
	e := &m.entries[idx]
	if !m.hasher.Equal(key, e.Key) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// All iterates entries in slot order. The order is fixed for this map's
// lifetime but carries no meaning: it is unrelated to insertion order and
// may differ between two maps built from the same key set.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for s := uint32(0); s < m.table.NumSlots(); s++ {
			idx := m.table.EntryAt(s)
			if idx < 0 {
				continue
			}
			e := &m.entries[idx]
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Keys iterates keys in slot order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values iterates values in slot order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Stats holds construction statistics for a built container.
type Stats struct {
	NumKeys    int
	NumBuckets int
	TableSize  int
	LoadFactor float64 // NumKeys / TableSize
	Retries    int     // global seeds tried (1 = first seed worked)
	MaxSeed    int     // largest displacement seed accepted
}

// Stats returns construction statistics.
func (m *Map[K, V]) Stats() Stats {
	return tableStats(m.table, len(m.entries))
}

func tableStats(t *displace.Table, numKeys int) Stats {
	s := Stats{
		NumKeys:    numKeys,
		NumBuckets: int(t.NumBuckets()),
		TableSize:  int(t.NumSlots()),
		Retries:    t.Retries(),
		MaxSeed:    int(t.MaxSeed()),
	}
	if s.TableSize > 0 {
		s.LoadFactor = float64(s.NumKeys) / float64(s.TableSize)
	}
	return s
}

// entrySource adapts an entry slice to the solver's KeySource. Hashing is
// the only per-attempt cost that touches every key, so it optionally fans
// out across workers; placement stays sequential in the solver.
type entrySource[K, V any] struct {
	ctx     context.Context
	hasher  Hasher[K]
	entries []Entry[K, V]
	workers int
}

func (s *entrySource[K, V]) Len() int { return len(s.entries) }

func (s *entrySource[K, V]) EqualKeys(i, j int) bool {
	return s.hasher.Equal(s.entries[i].Key, s.entries[j].Key)
}

func (s *entrySource[K, V]) HashAll(seed uint64, dst []uint64) error {
	if s.workers <= 1 || len(dst) < minParallelKeys {
		for i := range s.entries {
			dst[i] = s.hasher.Hash(s.entries[i].Key, seed)
		}
		return nil
	}

	g, ctx := errgroup.WithContext(s.ctx)
	chunk := (len(dst) + s.workers - 1) / s.workers
	for start := 0; start < len(dst); start += chunk {
		end := min(start+chunk, len(dst))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				dst[i] = s.hasher.Hash(s.entries[i].Key, seed)
			}
			return nil
		})
	}
	return g.Wait()
}

var _ displace.KeySource = (*entrySource[string, int])(nil)
