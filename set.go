package phmap

import (
	"context"
	"iter"
)

// Set is an immutable perfect-hash set. Safe for unlimited concurrent
// readers once built.
type Set[K any] struct {
	m *Map[K, struct{}]
}

// NewSet builds an immutable set over keys. The keys slice is copied.
// Fails with a DuplicateKeyError or ConstructionError like NewMap.
func NewSet[K any](ctx context.Context, hasher Hasher[K], keys []K, opts ...Option) (*Set[K], error) {
	entries := make([]Entry[K, struct{}], len(keys))
	for i, k := range keys {
		entries[i] = Entry[K, struct{}]{Key: k}
	}
	m, err := NewMap(ctx, hasher, entries, opts...)
	if err != nil {
		return nil, err
	}
	return &Set[K]{m: m}, nil
}

// Len returns the number of keys.
func (s *Set[K]) Len() int { return s.m.Len() }

// Empty reports whether the set holds no keys.
func (s *Set[K]) Empty() bool { return s.m.Empty() }

// Contains reports whether key was in the original key set.
func (s *Set[K]) Contains(key K) bool { return s.m.Contains(key) }

// All iterates keys in slot order. The order is fixed for this set's
// lifetime but carries no meaning.
func (s *Set[K]) All() iter.Seq[K] { return s.m.Keys() }

// Stats returns construction statistics.
func (s *Set[K]) Stats() Stats { return s.m.Stats() }
