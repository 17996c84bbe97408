package phmap

import (
	"iter"
	"slices"
)

// OrderedMap is an immutable map backed by a sorted entry array and binary
// search. It needs only a total order on keys, no hashing, and iterates in
// ascending key order. Use it when key order is meaningful, or for key types
// that are easy to order but hard to hash well.
type OrderedMap[K, V any] struct {
	cmp     func(K, K) int
	entries []Entry[K, V] // sorted ascending by key
}

// NewOrderedMap builds an immutable ordered map over entries, sorted with
// cmp (standard -1/0/+1 comparison). The entries slice is copied. The only
// failure mode is a DuplicateKeyError when two keys compare equal.
func NewOrderedMap[K, V any](cmp func(K, K) int, entries []Entry[K, V]) (*OrderedMap[K, V], error) {
	copied := slices.Clone(entries)
	slices.SortFunc(copied, func(a, b Entry[K, V]) int { return cmp(a.Key, b.Key) })
	for i := 1; i < len(copied); i++ {
		if cmp(copied[i-1].Key, copied[i].Key) == 0 {
			return nil, &DuplicateKeyError[K]{Key: copied[i].Key}
		}
	}
	return &OrderedMap[K, V]{cmp: cmp, entries: copied}, nil
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int { return len(m.entries) }

// Empty reports whether the map holds no entries.
func (m *OrderedMap[K, V]) Empty() bool { return len(m.entries) == 0 }

// Contains reports whether key was in the original key set.
func (m *OrderedMap[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Get returns the value associated with key using binary search
// (lower-bound position, then equality): O(log N) comparisons.
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	i, found := slices.BinarySearchFunc(m.entries, key, func(e Entry[K, V], k K) int {
		return m.cmp(e.Key, k)
	})
	if !found {
		var zero V
		return zero, false
	}
	return m.entries[i].Value, true
}

// All iterates entries in strictly ascending key order. Unlike the unordered
// containers, this order is meaningful and stable across rebuilds of the
// same key set.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.entries {
			if !yield(m.entries[i].Key, m.entries[i].Value) {
				return
			}
		}
	}
}

// Keys iterates keys in ascending order.
func (m *OrderedMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values iterates values in ascending key order.
func (m *OrderedMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// OrderedSet is an immutable set backed by a sorted key array.
type OrderedSet[K any] struct {
	m *OrderedMap[K, struct{}]
}

// NewOrderedSet builds an immutable ordered set over keys. The keys slice is
// copied. Fails only with a DuplicateKeyError.
func NewOrderedSet[K any](cmp func(K, K) int, keys []K) (*OrderedSet[K], error) {
	entries := make([]Entry[K, struct{}], len(keys))
	for i, k := range keys {
		entries[i] = Entry[K, struct{}]{Key: k}
	}
	m, err := NewOrderedMap(cmp, entries)
	if err != nil {
		return nil, err
	}
	return &OrderedSet[K]{m: m}, nil
}

// Len returns the number of keys.
func (s *OrderedSet[K]) Len() int { return s.m.Len() }

// Empty reports whether the set holds no keys.
func (s *OrderedSet[K]) Empty() bool { return s.m.Empty() }

// Contains reports whether key was in the original key set.
func (s *OrderedSet[K]) Contains(key K) bool { return s.m.Contains(key) }

// All iterates keys in strictly ascending order.
func (s *OrderedSet[K]) All() iter.Seq[K] { return s.m.Keys() }
