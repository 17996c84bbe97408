package phmap

import (
	"bytes"

	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// Hasher is the capability a key type must provide to be usable with the
// unordered containers. Hash must be deterministic, total, free of side
// effects, and sensitive to seed: different seeds must (with high
// probability) reshuffle bucket and slot assignments, since the seed search
// is what drives construction. Equal is full key equality and is consulted
// on every lookup hit to reject keys outside the original set.
type Hasher[K any] interface {
	Hash(key K, seed uint64) uint64
	Equal(a, b K) bool
}

// StringHasher hashes strings with seeded xxHash3.
type StringHasher struct{}

func (StringHasher) Hash(key string, seed uint64) uint64 { return xxh3.HashStringSeed(key, seed) }
func (StringHasher) Equal(a, b string) bool              { return a == b }

// BytesHasher hashes byte slices with seeded xxHash3.
type BytesHasher struct{}

func (BytesHasher) Hash(key []byte, seed uint64) uint64 { return xxh3.HashSeed(key, seed) }
func (BytesHasher) Equal(a, b []byte) bool              { return bytes.Equal(a, b) }

// Murmur3BytesHasher hashes byte slices with seeded Murmur3. Murmur3 takes a
// 32-bit seed, so the two halves of the 64-bit seed are folded together.
type Murmur3BytesHasher struct{}

func (Murmur3BytesHasher) Hash(key []byte, seed uint64) uint64 {
	return murmur3.Sum64WithSeed(key, uint32(seed)^uint32(seed>>32))
}

func (Murmur3BytesHasher) Equal(a, b []byte) bool { return bytes.Equal(a, b) }

// Murmur3StringHasher hashes strings with seeded Murmur3.
type Murmur3StringHasher struct{}

func (Murmur3StringHasher) Hash(key string, seed uint64) uint64 {
	return murmur3.Sum64WithSeed([]byte(key), uint32(seed)^uint32(seed>>32))
}

func (Murmur3StringHasher) Equal(a, b string) bool { return a == b }

// Integer is the constraint for IntHasher key types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// IntHasher hashes fixed-width scalar keys with seed-mixed multiplicative
// hashing (a SplitMix64 finalizer over the seed-xored key).
type IntHasher[K Integer] struct{}

func (IntHasher[K]) Hash(key K, seed uint64) uint64 {
	x := uint64(key) ^ (seed * 0x9e3779b97f4a7c15)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func (IntHasher[K]) Equal(a, b K) bool { return a == b }
