// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

const bitsPerWord = 64

// Set is a fixed-capacity bitset. It tracks slot occupancy during perfect
// hash construction: O(1) test/set, 8x less memory than a bool array.
type Set struct {
	words []uint64
	n     uint32
}

// NewSet returns a Set with capacity for n bits, all clear.
func NewSet(n uint32) *Set {
	return &Set{
		words: make([]uint64, (n+bitsPerWord-1)/bitsPerWord),
		n:     n,
	}
}

// Len returns the bit capacity of the set.
func (s *Set) Len() uint32 { return s.n }

// Test reports whether bit i is set.
func (s *Set) Test(i uint32) bool {
	return s.words[i/bitsPerWord]&(1<<(i%bitsPerWord)) != 0
}

// Set sets bit i.
func (s *Set) Set(i uint32) {
	s.words[i/bitsPerWord] |= 1 << (i % bitsPerWord)
}

// Clear clears bit i.
func (s *Set) Clear(i uint32) {
	s.words[i/bitsPerWord] &^= 1 << (i % bitsPerWord)
}

// Reset clears all bits without reallocating.
func (s *Set) Reset() {
	clear(s.words)
}
