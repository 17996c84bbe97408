package displace

import (
	intbits "github.com/tamirms/phmap/internal/bits"
)

// EmptySeed is the displacement sentinel for buckets that held no keys at
// construction time. A lookup that routes to such a bucket can return
// not-found without computing the second-level hash.
const EmptySeed = uint16(0xFFFF)

// displaceHashC is the mixing constant folded into the displacement hash.
// A well-chosen odd constant with good mixing properties (wyhash wyp1).
const displaceHashC = 0x517cc1b727220a95

// DisplaceHash derives the second-level multiplier for a displacement seed.
//
// The SplitMix64 finalizer makes the multipliers for nearby seeds behave as
// independent trials; without it the raw multiplication leaves correlated
// high-bit patterns and the effective number of distinct displacement
// attempts drops well below the configured bound. The trailing "| 1" forces
// the multiplier odd so that multiplication stays a bijection on uint64 and
// hp=0 is impossible.
func DisplaceHash(seed uint16, globalSeed uint64) uint64 {
	x := displaceHashC * (uint64(seed) ^ globalSeed)
	// SplitMix64 finalizer (Stafford variant)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x | 1
}

// Fold mixes the high half of a key hash into its low half. The first level
// routes on the high bits (FastRange32), so the second level must not depend
// on them alone; folding reintroduces the low bits before the displacement
// multiply.
func Fold(h uint64) uint64 {
	return h ^ (h >> 32)
}

// SlotFor computes the slot index for a pre-folded key hash and a
// displacement multiplier: a 64-bit multiply plus FastRange.
func SlotFor(hFolded, hp uint64, numSlots uint32) uint32 {
	return intbits.FastRange32(hFolded*hp, numSlots)
}

// NextSeed evolves the global seed between construction attempts
// (SplitMix64 sequence step plus finalizer).
func NextSeed(seed uint64) uint64 {
	x := seed + 0x9e3779b97f4a7c15
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Table is an immutable perfect-hash table produced by Build. It maps a
// 64-bit key hash (computed with the table's global seed) to the index of
// the key in the original key set. The caller owns key storage and performs
// the mandatory full-key equality verification on every hit.
type Table struct {
	seeds      []uint16 // per-bucket displacement, EmptySeed for empty buckets
	slots      []int32  // key index per slot, -1 for free slots
	numBuckets uint32
	numSlots   uint32
	globalSeed uint64

	// Construction diagnostics
	retries int    // global attempts consumed (1 = first seed worked)
	maxSeed uint16 // largest displacement seed accepted
}

// Seed returns the global seed the table was built with. Callers must hash
// query keys with this seed before calling Lookup.
func (t *Table) Seed() uint64 { return t.globalSeed }

// NumBuckets returns the first-level bucket count.
func (t *Table) NumBuckets() uint32 { return t.numBuckets }

// NumSlots returns the slot array length.
func (t *Table) NumSlots() uint32 { return t.numSlots }

// Retries returns the number of global construction attempts consumed.
func (t *Table) Retries() int { return t.retries }

// MaxSeed returns the largest displacement seed accepted during construction.
func (t *Table) MaxSeed() uint16 { return t.maxSeed }

// Seeds returns the displacement table. The caller must not modify it; it is
// exposed for serialization.
func (t *Table) Seeds() []uint16 { return t.seeds }

// EntryAt returns the key index stored in slot s, or -1 if the slot is free.
func (t *Table) EntryAt(s uint32) int32 { return t.slots[s] }

// Lookup maps a key hash to the index of the (unique) candidate key, or
// (-1, false) when no key in the set can match. A true result is only a
// candidate: a key outside the original set can still route to an occupied
// slot, so the caller must verify full key equality against the stored key.
func (t *Table) Lookup(h uint64) (int32, bool) {
	if t.numSlots == 0 {
		return -1, false
	}
	b := intbits.FastRange32(h, t.numBuckets)
	d := t.seeds[b]
	if d == EmptySeed {
		return -1, false
	}
	s := SlotFor(Fold(h), DisplaceHash(d, t.globalSeed), t.numSlots)
	idx := t.slots[s]
	if idx < 0 {
		return -1, false
	}
	return idx, true
}
