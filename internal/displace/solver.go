package displace

import (
	"context"
	"fmt"
	"slices"

	pherrors "github.com/tamirms/phmap/errors"
	intbits "github.com/tamirms/phmap/internal/bits"
)

// KeySource is the solver's view of the key set. The solver never touches
// key bytes directly; it works on 64-bit hashes and asks the source for full
// key equality only when diagnosing a failed bucket.
type KeySource interface {
	// Len returns the number of keys.
	Len() int

	// HashAll writes hash(key[i], seed) into dst[i] for every key.
	// dst has length Len(). Called once per global construction attempt.
	HashAll(seed uint64, dst []uint64) error

	// EqualKeys reports whether keys i and j compare equal.
	EqualKeys(i, j int) bool
}

// DuplicateError reports that two keys in the input compare equal.
// First and Second are indices into the key set, First < Second.
type DuplicateError struct {
	First  int
	Second int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: entries %d and %d", pherrors.ErrDuplicateKey, e.First, e.Second)
}

func (e *DuplicateError) Unwrap() error { return pherrors.ErrDuplicateKey }

// ExhaustedError reports that every global retry failed to place some bucket
// within the displacement search bound.
type ExhaustedError struct {
	Retries       int // global attempts consumed
	LargestBucket int // largest bucket size in the last attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v: %d retries, largest bucket %d keys",
		pherrors.ErrConstructionFailed, e.Retries, e.LargestBucket)
}

func (e *ExhaustedError) Unwrap() error { return pherrors.ErrConstructionFailed }

// Build constructs a perfect-hash Table over the keys of src.
//
// Each global attempt hashes every key once, partitions keys into buckets by
// first-level hash, and places buckets largest-first by searching displacement
// seeds. All attempt state (occupancy, displacement table, slot array) is
// discarded and rebuilt on retry. Build fails with a DuplicateError if two
// keys compare equal, and with an ExhaustedError if cfg.MaxGlobalRetries
// attempts all fail.
func Build(ctx context.Context, src KeySource, cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := src.Len()
	if n > MaxKeys {
		return nil, pherrors.ErrTooManyKeys
	}
	if n == 0 {
		// Empty key set: a table with no slots. Lookup always misses.
		return &Table{globalSeed: cfg.GlobalSeed}, nil
	}

	numBuckets := cfg.numBuckets(n)
	numSlots, err := cfg.numSlots(n)
	if err != nil {
		return nil, err
	}

	s := newSolver(n, numBuckets, numSlots, cfg)
	seed := cfg.GlobalSeed
	lastLargest := 0

	for attempt := 1; attempt <= cfg.MaxGlobalRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := src.HashAll(seed, s.hashes); err != nil {
			return nil, err
		}

		t, largest, err := s.attempt(seed, src)
		if err != nil {
			return nil, err
		}
		if t != nil {
			t.retries = attempt
			return t, nil
		}
		lastLargest = largest
		seed = NextSeed(seed)
	}

	// Exhaustion with a duplicate key present is not bad luck: equal keys
	// share a bucket and a slot under every seed, so their bucket can never
	// be placed. Diagnose before reporting exhaustion.
	if first, second, ok := findDuplicate(src, s.hashes); ok {
		return nil, &DuplicateError{First: first, Second: second}
	}
	return nil, &ExhaustedError{Retries: cfg.MaxGlobalRetries, LargestBucket: lastLargest}
}

// solver holds per-construction state, reused across global attempts.
type solver struct {
	cfg        Config
	n          int
	numBuckets uint32
	numSlots   uint32

	hashes []uint64 // hash(key[i], seed) for the current attempt

	// Bucket grouping (rebuilt each attempt)
	bucketStart []uint32 // cumulative counts, len numBuckets+1
	bucketKeys  []int32  // key indices grouped by bucket
	bucketOrder []uint32 // bucket indices sorted by descending size
	cursors     []uint32 // insertion cursors for grouping, len numBuckets

	// Counting sort scratch (bucket sizes are small)
	sizeCounts []uint32

	// Placement state (rebuilt each attempt)
	taken   *intbits.Set
	slots   []int32
	seeds   []uint16
	slotBuf []uint32 // candidate slots for the bucket being placed
}

func newSolver(n int, numBuckets, numSlots uint32, cfg Config) *solver {
	return &solver{
		cfg:         cfg,
		n:           n,
		numBuckets:  numBuckets,
		numSlots:    numSlots,
		hashes:      make([]uint64, n),
		bucketStart: make([]uint32, numBuckets+1),
		bucketKeys:  make([]int32, n),
		bucketOrder: make([]uint32, numBuckets),
		cursors:     make([]uint32, numBuckets),
		taken:       intbits.NewSet(numSlots),
		slots:       make([]int32, numSlots),
		seeds:       make([]uint16, numBuckets),
		slotBuf:     nil, // sized after the first grouping
	}
}

// attempt runs one full construction attempt under the given global seed.
// Returns (table, _, nil) on success, (nil, largestBucket, nil) when the
// attempt fails and should be retried, and (nil, _, err) on a duplicate key.
func (s *solver) attempt(seed uint64, src KeySource) (*Table, int, error) {
	maxBucketSize := s.groupBuckets()
	s.sortBuckets(maxBucketSize)

	if cap(s.slotBuf) < maxBucketSize {
		s.slotBuf = make([]uint32, maxBucketSize)
	}

	s.taken.Reset()
	for i := range s.slots {
		s.slots[i] = -1
	}
	for i := range s.seeds {
		s.seeds[i] = EmptySeed
	}

	maxSeedUsed := uint16(0)
	for _, b := range s.bucketOrder {
		start, end := s.bucketStart[b], s.bucketStart[b+1]
		if start == end {
			// Buckets are ordered largest-first; only empty ones remain.
			break
		}
		keys := s.bucketKeys[start:end]

		d, ok := s.findSeed(keys, seed)
		if !ok {
			if i, j, dup := s.bucketDuplicate(keys, src); dup {
				return nil, 0, &DuplicateError{First: i, Second: j}
			}
			return nil, maxBucketSize, nil
		}

		s.place(keys, b, d, seed)
		if d > maxSeedUsed {
			maxSeedUsed = d
		}
	}

	return &Table{
		seeds:      slices.Clone(s.seeds),
		slots:      slices.Clone(s.slots),
		numBuckets: s.numBuckets,
		numSlots:   s.numSlots,
		globalSeed: seed,
		maxSeed:    maxSeedUsed,
	}, 0, nil
}

// groupBuckets partitions key indices by first-level hash using a counting
// sort over bucket ids. Returns the largest bucket size.
func (s *solver) groupBuckets() int {
	clear(s.bucketStart)
	for _, h := range s.hashes {
		s.bucketStart[intbits.FastRange32(h, s.numBuckets)+1]++
	}

	maxSize := uint32(0)
	for b := uint32(1); b <= s.numBuckets; b++ {
		if s.bucketStart[b] > maxSize {
			maxSize = s.bucketStart[b]
		}
		s.bucketStart[b] += s.bucketStart[b-1]
	}

	copy(s.cursors, s.bucketStart[:s.numBuckets])
	for i := 0; i < s.n; i++ {
		b := intbits.FastRange32(s.hashes[i], s.numBuckets)
		s.bucketKeys[s.cursors[b]] = int32(i)
		s.cursors[b]++
	}
	return int(maxSize)
}

// sortBuckets orders bucket indices by descending size using a counting sort
// over sizes (O(B), sizes are tiny).
func (s *solver) sortBuckets(maxBucketSize int) {
	if cap(s.sizeCounts) < maxBucketSize+1 {
		s.sizeCounts = make([]uint32, maxBucketSize+1)
	}
	counts := s.sizeCounts[:maxBucketSize+1]
	clear(counts)

	for b := uint32(0); b < s.numBuckets; b++ {
		counts[s.bucketStart[b+1]-s.bucketStart[b]]++
	}
	// Descending: position of size k starts after all sizes > k.
	pos := uint32(0)
	for size := maxBucketSize; size >= 0; size-- {
		c := counts[size]
		counts[size] = pos
		pos += c
	}
	for b := uint32(0); b < s.numBuckets; b++ {
		size := s.bucketStart[b+1] - s.bucketStart[b]
		s.bucketOrder[counts[size]] = b
		counts[size]++
	}
}

// findSeed searches displacement seeds for a bucket. A seed is accepted iff
// every key lands on a distinct slot and none of those slots is taken.
func (s *solver) findSeed(keys []int32, globalSeed uint64) (uint16, bool) {
	buf := s.slotBuf[:0]
	for d := 0; d < s.cfg.MaxSeedAttempts; d++ {
		hp := DisplaceHash(uint16(d), globalSeed)
		buf = buf[:0]
		ok := true
		for _, ki := range keys {
			slot := SlotFor(Fold(s.hashes[ki]), hp, s.numSlots)
			if s.taken.Test(slot) {
				ok = false
				break
			}
			// Pairwise distinctness within the bucket. Buckets are small
			// (load factor ~1), so a linear scan beats any set structure.
			for _, prev := range buf {
				if prev == slot {
					ok = false
					break
				}
			}
			if !ok {
				break
			}
			buf = append(buf, slot)
		}
		if ok {
			return uint16(d), true
		}
	}
	return 0, false
}

// place marks the bucket's slots occupied and records its displacement seed.
func (s *solver) place(keys []int32, bucket uint32, d uint16, globalSeed uint64) {
	hp := DisplaceHash(d, globalSeed)
	for _, ki := range keys {
		slot := SlotFor(Fold(s.hashes[ki]), hp, s.numSlots)
		s.taken.Set(slot)
		s.slots[slot] = ki
	}
	s.seeds[bucket] = d
}

// bucketDuplicate scans a failed bucket for two keys with identical hashes
// that also compare equal. Identical hashes from distinct keys are merely
// indistinguishable under this global seed and separate on retry; equal keys
// never separate.
func (s *solver) bucketDuplicate(keys []int32, src KeySource) (int, int, bool) {
	for a := 0; a < len(keys); a++ {
		for b := a + 1; b < len(keys); b++ {
			i, j := int(keys[a]), int(keys[b])
			if s.hashes[i] == s.hashes[j] && src.EqualKeys(i, j) {
				if i > j {
					i, j = j, i
				}
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// findDuplicate scans the whole key set for a pair of equal keys. Used on
// the exhaustion path, where the failing bucket may differ between attempts
// and the per-bucket check can miss a duplicate pair.
func findDuplicate(src KeySource, hashes []uint64) (int, int, bool) {
	order := make([]int32, len(hashes))
	for i := range order {
		order[i] = int32(i)
	}
	slices.SortFunc(order, func(a, b int32) int {
		switch {
		case hashes[a] < hashes[b]:
			return -1
		case hashes[a] > hashes[b]:
			return 1
		default:
			return 0
		}
	})
	// Equal keys always share a hash, so candidates sit in runs of equal
	// hashes. Runs longer than two can interleave distinct colliding keys
	// with the duplicate pair, so check each run pairwise.
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && hashes[order[hi]] == hashes[order[lo]] {
			hi++
		}
		for x := lo; x < hi; x++ {
			for y := x + 1; y < hi; y++ {
				a, b := int(order[x]), int(order[y])
				if src.EqualKeys(a, b) {
					if a > b {
						a, b = b, a
					}
					return a, b, true
				}
			}
		}
		lo = hi
	}
	return 0, 0, false
}
