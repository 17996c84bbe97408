// Package displace implements two-level perfect hash construction in the
// hash-displace family.
//
// Keys are partitioned into buckets by a first-level hash, buckets are placed
// largest-first, and each bucket searches for a displacement seed under which
// all of its keys land on distinct free slots. A failed search for any bucket
// fails the whole attempt; the construction retries with a fresh global seed
// up to a configured bound.
package displace

import (
	"fmt"
	"math"

	pherrors "github.com/tamirms/phmap/errors"
)

// Default policy constants. These are tunable trade-offs between construction
// cost, success probability, and memory overhead; callers override them via
// Config rather than relying on any particular value.
const (
	// DefaultBucketLoadFactor is the average number of keys per bucket
	// (N / B). At 1.0 the bucket count matches the key count, keeping
	// expected bucket sizes small and the displacement search cheap.
	DefaultBucketLoadFactor = 1.0

	// DefaultTableLoadFactor is the slot occupancy (N / tableSize).
	// 0.85 leaves ~18% free slots, which keeps the per-bucket seed
	// search short at the cost of a little memory.
	DefaultTableLoadFactor = 0.85

	// DefaultMaxSeedAttempts bounds the per-bucket displacement search.
	DefaultMaxSeedAttempts = 4096

	// DefaultMaxGlobalRetries bounds whole-construction retries. Failure
	// is a property of an unlucky global hash assignment, not of any one
	// bucket, so a retry reshuffles every bucket.
	DefaultMaxGlobalRetries = 64

	// DefaultGlobalSeed is the starting global seed. Arbitrary; overridden
	// via Config.GlobalSeed.
	DefaultGlobalSeed = uint64(0x1234567890abcdef)
)

// maxSeedAttemptsLimit is the largest permitted displacement search bound.
// Displacement seeds are stored as uint16 with EmptySeed (0xFFFF) reserved
// as the empty-bucket sentinel.
const maxSeedAttemptsLimit = int(EmptySeed)

// MaxKeys is the largest supported key count. Slot entries store key indices
// as int32 with -1 reserved for empty slots.
const MaxKeys = math.MaxInt32

// Config holds the construction policy knobs.
type Config struct {
	BucketLoadFactor float64 // average keys per bucket (N / B)
	TableLoadFactor  float64 // slot occupancy (N / tableSize)
	MaxSeedAttempts  int     // per-bucket displacement search bound
	MaxGlobalRetries int     // whole-construction retry bound
	GlobalSeed       uint64  // first global seed to try
}

// DefaultConfig returns the default construction policy.
func DefaultConfig() Config {
	return Config{
		BucketLoadFactor: DefaultBucketLoadFactor,
		TableLoadFactor:  DefaultTableLoadFactor,
		MaxSeedAttempts:  DefaultMaxSeedAttempts,
		MaxGlobalRetries: DefaultMaxGlobalRetries,
		GlobalSeed:       DefaultGlobalSeed,
	}
}

// Validate checks that every policy knob is within its documented bounds.
func (c Config) Validate() error {
	if !(c.BucketLoadFactor > 0) || math.IsInf(c.BucketLoadFactor, 0) {
		return fmt.Errorf("%w: bucket load factor %v must be > 0", pherrors.ErrInvalidConfig, c.BucketLoadFactor)
	}
	if !(c.TableLoadFactor > 0) || c.TableLoadFactor > 1 {
		return fmt.Errorf("%w: table load factor %v must be in (0, 1]", pherrors.ErrInvalidConfig, c.TableLoadFactor)
	}
	if c.MaxSeedAttempts < 1 || c.MaxSeedAttempts > maxSeedAttemptsLimit {
		return fmt.Errorf("%w: max seed attempts %d must be in [1, %d]", pherrors.ErrInvalidConfig, c.MaxSeedAttempts, maxSeedAttemptsLimit)
	}
	if c.MaxGlobalRetries < 1 {
		return fmt.Errorf("%w: max global retries %d must be >= 1", pherrors.ErrInvalidConfig, c.MaxGlobalRetries)
	}
	return nil
}

// numBuckets returns the bucket count for n keys: ceil(n / BucketLoadFactor),
// at least 1 for non-empty key sets.
func (c Config) numBuckets(n int) uint32 {
	b := uint64(math.Ceil(float64(n) / c.BucketLoadFactor))
	if b == 0 {
		b = 1
	}
	if b > math.MaxUint32 {
		b = math.MaxUint32
	}
	return uint32(b)
}

// numSlots returns the table size for n keys: ceil(n / TableLoadFactor),
// never below n.
func (c Config) numSlots(n int) (uint32, error) {
	s := uint64(math.Ceil(float64(n) / c.TableLoadFactor))
	if s < uint64(n) {
		s = uint64(n)
	}
	if s == 0 {
		s = 1
	}
	if s > math.MaxUint32 {
		return 0, fmt.Errorf("%w: table size %d exceeds uint32 range", pherrors.ErrInvalidConfig, s)
	}
	return uint32(s), nil
}
