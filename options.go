package phmap

import (
	"github.com/tamirms/phmap/internal/displace"
)

// Option is a functional option for configuring construction.
type Option func(*buildConfig)

type buildConfig struct {
	displace displace.Config
	workers  int
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		displace: displace.DefaultConfig(),
		workers:  0, // Default to single-threaded; use WithWorkers(n) to parallelize hashing
	}
}

// WithBucketLoadFactor sets the average number of keys per first-level
// bucket (N / B). Lower values mean more, smaller buckets: a cheaper
// displacement search at the cost of a larger displacement table.
// Default 1.0.
func WithBucketLoadFactor(f float64) Option {
	return func(c *buildConfig) {
		c.displace.BucketLoadFactor = f
	}
}

// WithTableLoadFactor sets the slot occupancy (N / table size), in (0, 1].
// Lower values trade memory for construction success probability and speed.
// Default 0.85.
func WithTableLoadFactor(f float64) Option {
	return func(c *buildConfig) {
		c.displace.TableLoadFactor = f
	}
}

// WithMaxSeedAttempts bounds the per-bucket displacement seed search.
// Default 4096, maximum 65535 (seeds are uint16 with one value reserved).
func WithMaxSeedAttempts(n int) Option {
	return func(c *buildConfig) {
		c.displace.MaxSeedAttempts = n
	}
}

// WithMaxGlobalRetries bounds how many global seeds construction tries
// before reporting a ConstructionError. Default 64.
func WithMaxGlobalRetries(n int) Option {
	return func(c *buildConfig) {
		c.displace.MaxGlobalRetries = n
	}
}

// WithGlobalSeed sets the first global hash seed. Construction is fully
// deterministic for a given seed and key set.
func WithGlobalSeed(seed uint64) Option {
	return func(c *buildConfig) {
		c.displace.GlobalSeed = seed
	}
}

// WithWorkers sets the number of goroutines used to hash the key set on each
// construction attempt. Bucket placement itself stays sequential (later
// buckets depend on earlier occupancy). Default single-threaded.
func WithWorkers(n int) Option {
	return func(c *buildConfig) {
		c.workers = n
	}
}
