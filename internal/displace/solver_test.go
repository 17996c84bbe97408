package displace

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	pherrors "github.com/tamirms/phmap/errors"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// uint64Source is a KeySource over uint64 keys with SplitMix64-style
// seed-mixed hashing.
type uint64Source struct {
	keys []uint64
}

func hashUint64(key, seed uint64) uint64 {
	x := key ^ (seed * 0x9e3779b97f4a7c15)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func (s *uint64Source) Len() int { return len(s.keys) }

func (s *uint64Source) HashAll(seed uint64, dst []uint64) error {
	for i, k := range s.keys {
		dst[i] = hashUint64(k, seed)
	}
	return nil
}

func (s *uint64Source) EqualKeys(i, j int) bool { return s.keys[i] == s.keys[j] }

// collidingSource hashes every key to the same value under every seed while
// keeping all keys distinct: indistinguishable hashes that never separate.
type collidingSource struct {
	n int
}

func (s *collidingSource) Len() int { return s.n }

func (s *collidingSource) HashAll(seed uint64, dst []uint64) error {
	for i := range dst {
		dst[i] = seed
	}
	return nil
}

func (s *collidingSource) EqualKeys(i, j int) bool { return false }

func uniqueKeys(rng *rand.Rand, n int) []uint64 {
	seen := make(map[uint64]struct{}, n)
	keys := make([]uint64, 0, n)
	for len(keys) < n {
		k := rng.Uint64()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// verifyTable checks the perfect-hash invariants: every key resolves to its
// own index through Lookup, and the slot array holds each key exactly once.
func verifyTable(t *testing.T, table *Table, src *uint64Source) {
	t.Helper()

	for i, k := range src.keys {
		h := hashUint64(k, table.Seed())
		idx, ok := table.Lookup(h)
		if !ok {
			t.Fatalf("key %d (%#x): Lookup returned not-found", i, k)
		}
		if int(idx) != i {
			t.Fatalf("key %d (%#x): Lookup returned index %d", i, k, idx)
		}
	}

	seen := make(map[int32]struct{}, len(src.keys))
	occupied := 0
	for s := uint32(0); s < table.NumSlots(); s++ {
		idx := table.EntryAt(s)
		if idx < 0 {
			continue
		}
		if _, dup := seen[idx]; dup {
			t.Fatalf("key index %d occupies two slots", idx)
		}
		seen[idx] = struct{}{}
		occupied++
	}
	if occupied != len(src.keys) {
		t.Fatalf("expected %d occupied slots, got %d", len(src.keys), occupied)
	}
}

func TestBuildSmall(t *testing.T) {
	rng := newTestRNG(t)
	for _, n := range []int{1, 2, 3, 7, 16, 100, 1000} {
		src := &uint64Source{keys: uniqueKeys(rng, n)}
		table, err := Build(context.Background(), src, DefaultConfig())
		if err != nil {
			t.Fatalf("n=%d: Build failed: %v", n, err)
		}
		verifyTable(t, table, src)
	}
}

func TestBuildEmpty(t *testing.T) {
	src := &uint64Source{}
	table, err := Build(context.Background(), src, DefaultConfig())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if table.NumSlots() != 0 {
		t.Errorf("expected 0 slots, got %d", table.NumSlots())
	}
	if _, ok := table.Lookup(0xdeadbeef); ok {
		t.Error("Lookup on empty table returned found")
	}
}

func TestBuildLarge(t *testing.T) {
	rng := newTestRNG(t)
	src := &uint64Source{keys: uniqueKeys(rng, 10000)}
	table, err := Build(context.Background(), src, DefaultConfig())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	verifyTable(t, table, src)

	if table.Retries() < 1 {
		t.Errorf("Retries() = %d, want >= 1", table.Retries())
	}
}

func TestBuildAbsentKeys(t *testing.T) {
	rng := newTestRNG(t)
	keys := uniqueKeys(rng, 2000)
	built := make(map[uint64]struct{}, 1000)
	for _, k := range keys[:1000] {
		built[k] = struct{}{}
	}

	src := &uint64Source{keys: keys[:1000]}
	table, err := Build(context.Background(), src, DefaultConfig())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Absent keys may still produce a candidate index (the table cannot
	// reject them alone), but the index must reference a real key that the
	// caller's equality check will then reject.
	for _, probe := range keys[1000:] {
		h := hashUint64(probe, table.Seed())
		idx, ok := table.Lookup(h)
		if !ok {
			continue
		}
		if idx < 0 || int(idx) >= len(src.keys) {
			t.Fatalf("Lookup returned out-of-range index %d", idx)
		}
		if src.keys[idx] == probe {
			t.Fatalf("probe %#x unexpectedly among built keys", probe)
		}
	}
}

func TestBuildDuplicateKeys(t *testing.T) {
	rng := newTestRNG(t)
	keys := uniqueKeys(rng, 100)
	keys = append(keys, keys[17]) // duplicate

	src := &uint64Source{keys: keys}
	_, err := Build(context.Background(), src, DefaultConfig())
	if !errors.Is(err, pherrors.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *DuplicateError, got %T", err)
	}
	if dup.First != 17 || dup.Second != 100 {
		t.Errorf("duplicate indices = (%d, %d), want (17, 100)", dup.First, dup.Second)
	}
}

func TestBuildDuplicatePairOnly(t *testing.T) {
	// The minimal duplicate case: two entries, one repeated key.
	src := &uint64Source{keys: []uint64{42, 42}}
	_, err := Build(context.Background(), src, DefaultConfig())
	if !errors.Is(err, pherrors.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestBuildExhaustion(t *testing.T) {
	// Hashes collide under every seed but keys are distinct, so every
	// attempt fails and no duplicate is diagnosed.
	cfg := DefaultConfig()
	cfg.MaxGlobalRetries = 3
	_, err := Build(context.Background(), &collidingSource{n: 8}, cfg)
	if !errors.Is(err, pherrors.ErrConstructionFailed) {
		t.Fatalf("expected ErrConstructionFailed, got %v", err)
	}

	var exh *ExhaustedError
	if !errors.As(err, &exh) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if exh.Retries != 3 {
		t.Errorf("Retries = %d, want 3", exh.Retries)
	}
	if exh.LargestBucket != 8 {
		t.Errorf("LargestBucket = %d, want 8", exh.LargestBucket)
	}
}

func TestBuildContextCancelled(t *testing.T) {
	rng := newTestRNG(t)
	src := &uint64Source{keys: uniqueKeys(rng, 100)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, src, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	src := &uint64Source{keys: uniqueKeys(rng, 500)}

	t1, err := Build(context.Background(), src, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	t2, err := Build(context.Background(), src, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if t1.Seed() != t2.Seed() || t1.NumSlots() != t2.NumSlots() {
		t.Fatal("same key set and config produced different geometry")
	}
	for s := uint32(0); s < t1.NumSlots(); s++ {
		if t1.EntryAt(s) != t2.EntryAt(s) {
			t.Fatalf("slot %d differs between identical builds", s)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero bucket load", func(c *Config) { c.BucketLoadFactor = 0 }},
		{"negative bucket load", func(c *Config) { c.BucketLoadFactor = -1 }},
		{"zero table load", func(c *Config) { c.TableLoadFactor = 0 }},
		{"table load above one", func(c *Config) { c.TableLoadFactor = 1.5 }},
		{"zero seed attempts", func(c *Config) { c.MaxSeedAttempts = 0 }},
		{"seed attempts at sentinel", func(c *Config) { c.MaxSeedAttempts = int(EmptySeed) + 1 }},
		{"zero retries", func(c *Config) { c.MaxGlobalRetries = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, pherrors.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestBuildTightTable(t *testing.T) {
	// Minimal table (load factor 1.0) still succeeds for small sets given
	// enough seed attempts and retries.
	rng := newTestRNG(t)
	cfg := DefaultConfig()
	cfg.TableLoadFactor = 1.0
	cfg.MaxSeedAttempts = int(EmptySeed)
	cfg.MaxGlobalRetries = 200

	src := &uint64Source{keys: uniqueKeys(rng, 64)}
	table, err := Build(context.Background(), src, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if table.NumSlots() != 64 {
		t.Errorf("NumSlots = %d, want 64 (minimal)", table.NumSlots())
	}
	verifyTable(t, table, src)
}

func TestDisplaceHashProperties(t *testing.T) {
	// Multipliers must be odd (bijective multiplication) and distinct
	// across seeds for a fixed global seed.
	seen := make(map[uint64]uint16)
	for d := 0; d < 1024; d++ {
		hp := DisplaceHash(uint16(d), testSeed1)
		if hp&1 == 0 {
			t.Fatalf("DisplaceHash(%d) = %#x is even", d, hp)
		}
		if prev, ok := seen[hp]; ok {
			t.Fatalf("DisplaceHash collision between seeds %d and %d", prev, d)
		}
		seen[hp] = uint16(d)
	}
}

func TestNextSeedAdvances(t *testing.T) {
	seed := uint64(testSeed2)
	seen := make(map[uint64]struct{})
	for i := 0; i < 1000; i++ {
		if _, ok := seen[seed]; ok {
			t.Fatalf("seed cycle after %d steps", i)
		}
		seen[seed] = struct{}{}
		seed = NextSeed(seed)
	}
}

func TestSortBucketsDescending(t *testing.T) {
	rng := newTestRNG(t)
	src := &uint64Source{keys: uniqueKeys(rng, 1000)}
	cfg := DefaultConfig()
	numBuckets := cfg.numBuckets(src.Len())
	numSlots, err := cfg.numSlots(src.Len())
	if err != nil {
		t.Fatal(err)
	}

	s := newSolver(src.Len(), numBuckets, numSlots, cfg)
	if err := src.HashAll(cfg.GlobalSeed, s.hashes); err != nil {
		t.Fatal(err)
	}
	maxSize := s.groupBuckets()
	s.sortBuckets(maxSize)

	total := uint32(0)
	prev := uint32(maxSize) + 1
	for _, b := range s.bucketOrder {
		size := s.bucketStart[b+1] - s.bucketStart[b]
		if size > prev {
			t.Fatalf("bucket order not descending: size %d after %d", size, prev)
		}
		prev = size
		total += size
	}
	if total != uint32(src.Len()) {
		t.Fatalf("bucket sizes sum to %d, want %d", total, src.Len())
	}
}
