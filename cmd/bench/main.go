// Bench measures phmap construction time and query throughput for the
// in-memory map and the file-backed table.
//
// Usage:
//
//	go run ./cmd/bench -keys 1000000 -workers 4 -file /tmp/bench.pht
//
// Flags:
//
//	-keys     Number of keys to build (default: 1,000,000)
//	-keylen   Key length in bytes (default: 16)
//	-workers  Hashing workers per construction attempt (default: 1)
//	-probes   Number of absent-key probes (default: same as -keys)
//	-file     Table file path; empty to skip the file benchmark
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"time"

	"github.com/tamirms/phmap"
)

func main() {
	var (
		numKeys = flag.Int("keys", 1_000_000, "number of keys to build")
		keyLen  = flag.Int("keylen", 16, "key length in bytes")
		workers = flag.Int("workers", 1, "hashing workers")
		probes  = flag.Int("probes", 0, "absent-key probes (default: same as -keys)")
		file    = flag.String("file", "", "table file path (empty: skip file benchmark)")
	)
	flag.Parse()

	if *probes == 0 {
		*probes = *numKeys
	}
	if *keyLen < 8 {
		*keyLen = 8 // randomKey needs 8 bytes for the uniqueness counter
	}

	rng := mrand.New(mrand.NewPCG(0x8a5cd789635d2dff, 0x121fd2155c472f96))
	entries := make([]phmap.Entry[[]byte, uint64], *numKeys)
	for i := range entries {
		entries[i] = phmap.Entry[[]byte, uint64]{Key: randomKey(rng, *keyLen, uint64(i)), Value: uint64(i)}
	}
	absent := make([][]byte, *probes)
	for i := range absent {
		// Distinct length guarantees disjointness from the built set.
		absent[i] = randomKey(rng, *keyLen+1, uint64(i))
	}

	ctx := context.Background()

	start := time.Now()
	m, err := phmap.NewMap(ctx, phmap.BytesHasher{}, entries, phmap.WithWorkers(*workers))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build map: %v\n", err)
		os.Exit(1)
	}
	buildTime := time.Since(start)
	stats := m.Stats()
	fmt.Printf("map: built %d keys in %v (%.0f keys/s)\n",
		stats.NumKeys, buildTime, float64(stats.NumKeys)/buildTime.Seconds())
	fmt.Printf("map: buckets=%d tableSize=%d load=%.3f retries=%d maxSeed=%d\n",
		stats.NumBuckets, stats.TableSize, stats.LoadFactor, stats.Retries, stats.MaxSeed)

	measureQueries("map present", entries, func(key []byte) bool {
		_, ok := m.Get(key)
		return ok
	}, true)
	measureProbes("map absent", absent, func(key []byte) bool {
		_, ok := m.Get(key)
		return ok
	})

	if *file == "" {
		return
	}

	start = time.Now()
	if err := phmap.WriteTable(ctx, *file, entries, phmap.WithWorkers(*workers)); err != nil {
		fmt.Fprintf(os.Stderr, "write table: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("table: written in %v\n", time.Since(start))

	t, err := phmap.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open table: %v\n", err)
		os.Exit(1)
	}
	defer t.Close()
	if err := t.Verify(); err != nil {
		fmt.Fprintf(os.Stderr, "verify table: %v\n", err)
		os.Exit(1)
	}
	ts := t.Stats()
	fmt.Printf("table: fileSize=%d bitsPerKey=%.1f\n", ts.FileSize, ts.BitsPerKey)

	measureQueries("table present", entries, func(key []byte) bool {
		_, ok, err := t.Lookup(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lookup: %v\n", err)
			os.Exit(1)
		}
		return ok
	}, true)
	measureProbes("table absent", absent, func(key []byte) bool {
		_, ok, err := t.Lookup(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lookup: %v\n", err)
			os.Exit(1)
		}
		return ok
	})
}

// randomKey builds a key whose first 8 bytes encode n, guaranteeing
// uniqueness within one generation pass; the remainder is random filler.
func randomKey(rng *mrand.Rand, size int, n uint64) []byte {
	if size < 8 {
		size = 8
	}
	key := make([]byte, size)
	binary.LittleEndian.PutUint64(key, n)
	for i := 8; i < size; i++ {
		key[i] = byte(rng.UintN(256))
	}
	return key
}

func measureQueries(name string, entries []phmap.Entry[[]byte, uint64], lookup func([]byte) bool, want bool) {
	start := time.Now()
	misses := 0
	for i := range entries {
		if lookup(entries[i].Key) != want {
			misses++
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("%s: %d queries in %v (%.0f q/s, %d unexpected)\n",
		name, len(entries), elapsed, float64(len(entries))/elapsed.Seconds(), misses)
}

func measureProbes(name string, keys [][]byte, lookup func([]byte) bool) {
	start := time.Now()
	hits := 0
	for _, key := range keys {
		if lookup(key) {
			hits++
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("%s: %d probes in %v (%.0f q/s, %d unexpected hits)\n",
		name, len(keys), elapsed, float64(len(keys))/elapsed.Seconds(), hits)
}
