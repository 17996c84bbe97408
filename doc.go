// Package phmap builds immutable maps and sets over key sets that are fully
// known in advance, backed by a perfect hash function computed once at
// construction time. Lookups are O(1) worst case with no collision chains,
// rehashing, or resizing, and the built containers are safe for unlimited
// concurrent readers.
//
// # Basic Usage
//
// Building and querying an unordered map:
//
//	m, err := phmap.NewMap(ctx, phmap.StringHasher{}, []phmap.Entry[string, int]{
//	    {Key: "red", Value: 1},
//	    {Key: "green", Value: 2},
//	    {Key: "blue", Value: 3},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, ok := m.Get("green") // 2, true
//
// Building an ordered map when ascending iteration matters:
//
//	om, err := phmap.NewOrderedMap(strings.Compare, entries)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for k, v := range om.All() { ... } // ascending key order
//
// Persisting a table of byte-string keys and opening it read-only:
//
//	err := phmap.WriteTable(ctx, "colors.pht", entries)
//	t, err := phmap.Open("colors.pht")
//	defer t.Close()
//	payload, ok, err := t.Lookup([]byte("green"))
//
// # Construction errors
//
// Construction either returns a finished immutable container or fails; no
// partial object is ever produced. Duplicate keys fail with a
// DuplicateKeyError carrying the offending key. A pathological key set that
// defeats every global retry fails with a ConstructionError; callers can
// loosen the load factors or retry bounds (see Option) and rebuild, or fall
// back to the ordered variants, which only fail on duplicates.
//
// # Package Structure
//
//   - Public API: map.go, set.go (unordered), ordered.go (sorted fallback)
//   - Hashing capabilities: hasher.go (Hasher interface, xxh3/murmur3/scalar)
//   - Configuration: options.go (Option, With* functions)
//   - Persisted tables: header.go, table_writer.go, table.go
//   - Core algorithm: internal/displace (bucketing + displacement solver)
//   - Errors: errors/ (sentinels), errors.go (typed construction errors)
package phmap
