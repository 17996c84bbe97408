package phmap

// Entry is an immutable key/value pair supplied to construction. Set
// variants use Entry[K, struct{}] internally.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// KV is a convenience constructor for Entry literals in slice form.
func KV[K, V any](key K, value V) Entry[K, V] {
	return Entry[K, V]{Key: key, Value: value}
}
