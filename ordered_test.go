package phmap

import (
	"errors"
	"strings"
	"testing"

	pherrors "github.com/tamirms/phmap/errors"
)

func TestOrderedMapBasic(t *testing.T) {
	om, err := NewOrderedMap(strings.Compare, []Entry[string, int]{
		{Key: "red", Value: 1},
		{Key: "green", Value: 2},
		{Key: "blue", Value: 3},
	})
	if err != nil {
		t.Fatalf("NewOrderedMap failed: %v", err)
	}

	if om.Len() != 3 {
		t.Errorf("Len() = %d, want 3", om.Len())
	}
	if v, ok := om.Get("green"); !ok || v != 2 {
		t.Errorf(`Get("green") = (%d, %t), want (2, true)`, v, ok)
	}
	if om.Contains("purple") {
		t.Error(`Contains("purple") = true`)
	}
}

func TestOrderedMapAscending(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomStrings(rng, "", 1000, 10)
	om, err := NewOrderedMap(strings.Compare, stringEntries(keys))
	if err != nil {
		t.Fatal(err)
	}

	prev := ""
	count := 0
	for k := range om.All() {
		if count > 0 && strings.Compare(prev, k) >= 0 {
			t.Fatalf("iteration not strictly ascending: %q then %q", prev, k)
		}
		prev = k
		count++
	}
	if count != len(keys) {
		t.Errorf("iteration yielded %d entries, want %d", count, len(keys))
	}
}

func TestOrderedMapLookupAll(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomStrings(rng, "in-", 2000, 10)
	probes := randomStrings(rng, "out-", 2000, 10)

	om, err := NewOrderedMap(strings.Compare, stringEntries(keys))
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range keys {
		if v, ok := om.Get(k); !ok || v != i {
			t.Fatalf("Get(%q) = (%d, %t), want (%d, true)", k, v, ok, i)
		}
	}
	for _, p := range probes {
		if om.Contains(p) {
			t.Fatalf("false positive for %q", p)
		}
	}
}

func TestOrderedMapDuplicate(t *testing.T) {
	_, err := NewOrderedMap(strings.Compare, []Entry[string, int]{
		{Key: "b", Value: 1},
		{Key: "a", Value: 2},
		{Key: "b", Value: 3},
	})
	if !errors.Is(err, pherrors.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	var dup *DuplicateKeyError[string]
	if !errors.As(err, &dup) || dup.Key != "b" {
		t.Fatalf("expected duplicate key %q, got %v", "b", err)
	}
}

func TestOrderedMapEmptyAndSingle(t *testing.T) {
	om, err := NewOrderedMap[string, int](strings.Compare, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !om.Empty() || om.Contains("x") {
		t.Error("empty ordered map misbehaved")
	}

	om, err = NewOrderedMap(strings.Compare, []Entry[string, int]{{Key: "k", Value: 7}})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := om.Get("k"); !ok || v != 7 {
		t.Errorf(`Get("k") = (%d, %t), want (7, true)`, v, ok)
	}
	if om.Contains("j") || om.Contains("l") {
		t.Error("neighboring probes reported present")
	}
}

func TestOrderedMapValuesOrder(t *testing.T) {
	om, err := NewOrderedMap(strings.Compare, []Entry[string, int]{
		{Key: "c", Value: 3},
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := 1
	for v := range om.Values() {
		if v != want {
			t.Fatalf("Values() yielded %d, want %d", v, want)
		}
		want++
	}

	wantKey := "a"
	for k := range om.Keys() {
		if k != wantKey {
			t.Fatalf("Keys() started with %q, want %q", k, wantKey)
		}
		break
	}
}

func TestOrderedSet(t *testing.T) {
	s, err := NewOrderedSet(strings.Compare, []string{"delta", "alpha", "charlie", "bravo"})
	if err != nil {
		t.Fatalf("NewOrderedSet failed: %v", err)
	}
	if s.Len() != 4 || s.Empty() {
		t.Errorf("Len() = %d, Empty() = %t", s.Len(), s.Empty())
	}
	if !s.Contains("charlie") || s.Contains("echo") {
		t.Error("membership checks failed")
	}

	var got []string
	for k := range s.All() {
		got = append(got, k)
	}
	want := []string{"alpha", "bravo", "charlie", "delta"}
	if len(got) != len(want) {
		t.Fatalf("iteration yielded %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := NewOrderedSet(strings.Compare, []string{"x", "x"}); !errors.Is(err, pherrors.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestOrderedMapIntKeys(t *testing.T) {
	cmp := func(a, b int) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	om, err := NewOrderedMap(cmp, []Entry[int, string]{
		{Key: 30, Value: "thirty"},
		{Key: 10, Value: "ten"},
		{Key: 20, Value: "twenty"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := om.Get(20); !ok || v != "twenty" {
		t.Errorf("Get(20) = (%q, %t)", v, ok)
	}
	if om.Contains(15) {
		t.Error("Contains(15) = true")
	}
}
