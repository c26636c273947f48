// table_test.go: sharded entry table tests
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

import "testing"

func newTestTable() (*table[string, string], Hasher[string]) {
	h := newMaphashHasher[string]()
	return newTable[string, string](4, 0, h), h
}

func TestTable_SwapAndGet(t *testing.T) {
	tbl, h := newTestTable()
	hash := h.Hash("k1")
	e := &internalEntry[string, string]{key: "k1", value: "v1", keyHash: hash}

	old, existed := tbl.swap("k1", hash, e)
	if existed {
		t.Fatalf("expected no previous entry, got %v", old)
	}

	got, ok := tbl.get("k1", hash)
	if !ok || got.value != "v1" {
		t.Fatalf("expected to find v1, got %v ok=%v", got, ok)
	}

	e2 := &internalEntry[string, string]{key: "k1", value: "v2", keyHash: hash}
	old, existed = tbl.swap("k1", hash, e2)
	if !existed || old.value != "v1" {
		t.Fatalf("expected swap to report the prior v1 entry")
	}
	got, _ = tbl.get("k1", hash)
	if got.value != "v2" {
		t.Fatalf("expected updated value v2, got %v", got.value)
	}
}

func TestTable_DeleteExactRejectsStaleEntry(t *testing.T) {
	tbl, h := newTestTable()
	hash := h.Hash("k1")
	e1 := &internalEntry[string, string]{key: "k1", value: "v1", keyHash: hash}
	tbl.swap("k1", hash, e1)

	e2 := &internalEntry[string, string]{key: "k1", value: "v2", keyHash: hash}
	tbl.swap("k1", hash, e2)

	// A concurrent Remove racing against the swap above must not delete the
	// entry that replaced the one it observed.
	if tbl.deleteExact("k1", hash, e1) {
		t.Fatalf("deleteExact should reject a stale entry pointer")
	}
	if !tbl.deleteExact("k1", hash, e2) {
		t.Fatalf("deleteExact should succeed against the current entry")
	}
	if _, ok := tbl.get("k1", hash); ok {
		t.Fatalf("expected k1 to be gone after deleteExact")
	}
}

func TestTable_LenAndClear(t *testing.T) {
	tbl, h := newTestTable()
	for i := 0; i < 50; i++ {
		key := string(rune('a' + i%26))
		hash := h.Hash(key)
		tbl.swap(key, hash, &internalEntry[string, string]{key: key, value: key, keyHash: hash})
	}
	if tbl.len() == 0 {
		t.Fatalf("expected a non-empty table")
	}
	tbl.clear()
	if tbl.len() != 0 {
		t.Fatalf("expected an empty table after clear, got %d", tbl.len())
	}
}

func TestTable_ForEachVisitsEverySurvivor(t *testing.T) {
	tbl, h := newTestTable()
	want := map[string]bool{}
	for i := 0; i < 20; i++ {
		key := string(rune('A' + i))
		hash := h.Hash(key)
		tbl.swap(key, hash, &internalEntry[string, string]{key: key, value: key, keyHash: hash})
		want[key] = true
	}

	seen := map[string]bool{}
	tbl.forEach(func(e *internalEntry[string, string]) {
		seen[e.key] = true
	})

	if len(seen) != len(want) {
		t.Fatalf("expected to visit %d entries, visited %d", len(want), len(seen))
	}
	for k := range want {
		if !seen[k] {
			t.Fatalf("forEach missed key %q", k)
		}
	}
}
