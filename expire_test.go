// expire_test.go: expiration engine tests
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0

package arion

import "testing"

func TestExpirer_ExpiredByWriteBoundary(t *testing.T) {
	x := newExpirer[string, string](0)
	e := &internalEntry[string, string]{createdAtNanos: 0, expireAtNanos: 100}
	e.lastAccessNanos.Store(0)

	if x.isExpired(e, 99) {
		t.Fatalf("entry should not be expired 1ns before its deadline")
	}
	// An entry at exactly its expire-after-write boundary is treated as
	// expired, not as still alive for one more instant.
	if !x.isExpired(e, 100) {
		t.Fatalf("entry should be expired exactly at its deadline")
	}
}

func TestExpirer_ExpiredByIdle(t *testing.T) {
	x := newExpirer[string, string](int64(50))
	e := &internalEntry[string, string]{createdAtNanos: 0}
	e.lastAccessNanos.Store(100)

	if x.isExpired(e, 120) {
		t.Fatalf("entry should not be idle-expired yet: now-last=20 < 50")
	}
	if !x.isExpired(e, 150) {
		t.Fatalf("entry should be idle-expired: now-last=50 >= 50")
	}
}

func TestExpirer_NoBoundsNeverExpires(t *testing.T) {
	x := newExpirer[string, string](0)
	e := &internalEntry[string, string]{}
	e.lastAccessNanos.Store(0)
	if x.isExpired(e, 1_000_000_000_000) {
		t.Fatalf("an entry with no TTL configured should never expire")
	}
}

func TestScanShard_FindsExpiredEntries(t *testing.T) {
	tbl, h := newTestTable()
	x := newExpirer[string, string](0)

	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		hash := h.Hash(key)
		e := &internalEntry[string, string]{key: key, keyHash: hash, expireAtNanos: 50}
		e.lastAccessNanos.Store(0)
		tbl.swap(key, hash, e)
	}

	var totalExpired, totalVisited int
	for i := range tbl.shards {
		expired, visited := scanShard(tbl, i, 100, x, 64)
		totalExpired += len(expired)
		totalVisited += visited
	}

	if totalVisited != 10 {
		t.Fatalf("expected to visit all 10 entries across shards, visited %d", totalVisited)
	}
	if totalExpired != 10 {
		t.Fatalf("expected all 10 entries to be past their expire-after-write deadline, got %d", totalExpired)
	}
}

func TestSweepBudget_HasAFloor(t *testing.T) {
	if got := sweepBudget(1); got < 64 {
		t.Fatalf("expected sweepBudget to floor at 64 for tiny caches, got %d", got)
	}
}
