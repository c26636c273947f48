// expire.go: expiration engine
//
// Combines a lazy on-read check (an entry past its deadline is treated as
// absent the moment it's touched, regardless of whether a sweep has
// reached it yet) with a budgeted periodic sweep that walks table shards
// a fixed slice at a time, so a large cache never pays for a full-table
// scan in one tick.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

// expirer evaluates write-TTL and idle-TTL deadlines. All comparisons use
// monotonic nanoseconds from the cache's TimeSource; wall-clock time never
// enters this file.
type expirer[K comparable, V any] struct {
	idleNanos int64 // ExpireAfterAccess bound, 0 if unset
}

func newExpirer[K comparable, V any](idleNanos int64) *expirer[K, V] {
	return &expirer[K, V]{idleNanos: idleNanos}
}

// isExpired reports whether e should be treated as absent as of now.
func (x *expirer[K, V]) isExpired(e *internalEntry[K, V], now int64) bool {
	if e.expiredByWrite(now) {
		return true
	}
	return e.expiredByAccess(now, x.idleNanos)
}

// sweepBudget computes how many entries a single maintenance tick should
// inspect: a fraction of the table's capacity, floored so small caches
// still make sweep progress.
func sweepBudget(maximumSize int64) int {
	n := int(maximumSize) / defaultScanTicksPerSweep
	if n < 64 {
		n = 64
	}
	return n
}

// scanShard walks up to budget entries of one table shard looking for
// expired ones; the caller advances the shard index between ticks so the
// whole table is covered over several sweeps. The shard is never locked
// for longer than it takes to copy out candidate pointers, matching the
// table's own forEach discipline.
func scanShard[K comparable, V any](t *table[K, V], shardIdx int, now int64, x *expirer[K, V], budget int) (expired []*internalEntry[K, V], visited int) {
	s := t.shards[shardIdx]
	s.mu.RLock()
	capHint := budget
	if n := len(s.entries); n < capHint {
		capHint = n
	}
	candidates := make([]*internalEntry[K, V], 0, capHint)
	for _, e := range s.entries {
		candidates = append(candidates, e)
		if len(candidates) >= budget {
			break
		}
	}
	s.mu.RUnlock()

	for _, e := range candidates {
		visited++
		if x.isExpired(e, now) {
			expired = append(expired, e)
		}
	}
	return expired, visited
}
