// stats.go: the statistics plane
//
// Hits, misses, evictions, expirations, and load outcomes are tracked as
// atomic counters striped across a fixed number of shards rather than one
// shared counter per metric, so a high core count doesn't turn every
// operation into a cache-line fight over a single atomic. Snapshot sums
// the shards lazily, only when a caller asks for current Stats.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"runtime"
	"sync/atomic"
)

// Stats is an immutable snapshot of cache-wide counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Expirations   uint64
	Loads         uint64
	LoadFailures  uint64
	TotalLoadTime int64 // nanoseconds, summed over GetOrLoad loader runs; background refresh reloads add to Loads but 0 here
}

// HitRatio returns Hits / (Hits + Misses), or 0 if there have been no gets.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// statsShard holds one stripe's worth of counters, padded to its own cache
// line so independent goroutines incrementing different shards don't
// false-share.
type statsShard struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	evictions     atomic.Uint64
	expirations   atomic.Uint64
	loads         atomic.Uint64
	loadFailures  atomic.Uint64
	totalLoadTime atomic.Int64
	_             [8]byte // pad towards a 64-byte line
}

// statsPlane is the cache-internal sharded counter set. When enabled is
// false (Config.RecordStats unset) every record call returns without
// touching a counter, so Stats() reports zeros.
type statsPlane struct {
	enabled bool
	shards  []statsShard
	mask    uint64
}

func newStatsPlane(enabled bool) *statsPlane {
	n := nextPowerOfTwo(runtime.GOMAXPROCS(0))
	if n < 1 {
		n = 1
	}
	return &statsPlane{
		enabled: enabled,
		shards:  make([]statsShard, n),
		mask:    uint64(n - 1),
	}
}

// shardFor picks a shard using the low bits of a fast-changing value; the
// goroutine-affinity approximation from ring.go is reused here so hot
// goroutines tend to stick to one shard.
func (s *statsPlane) shardFor(affinity uint64) *statsShard {
	return &s.shards[affinity&s.mask]
}

func (s *statsPlane) recordHit(affinity uint64) {
	if !s.enabled {
		return
	}
	s.shardFor(affinity).hits.Add(1)
}

func (s *statsPlane) recordMiss(affinity uint64) {
	if !s.enabled {
		return
	}
	s.shardFor(affinity).misses.Add(1)
}

func (s *statsPlane) recordEviction(affinity uint64) {
	if !s.enabled {
		return
	}
	s.shardFor(affinity).evictions.Add(1)
}

func (s *statsPlane) recordExpiration(affinity uint64) {
	if !s.enabled {
		return
	}
	s.shardFor(affinity).expirations.Add(1)
}

func (s *statsPlane) recordLoad(affinity uint64, durationNs int64, success bool) {
	if !s.enabled {
		return
	}
	shard := s.shardFor(affinity)
	shard.loads.Add(1)
	if !success {
		shard.loadFailures.Add(1)
	}
	shard.totalLoadTime.Add(durationNs)
}

func (s *statsPlane) snapshot() Stats {
	var out Stats
	for i := range s.shards {
		sh := &s.shards[i]
		out.Hits += sh.hits.Load()
		out.Misses += sh.misses.Load()
		out.Evictions += sh.evictions.Load()
		out.Expirations += sh.expirations.Load()
		out.Loads += sh.loads.Load()
		out.LoadFailures += sh.loadFailures.Load()
		out.TotalLoadTime += sh.totalLoadTime.Load()
	}
	return out
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1), used
// throughout the cache to size shard and stripe counts so index masking
// can replace a modulo.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}
