// Package arion provides a high-performance, thread-safe, in-process
// key/value cache using the W-TinyLFU (Window Tiny Least Frequently Used)
// admission and eviction policy.
//
// # Overview
//
// Arion is designed to be embedded as a dependency:
//
//   - Type safety: a generic Cache[K comparable, V any] API.
//   - Bounded: by entry count (MaximumSize) or by weight (MaximumWeight + Weigher).
//   - Near-optimal hit ratio: W-TinyLFU combines a small LRU admission
//     window with a frequency-segmented main space (protected/probationary).
//   - Optional TTL: ExpireAfterWrite and ExpireAfterAccess, enforced lazily
//     on read and eagerly by a bounded background scan.
//   - Optional refresh-after-write with single-flight reload.
//   - GetOrLoad: cache-stampede prevention via single-flight loading.
//   - Event listeners: put, remove, evict (with reason), expire, load,
//     load-error, clear.
//   - Statistics: hits, misses, evictions, loads, load failures, total load time.
//
// # Quick Start
//
//	cache, err := arion.New(arion.Config[string, User]{
//	    MaximumSize:      10_000,
//	    ExpireAfterWrite: time.Hour,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Shutdown()
//
//	cache.Put("user:123", User{ID: 123, Name: "Alice"})
//	if user, found := cache.GetIfPresent("user:123"); found {
//	    fmt.Printf("User: %s\n", user.Name)
//	}
//
// # Cache Stampede Prevention
//
// GetOrLoad coalesces concurrent loads for the same key into a single
// loader invocation:
//
//	user, err := cache.GetOrLoad(ctx, "user:123", func(ctx context.Context, key string) (User, error) {
//	    return fetchUserFromDB(ctx, key) // runs once even under concurrent callers
//	})
//
// # W-TinyLFU Algorithm
//
// W-TinyLFU combines:
//
//   - Admission window: a small LRU holding recently-inserted entries
//     (~1% of capacity by default).
//   - Main space: a segmented LRU split into protected (entries with
//     demonstrated re-use, ~80% of main) and probationary (~20% of main).
//   - Admission policy: a 4-bit Count-Min frequency sketch with a
//     doorkeeper decides whether a window candidate is worth admitting
//     over the current probationary victim.
//
// # Concurrency Model
//
// All Cache[K, V] methods are safe for concurrent use by any number of
// goroutines. The entry table is sharded and guarded by per-shard locks.
// Reads never touch the admission/eviction policy lists: they append an
// access record to a ring buffer, and the write-ahead drain (one drainer at
// a time) applies those records to the lists and the frequency sketch.
// Put, Remove, Clear and expiration update the policy lists directly,
// under the policy's own mutex. No listener or loader callback is ever
// invoked while a cache-internal lock is held.
//
// # Profiles
//
// A Profile bundles WindowRatio, ProtectedRatio, and, depending on the
// profile, ConcurrencyLevel, expiration and refresh durations, and whether
// statistics are recorded by default. The frequency sketch's width is not
// a profile setting; it always follows the cache's capacity. Profiles
// exist for common workload shapes:
// ProfileReadHeavy, ProfileWriteHeavy, ProfileSession, ProfileAPI,
// ProfileCompute, ProfileMemoryEfficient, ProfileHighPerformance, and
// ProfileDefault. Explicit Config fields always override a profile's
// defaults.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion
