// hash.go: key hashing and the spreading finalizer
//
// Hashes an arbitrary comparable key to a 64-bit digest via hash/maphash,
// then runs it through a MurmurHash3 fmix64 finalizer so the bits the
// sketch, table shards and loader shards sample from are well mixed.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import "hash/maphash"

// Hasher computes a 64-bit digest of a key. Implementations must be
// deterministic for the lifetime of a single Cache instance (the digest is
// stored alongside the Entry and recomputed on every lookup, so the two
// must agree).
type Hasher[K comparable] interface {
	Hash(key K) uint64
}

// maphashHasher is the default Hasher, backed by Go's built-in hash-map
// hash (hash/maphash.Comparable), seeded once per cache instance so that
// two cache instances never share a seed (avoids cross-instance hash-flood
// predictability).
type maphashHasher[K comparable] struct {
	seed maphash.Seed
}

func newMaphashHasher[K comparable]() *maphashHasher[K] {
	return &maphashHasher[K]{seed: maphash.MakeSeed()}
}

func (h *maphashHasher[K]) Hash(key K) uint64 {
	return spread(maphash.Comparable(h.seed, key))
}

// spread runs a 64-bit digest through the MurmurHash3 fmix64 finalizer so
// that low bits carry as much entropy as high bits. This matters because
// the frequency sketch, the table shard selector, and the loader shard
// selector each independently extract different bit ranges from the same
// digest; a finalizer keeps those selections close to independent even
// when the upstream hash has structure in its low bits.
func spread(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
