// table.go: sharded concurrent entry table
//
// The table is a set of independently-locked shard maps keyed by a
// comparable K, chosen by the high bits of the key's spread hash. Each
// shard takes its own sync.RWMutex, so eviction or insertion in one shard
// never blocks a read in another: fine-grained locking without a single
// global lock over the whole table.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import "sync"

type tableShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*internalEntry[K, V]
}

// table is a sharded map from key to internalEntry. Shard selection uses
// the high bits of the key's spread hash, keeping it independent of the
// low bits that pick the loader's in-flight shard and the sketch's
// counter nibbles.
type table[K comparable, V any] struct {
	shards []*tableShard[K, V]
	mask   uint64
	hasher Hasher[K]
}

func newTable[K comparable, V any](shardCount, initialCapacity int, hasher Hasher[K]) *table[K, V] {
	shardCount = nextPowerOfTwo(shardCount)
	perShard := 0
	if initialCapacity > 0 {
		perShard = initialCapacity / shardCount
	}
	t := &table[K, V]{
		shards: make([]*tableShard[K, V], shardCount),
		mask:   uint64(shardCount - 1),
		hasher: hasher,
	}
	for i := range t.shards {
		t.shards[i] = &tableShard[K, V]{entries: make(map[K]*internalEntry[K, V], perShard)}
	}
	return t
}

func (t *table[K, V]) shardFor(keyHash uint64) *tableShard[K, V] {
	return t.shards[(keyHash>>32)&t.mask]
}

func (t *table[K, V]) get(key K, keyHash uint64) (*internalEntry[K, V], bool) {
	s := t.shardFor(keyHash)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	return e, ok
}

// swap installs newEntry for key and returns the previous entry, if any.
// The caller is responsible for telling the policy about the swap (evict
// the old entry's slot, admit the new one); the table itself only owns
// the key -> entry mapping.
func (t *table[K, V]) swap(key K, keyHash uint64, newEntry *internalEntry[K, V]) (*internalEntry[K, V], bool) {
	s := t.shardFor(keyHash)
	s.mu.Lock()
	old, existed := s.entries[key]
	s.entries[key] = newEntry
	s.mu.Unlock()
	return old, existed
}

func (t *table[K, V]) delete(key K, keyHash uint64) (*internalEntry[K, V], bool) {
	s := t.shardFor(keyHash)
	s.mu.Lock()
	old, existed := s.entries[key]
	if existed {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return old, existed
}

// deleteExact removes key only if the currently-stored entry is exactly
// want (by pointer identity), used to make expiration and explicit Remove
// safe against a concurrent Put that already replaced the entry.
func (t *table[K, V]) deleteExact(key K, keyHash uint64, want *internalEntry[K, V]) bool {
	s := t.shardFor(keyHash)
	s.mu.Lock()
	cur, ok := s.entries[key]
	removed := ok && cur == want
	if removed {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return removed
}

func (t *table[K, V]) len() int {
	n := 0
	for _, s := range t.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

func (t *table[K, V]) clear() {
	for _, s := range t.shards {
		s.mu.Lock()
		s.entries = make(map[K]*internalEntry[K, V])
		s.mu.Unlock()
	}
}

// forEach visits a stable snapshot of entries, shard by shard. visit must
// not call back into the table.
func (t *table[K, V]) forEach(visit func(*internalEntry[K, V])) {
	for _, s := range t.shards {
		s.mu.RLock()
		snapshot := make([]*internalEntry[K, V], 0, len(s.entries))
		for _, e := range s.entries {
			snapshot = append(snapshot, e)
		}
		s.mu.RUnlock()
		for _, e := range snapshot {
			visit(e)
		}
	}
}
