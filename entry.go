// entry.go: the entry lifecycle and its public snapshot view
//
// Value and weight are immutable after construction: a Put of an existing
// key builds a brand-new internalEntry and swaps the table's pointer to
// it, never mutating a live entry's value in place. lastAccessNanos is the
// one genuinely mutable field, updated with atomic.Int64 on every read.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"sync/atomic"
	"time"
)

// noSlot marks an internalEntry that has not yet been admitted into any
// policy region, or one whose slot has been freed.
const noSlot uint32 = ^uint32(0)

// region identifies which of the three W-TinyLFU lists currently owns an
// entry's policy slot.
type region uint8

const (
	regionNone region = iota
	regionWindow
	regionProbationary
	regionProtected
)

// internalEntry is the cache-private representation of one key/value pair.
// Value and weight are set once at construction and never mutated; only
// lastAccessNanos, the refreshing flag and the policy back-reference
// (slot/reg) mutate after publication. Readers update lastAccessNanos
// atomically; slot/reg are changed only under the policy's mutex.
type internalEntry[K comparable, V any] struct {
	key    K
	value  V
	weight int64

	keyHash uint64

	createdAtNanos  int64
	expireAtNanos   int64 // 0 == no expire-after-write bound
	refreshAtNanos  int64 // 0 == no refresh-after-write bound
	lastAccessNanos atomic.Int64
	loadedAtNanos   int64

	// slot is the stable 32-bit index into the policy arena, replacing
	// intrusive pointers between list nodes and entries. reg records which
	// list currently owns that slot.
	slot uint32
	reg  atomic.Uint32

	// refreshing guards single-flight refresh-after-write reloads.
	refreshing atomic.Bool
}

func (e *internalEntry[K, V]) region() region {
	return region(e.reg.Load())
}

func (e *internalEntry[K, V]) setRegion(r region) {
	e.reg.Store(uint32(r))
}

func (e *internalEntry[K, V]) touch(now int64) {
	e.lastAccessNanos.Store(now)
}

// expiredByWrite reports whether the entry's write-TTL deadline has
// passed as of now (monotonic nanoseconds).
func (e *internalEntry[K, V]) expiredByWrite(now int64) bool {
	return e.expireAtNanos > 0 && now >= e.expireAtNanos
}

// expiredByAccess reports whether the entry's idle-TTL deadline has
// passed as of now, given the access-after-write bound idleNanos.
func (e *internalEntry[K, V]) expiredByAccess(now, idleNanos int64) bool {
	if idleNanos <= 0 {
		return false
	}
	return now-e.lastAccessNanos.Load() >= idleNanos
}

// needsRefresh reports whether the entry has crossed its
// refresh-after-write deadline and no reload is already in flight.
func (e *internalEntry[K, V]) needsRefresh(now int64) bool {
	return e.refreshAtNanos > 0 && now >= e.refreshAtNanos && !e.refreshing.Load()
}

// Entry is an immutable, point-in-time snapshot of one cache entry,
// returned by the cache's entry-view accessors.
type Entry[K comparable, V any] struct {
	Key        K
	Value      V
	Weight     int64
	CreatedAt  time.Time
	LastAccess time.Time
	ExpireAt   time.Time // zero Time if no write-TTL is configured
	LoadedAt   time.Time
}

// snapshot converts an internalEntry into its public, wall-clock view.
// wallOffset is (wall-clock-now - monotonic-now), captured once when the
// cache was constructed, used to translate the entry's monotonic timestamps into time.Time
// without ever comparing monotonic and wall-clock values directly.
func (e *internalEntry[K, V]) snapshot(wallOffset int64) Entry[K, V] {
	out := Entry[K, V]{
		Key:        e.key,
		Value:      e.value,
		Weight:     e.weight,
		CreatedAt:  time.Unix(0, e.createdAtNanos+wallOffset),
		LastAccess: time.Unix(0, e.lastAccessNanos.Load()+wallOffset),
	}
	if e.expireAtNanos > 0 {
		out.ExpireAt = time.Unix(0, e.expireAtNanos+wallOffset)
	}
	if e.loadedAtNanos > 0 {
		out.LoadedAt = time.Unix(0, e.loadedAtNanos+wallOffset)
	}
	return out
}
