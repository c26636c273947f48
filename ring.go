// ring.go: striped, lossy, lock-free access ring buffers
//
// Get/Put record an access event here instead of updating the policy and
// sketch inline, so the hot path never blocks on policy bookkeeping. Each
// stripe is a Vyukov-style bounded MPSC ring: a slot's sequence counter
// tells a producer whether the slot it wants is free without taking a
// lock, and the drain coordinator is the ring's single consumer.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"sync"
	"sync/atomic"
)

// accessKind classifies an access record.
type accessKind uint8

const (
	accessRead accessKind = iota
	accessWrite
	accessEvict
)

// accessRecord is the small value captured on the hot path and consumed by
// the drain. keyHash is the spread hash of the key (never the key itself,
// so the ring buffer stays a fixed-size array of plain values); entry
// carries the *internalEntry[K, V] pointer boxed into an interface{} so
// the drain can reapply policy state directly, without a second table
// lookup that a hash collision could resolve to the wrong live entry.
// Boxing a pointer into an interface does not itself allocate.
type accessRecord struct {
	keyHash   uint64
	kind      accessKind
	timestamp int64
	entry     interface{}
}

// ringSlot is one Vyukov MPSC ring-buffer cell. seq encodes the slot's
// readiness: a producer may write into the slot only when seq == its
// claimed write position; the (single) consumer may read it only when
// seq == write position + 1, and then publishes seq = write position +
// capacity to hand the slot back to producers.
type ringSlot struct {
	seq atomic.Uint64
	rec accessRecord
}

// stripe is one lock-free MPSC ring. Any number of producer goroutines may
// call tryPush concurrently; exactly one consumer (the drain coordinator)
// calls drain at a time.
type stripe struct {
	mask     uint64
	slots    []ringSlot
	writePos atomic.Uint64
	readPos  atomic.Uint64
	dropped  atomic.Uint64
}

func newStripe(capacity int) *stripe {
	capacity = nextPowerOfTwo(capacity)
	s := &stripe{
		mask:  uint64(capacity - 1),
		slots: make([]ringSlot, capacity),
	}
	for i := range s.slots {
		s.slots[i].seq.Store(uint64(i))
	}
	return s
}

// tryPush attempts to record an access event without blocking. It returns
// false (and drops the record) if the stripe is momentarily full. The
// ring is lossy: frequency estimation is eventually consistent and can
// tolerate dropped samples.
func (s *stripe) tryPush(rec accessRecord) bool {
	for {
		pos := s.writePos.Load()
		slot := &s.slots[pos&s.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			// Slot is free for this position; try to claim it.
			if s.writePos.CompareAndSwap(pos, pos+1) {
				slot.rec = rec
				slot.seq.Store(pos + 1)
				return true
			}
			// Someone else claimed it first; retry.
		case diff < 0:
			// Consumer hasn't caught up: stripe is full.
			s.dropped.Add(1)
			return false
		default:
			// Another producer is ahead of us; retry with the fresh position.
		}
	}
}

// drainInto pops up to len(out) records into out, returning the count
// consumed. Only the drain coordinator may call this (single-consumer
// discipline enforced by drain.go, not by the stripe itself).
func (s *stripe) drainInto(out []accessRecord) int {
	n := 0
	for n < len(out) {
		pos := s.readPos.Load()
		slot := &s.slots[pos&s.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos+1)
		if diff != 0 {
			break // nothing new published yet
		}
		out[n] = slot.rec
		s.readPos.Store(pos + 1)
		slot.seq.Store(pos + uint64(len(s.slots)))
		n++
	}
	return n
}

// approxLen estimates the number of unread records, used by drain.go to
// decide whether a stripe has crossed its soft trigger threshold.
func (s *stripe) approxLen() int {
	w := s.writePos.Load()
	r := s.readPos.Load()
	if w < r {
		return 0
	}
	return int(w - r)
}

// ringBuffers is the full striped set. Stripe count is a power of two: the
// cache passes Config.ConcurrencyLevel, rounded up, which defaults to
// defaultStripeCount (16). The count is not derived from GOMAXPROCS.
type ringBuffers struct {
	stripes []*stripe
	mask    uint64
}

func newRingBuffers(stripeCount, capacityPerStripe int) *ringBuffers {
	stripeCount = nextPowerOfTwo(stripeCount)
	rb := &ringBuffers{
		stripes: make([]*stripe, stripeCount),
		mask:    uint64(stripeCount - 1),
	}
	for i := range rb.stripes {
		rb.stripes[i] = newStripe(capacityPerStripe)
	}
	return rb
}

// record chooses a stripe by the caller's approximate thread affinity and
// pushes rec into it, dropping it silently on overflow.
func (rb *ringBuffers) record(rec accessRecord) {
	idx := stripeAffinity() & rb.mask
	rb.stripes[idx].tryPush(rec)
}

func (rb *ringBuffers) anyExceeds(softThreshold int) bool {
	for _, s := range rb.stripes {
		if s.approxLen() >= softThreshold {
			return true
		}
	}
	return false
}

// affinityToken is a heap cell whose identity is stable for as long as a
// single goroutine holds it; see stripeAffinity for how this approximates
// per-goroutine stickiness without a real goroutine-ID API.
type affinityToken struct {
	idx uint64
}

var affinityCounter atomic.Uint64

var affinityPool = sync.Pool{
	New: func() interface{} {
		return &affinityToken{idx: affinityCounter.Add(1)}
	},
}

// stripeAffinity approximates goroutine/thread affinity. Go exposes no
// stable goroutine-ID API, so this borrows sync.Pool's own per-P free
// lists: repeatedly Get-ing and Put-ing a pool-managed token tends to
// return the same token to the same P (and usually the same goroutine)
// across nearby calls, because sync.Pool serves Get from the calling P's
// local shard before falling back to stealing or allocating. This is an
// approximation, not a guarantee, which is acceptable here because both
// the ring buffers and the frequency sketch are already probabilistic,
// eventually-consistent structures.
func stripeAffinity() uint64 {
	tok := affinityPool.Get().(*affinityToken)
	idx := tok.idx
	affinityPool.Put(tok)
	return idx
}
