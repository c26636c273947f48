// policy.go: W-TinyLFU admission and eviction over a segmented LRU
//
// A small admission window absorbs bursts of one-off keys; entries that
// survive it graduate into a larger main space split into a probationary
// segment and a protected segment. Admission into the main space is
// arbitrated by comparing frequency estimates from the Count-Min sketch,
// so a newly-admitted candidate must out-score an existing main-space
// victim before it is allowed to evict it; on a tie, a recently created
// candidate wins or loses by a coin flip.
//
// Entries are addressed by a stable uint32 slot id into an arena instead
// of intrusive pointers: each of the three lists (window, probationary,
// protected) is a doubly-linked list over the same nodes []policyNode
// array, so list operations stay O(1) without Go-side cyclic references
// between entries and list nodes.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import (
	"sync"
	"sync/atomic"
)

// EvictReason classifies why an entry was reported through OnEvict: SIZE
// or WEIGHT when the admission policy expelled it, REPLACED when a Put or
// refresh replaced its value. EXPLICIT and EXPIRED are defined but not
// emitted; explicit removal and expiration are reported through OnRemove
// and OnExpire instead.
type EvictReason int

const (
	EvictReasonSize EvictReason = iota
	EvictReasonWeight
	EvictReasonExplicit
	EvictReasonReplaced
	EvictReasonExpired
)

func (r EvictReason) String() string {
	switch r {
	case EvictReasonSize:
		return "SIZE"
	case EvictReasonWeight:
		return "WEIGHT"
	case EvictReasonExplicit:
		return "EXPLICIT"
	case EvictReasonReplaced:
		return "REPLACED"
	case EvictReasonExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// policyNode is one doubly-linked-list cell in the shared arena.
type policyNode struct {
	prev, next uint32
}

// policyList is a doubly-linked list of slot ids over the shared arena.
// It tracks both item count and total weight units so the same code path
// serves both MaximumSize (unit = 1) and MaximumWeight (unit = entry
// weight) bounding.
type policyList struct {
	head, tail uint32
	length     int
	units      int64
}

func newPolicyList() policyList {
	return policyList{head: noSlot, tail: noSlot}
}

func (l *policyList) pushFront(nodes []policyNode, slot uint32, unit int64) {
	nodes[slot].prev = noSlot
	nodes[slot].next = l.head
	if l.head != noSlot {
		nodes[l.head].prev = slot
	}
	l.head = slot
	if l.tail == noSlot {
		l.tail = slot
	}
	l.length++
	l.units += unit
}

func (l *policyList) remove(nodes []policyNode, slot uint32, unit int64) {
	n := nodes[slot]
	if n.prev != noSlot {
		nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != noSlot {
		nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	nodes[slot] = policyNode{prev: noSlot, next: noSlot}
	l.length--
	l.units -= unit
}

func (l *policyList) moveToFront(nodes []policyNode, slot uint32, unit int64) {
	if l.head == slot {
		return
	}
	l.remove(nodes, slot, unit)
	l.pushFront(nodes, slot, unit)
}

// evictedItem describes one entry the policy expelled during an
// admission rebalance, for the caller (cache.go) to remove from the table
// and report to listeners/stats.
type evictedItem[K comparable, V any] struct {
	entry  *internalEntry[K, V]
	reason EvictReason
}

// policy owns the three W-TinyLFU regions and the frequency sketch used to
// arbitrate admission. mu serializes every structural mutation: the drain
// coordinator's access-triggered promotions and the Put/Remove/Clear
// paths all contend on it, never on table or ring locks.
type policy[K comparable, V any] struct {
	mu sync.Mutex

	nodes     []policyNode
	slotOf    []*internalEntry[K, V]
	freeSlots []uint32

	window, probationary, protected policyList

	windowCap, mainCap, protectedCap int64

	sketch *frequencySketch
	rng    atomic.Uint64

	weighted bool // true when bounded by MaximumWeight rather than count

	// tieBreakAgeNanos bounds how recently a candidate must have been
	// created for a frequency tie against the incumbent victim to be
	// broken by a coin flip rather than automatically rejected; a
	// candidate just evicted from the admission window is always within
	// it in practice, since the window itself holds only recently-inserted
	// entries.
	tieBreakAgeNanos int64
}

func newPolicy[K comparable, V any](totalCapacityUnits int64, windowRatio, protectedRatio float64, weighted bool, seed uint64) *policy[K, V] {
	windowCap := int64(float64(totalCapacityUnits) * windowRatio)
	if windowCap < 1 {
		windowCap = 1
	}
	mainCap := totalCapacityUnits - windowCap
	if mainCap < 1 {
		mainCap = 1
	}
	protectedCap := int64(float64(mainCap) * protectedRatio)

	arenaSize := totalCapacityUnits + windowCap + 16 // headroom for weight-mode overshoot between drains
	if arenaSize < 64 {
		arenaSize = 64
	}

	p := &policy[K, V]{
		nodes:            make([]policyNode, arenaSize),
		slotOf:           make([]*internalEntry[K, V], arenaSize),
		window:           newPolicyList(),
		probationary:     newPolicyList(),
		protected:        newPolicyList(),
		windowCap:        windowCap,
		mainCap:          mainCap,
		protectedCap:     protectedCap,
		sketch:           newFrequencySketch(int(totalCapacityUnits)),
		weighted:         weighted,
		tieBreakAgeNanos: int64(1e9), // one second
	}
	p.rng.Store(seed | 1)
	for i := range p.nodes {
		p.nodes[i] = policyNode{prev: noSlot, next: noSlot}
		p.freeSlots = append(p.freeSlots, uint32(len(p.nodes)-1-i))
	}
	return p
}

func (p *policy[K, V]) unit(e *internalEntry[K, V]) int64 {
	if p.weighted {
		return e.weight
	}
	return 1
}

func (p *policy[K, V]) evictReason() EvictReason {
	if p.weighted {
		return EvictReasonWeight
	}
	return EvictReasonSize
}

// fastRand is a xorshift64 generator used for the admission tie-break coin
// flip; it needs speed and statelessness across calls, not cryptographic
// quality.
func (p *policy[K, V]) fastRand() uint64 {
	for {
		old := p.rng.Load()
		x := old
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		if p.rng.CompareAndSwap(old, x) {
			return x
		}
	}
}

// admit inserts a brand-new entry at the head of the admission window and
// rebalances, returning whatever the rebalance evicted.
func (p *policy[K, V]) admit(e *internalEntry[K, V], now int64) []evictedItem[K, V] {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.allocSlot()
	if !ok {
		// Arena momentarily exhausted (can happen transiently under a
		// weight-mode burst); evict the incoming entry rather than grow
		// unboundedly.
		return []evictedItem[K, V]{{entry: e, reason: p.evictReason()}}
	}
	e.slot = slot
	p.slotOf[slot] = e
	e.setRegion(regionWindow)
	p.window.pushFront(p.nodes, slot, p.unit(e))

	var evicted []evictedItem[K, V]
	for p.window.units > p.windowCap {
		candSlot := p.window.tail
		cand := p.slotOf[candSlot]
		p.window.remove(p.nodes, candSlot, p.unit(cand))
		evicted = append(evicted, p.tryPromote(cand, now)...)
	}
	evicted = append(evicted, p.rebalanceMain()...)
	return evicted
}

// tryPromote decides whether a window-evicted candidate is admitted into
// probationary, contesting a main-space victim by frequency if the main
// space is already full.
func (p *policy[K, V]) tryPromote(cand *internalEntry[K, V], now int64) []evictedItem[K, V] {
	mainUnits := p.probationary.units + p.protected.units
	if mainUnits+p.unit(cand) <= p.mainCap {
		cand.setRegion(regionProbationary)
		p.probationary.pushFront(p.nodes, cand.slot, p.unit(cand))
		return nil
	}

	victimSlot := p.probationary.tail
	if victimSlot == noSlot {
		victimSlot = p.protected.tail
	}
	if victimSlot == noSlot {
		// Main space has no capacity at all: candidate cannot be admitted.
		cand.setRegion(regionNone)
		p.freeSlot(cand.slot)
		return []evictedItem[K, V]{{entry: cand, reason: p.evictReason()}}
	}
	victim := p.slotOf[victimSlot]

	candFreq := p.sketch.estimate(cand.keyHash)
	victimFreq := p.sketch.estimate(victim.keyHash)

	admitCandidate := candFreq > victimFreq
	if !admitCandidate && candFreq == victimFreq {
		if now-cand.createdAtNanos < p.tieBreakAgeNanos {
			admitCandidate = p.fastRand()&1 == 0
		}
	}

	if admitCandidate {
		p.removeFromMain(victim)
		p.freeSlot(victim.slot)
		cand.setRegion(regionProbationary)
		p.probationary.pushFront(p.nodes, cand.slot, p.unit(cand))
		return []evictedItem[K, V]{{entry: victim, reason: p.evictReason()}}
	}

	cand.setRegion(regionNone)
	p.freeSlot(cand.slot)
	return []evictedItem[K, V]{{entry: cand, reason: p.evictReason()}}
}

// rebalanceMain evicts from the tail of probationary (falling back to
// protected) until the combined main space fits mainCap. In count mode
// (unit==1) this is a no-op after tryPromote already balanced 1-for-1; in
// weight mode a single heavy admission can require evicting more than one
// victim, or the reverse headroom can remain after a light eviction.
func (p *policy[K, V]) rebalanceMain() []evictedItem[K, V] {
	var evicted []evictedItem[K, V]
	for p.probationary.units+p.protected.units > p.mainCap {
		victimSlot := p.probationary.tail
		if victimSlot == noSlot {
			victimSlot = p.protected.tail
		}
		if victimSlot == noSlot {
			break
		}
		victim := p.slotOf[victimSlot]
		p.removeFromMain(victim)
		p.freeSlot(victim.slot)
		evicted = append(evicted, evictedItem[K, V]{entry: victim, reason: p.evictReason()})
	}
	return evicted
}

func (p *policy[K, V]) removeFromMain(e *internalEntry[K, V]) {
	switch e.region() {
	case regionProbationary:
		p.probationary.remove(p.nodes, e.slot, p.unit(e))
	case regionProtected:
		p.protected.remove(p.nodes, e.slot, p.unit(e))
	}
	e.setRegion(regionNone)
}

// recordHit applies the access-path promotion/demotion rules: a window hit
// moves to the front of the window list, a probationary hit graduates to
// protected, and a protected hit just moves to the front of its own list.
// It never evicts; only admission can evict.
func (p *policy[K, V]) recordHit(e *internalEntry[K, V]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.owns(e) {
		return // already removed (race with a concurrent Remove/expire/Clear)
	}

	switch e.region() {
	case regionWindow:
		p.window.moveToFront(p.nodes, e.slot, p.unit(e))
	case regionProbationary:
		p.probationary.remove(p.nodes, e.slot, p.unit(e))
		p.protected.pushFront(p.nodes, e.slot, p.unit(e))
		e.setRegion(regionProtected)
		for p.protected.units > p.protectedCap {
			demSlot := p.protected.tail
			if demSlot == noSlot {
				break
			}
			dem := p.slotOf[demSlot]
			p.protected.remove(p.nodes, demSlot, p.unit(dem))
			p.probationary.pushFront(p.nodes, demSlot, p.unit(dem))
			dem.setRegion(regionProbationary)
		}
	case regionProtected:
		p.protected.moveToFront(p.nodes, e.slot, p.unit(e))
	}
}

// remove takes e out of whichever region holds it and frees its slot; used
// by explicit Remove/Clear and by the expiration engine.
func (p *policy[K, V]) remove(e *internalEntry[K, V]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(e)
}

// owns reports whether e still holds a live slot in the arena. Buffered
// access records can outlive their entry: by the time the drain applies
// one, the entry may have been evicted or the cache cleared, and its old
// slot id handed to a different entry. Operating on such a stale id would
// splice the wrong entry's list links, so every policy mutation checks
// ownership first.
func (p *policy[K, V]) owns(e *internalEntry[K, V]) bool {
	return e.region() != regionNone && e.slot != noSlot &&
		e.slot < uint32(len(p.slotOf)) && p.slotOf[e.slot] == e
}

func (p *policy[K, V]) removeLocked(e *internalEntry[K, V]) {
	if !p.owns(e) {
		return
	}
	switch e.region() {
	case regionWindow:
		p.window.remove(p.nodes, e.slot, p.unit(e))
	case regionProbationary:
		p.probationary.remove(p.nodes, e.slot, p.unit(e))
	case regionProtected:
		p.protected.remove(p.nodes, e.slot, p.unit(e))
	default:
		return
	}
	e.setRegion(regionNone)
	p.freeSlot(e.slot)
}

func (p *policy[K, V]) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.nodes {
		p.nodes[i] = policyNode{prev: noSlot, next: noSlot}
		if e := p.slotOf[i]; e != nil {
			e.setRegion(regionNone)
		}
		p.slotOf[i] = nil
	}
	p.freeSlots = p.freeSlots[:0]
	for i := len(p.nodes) - 1; i >= 0; i-- {
		p.freeSlots = append(p.freeSlots, uint32(i))
	}
	p.window = newPolicyList()
	p.probationary = newPolicyList()
	p.protected = newPolicyList()
}

func (p *policy[K, V]) allocSlot() (uint32, bool) {
	n := len(p.freeSlots)
	if n == 0 {
		return 0, false
	}
	slot := p.freeSlots[n-1]
	p.freeSlots = p.freeSlots[:n-1]
	return slot, true
}

func (p *policy[K, V]) freeSlot(slot uint32) {
	p.slotOf[slot] = nil
	p.freeSlots = append(p.freeSlots, slot)
}
