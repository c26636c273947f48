// sketch.go: 4-bit Count-Min frequency sketch with doorkeeper and aging
//
// Counters are packed four bits at a time into a []uint64 table, addressed
// by four independent multiplicative hash derivations of a pre-spread
// digest. Increment saturates each counter at 15 via a CAS loop; a periodic
// aging pass halves every counter so old access patterns lose influence
// over time. A doorkeeper bitset gives every key one free "first sighting"
// before it starts consuming counter budget, which keeps one-off keys from
// polluting the estimate for keys that are actually hot.
//
// Copyright (c) 2026 Arion Authors
// SPDX-License-Identifier: MPL-2.0
package arion

import "sync/atomic"

// frequencySketch estimates access frequency for arbitrary key hashes with
// bounded memory and a fast, allocation-free increment/estimate path.
type frequencySketch struct {
	table     []uint64
	tableMask uint64

	seed1, seed2, seed3, seed4 uint64

	// doorkeeper is a bitset of as many 64-bit words as the counter table;
	// a key's bit is chosen from the low bits of its hash (word =
	// hash & tableMask, bit = hash & 63). The first increment for a key
	// only sets its doorkeeper bit, the counters themselves are untouched
	// until the second increment.
	doorkeeper []uint64

	sampleSize     atomic.Int64
	resetThreshold int64
}

func newFrequencySketch(maxSize int) *frequencySketch {
	tableSize := nextPowerOfTwo(maxSize / 4)
	if tableSize < 64 {
		tableSize = 64
	}
	return &frequencySketch{
		table:          make([]uint64, tableSize),
		tableMask:      uint64(tableSize - 1),
		doorkeeper:     make([]uint64, tableSize),
		seed1:          0x9e3779b97f4a7c15,
		seed2:          0xbf58476d1ce4e5b9,
		seed3:          0x94d049bb133111eb,
		seed4:          0xbf58476d1ce4e5b7,
		resetThreshold: int64(maxSize) * 10,
	}
}

func (s *frequencySketch) positions(hash uint64) (p1, p2, p3, p4, sub1, sub2, sub3, sub4 uint64) {
	p1 = ((hash * s.seed1) >> 32) & s.tableMask
	p2 = ((hash * s.seed2) >> 32) & s.tableMask
	p3 = ((hash * s.seed3) >> 32) & s.tableMask
	p4 = ((hash * s.seed4) >> 32) & s.tableMask
	sub1 = (hash & 0xF) * 4
	sub2 = ((hash >> 4) & 0xF) * 4
	sub3 = ((hash >> 8) & 0xF) * 4
	sub4 = ((hash >> 12) & 0xF) * 4
	return
}

// increment bumps the minimum-counter estimate for hash by one, saturating
// at 15, unless the doorkeeper suppresses this as the key's first-ever
// increment.
func (s *frequencySketch) increment(hash uint64) {
	if s.sampleSize.Add(1)%s.resetThreshold == 0 {
		s.reset()
	}

	if !s.setDoorkeeper(hash) {
		// First sighting of this key: doorkeeper bit was unset and is now
		// set. Suppress the counter increment.
		return
	}

	p1, p2, p3, p4, sub1, sub2, sub3, sub4 := s.positions(hash)
	s.incrementCounter(p1, sub1)
	s.incrementCounter(p2, sub2)
	s.incrementCounter(p3, sub3)
	s.incrementCounter(p4, sub4)
}

// setDoorkeeper sets the door bit for hash and reports whether it was
// already set (true) prior to this call.
func (s *frequencySketch) setDoorkeeper(hash uint64) bool {
	word := hash & s.tableMask
	bit := uint64(1) << (hash & 63)
	for {
		old := atomic.LoadUint64(&s.doorkeeper[word])
		if old&bit != 0 {
			return true
		}
		if atomic.CompareAndSwapUint64(&s.doorkeeper[word], old, old|bit) {
			return false
		}
	}
}

func (s *frequencySketch) incrementCounter(tablePos, subPos uint64) {
	mask := uint64(0xF) << subPos
	for {
		old := atomic.LoadUint64(&s.table[tablePos])
		counter := (old >> subPos) & 0xF
		if counter >= 15 {
			return
		}
		newVal := (old &^ mask) | ((counter + 1) << subPos)
		if atomic.CompareAndSwapUint64(&s.table[tablePos], old, newVal) {
			return
		}
	}
}

// estimate returns the Count-Min estimate (minimum of the 4 positions) for
// hash, in [0, 15].
func (s *frequencySketch) estimate(hash uint64) uint64 {
	p1, p2, p3, p4, sub1, sub2, sub3, sub4 := s.positions(hash)
	c1 := (atomic.LoadUint64(&s.table[p1]) >> sub1) & 0xF
	c2 := (atomic.LoadUint64(&s.table[p2]) >> sub2) & 0xF
	c3 := (atomic.LoadUint64(&s.table[p3]) >> sub3) & 0xF
	c4 := (atomic.LoadUint64(&s.table[p4]) >> sub4) & 0xF
	return min4(c1, c2, c3, c4)
}

// reset ages the sketch: every counter is halved and the doorkeeper is
// cleared, bounding the influence of historical access patterns.
func (s *frequencySketch) reset() {
	for i := range s.table {
		for {
			old := atomic.LoadUint64(&s.table[i])
			var newVal uint64
			for j := 0; j < 16; j++ {
				shift := uint64(j * 4)
				counter := (old >> shift) & 0xF
				newVal |= (counter >> 1) << shift
			}
			if atomic.CompareAndSwapUint64(&s.table[i], old, newVal) {
				break
			}
		}
	}
	for i := range s.doorkeeper {
		atomic.StoreUint64(&s.doorkeeper[i], 0)
	}
}

func min4(a, b, c, d uint64) uint64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}
